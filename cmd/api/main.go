package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tutorhq/tutor-market-api/internal/handler"
	appmiddleware "github.com/tutorhq/tutor-market-api/internal/middleware"
	"github.com/tutorhq/tutor-market-api/internal/repository"
	"github.com/tutorhq/tutor-market-api/internal/service"
	"github.com/tutorhq/tutor-market-api/internal/sweeper"
	"github.com/tutorhq/tutor-market-api/pkg/cache"
	"github.com/tutorhq/tutor-market-api/pkg/config"
	"github.com/tutorhq/tutor-market-api/pkg/database"
	"github.com/tutorhq/tutor-market-api/pkg/logger"
	corsmiddleware "github.com/tutorhq/tutor-market-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorhq/tutor-market-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.ScheduleCache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.ScheduleCache.TTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	slotRepo := repository.NewSlotRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	availabilitySvc := service.NewAvailabilityService(slotRepo, cacheSvc, validate, logr)
	reservationSvc := service.NewReservationService(reservationRepo, validate, logr)
	expirationSvc := service.NewExpirationService(reservationRepo, cfg.Reservations.ResponseWindow, cfg.Reservations.AutoCompleteAfter, logr)

	sweepLocation, err := time.LoadLocation(cfg.Sweeper.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid sweep timezone", "timezone", cfg.Sweeper.Timezone, "error", err)
	}

	healthHandler := handler.NewHealthHandler(db)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	sweepHandler := handler.NewSweepHandler(expirationSvc, func() time.Time { return time.Now().In(sweepLocation) })
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(appmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", healthHandler.Live)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/teachers/:id/schedule", availabilityHandler.GetSchedule)
		api.PUT("/teachers/:id/schedule", availabilityHandler.SetSchedule)
		api.GET("/teachers/:id/schedule/conflict", availabilityHandler.CheckConflict)

		api.POST("/reservations", reservationHandler.Create)
		api.GET("/reservations", reservationHandler.List)
		api.GET("/reservations/:id", reservationHandler.Get)
		api.POST("/reservations/:id/teacher/complete", reservationHandler.TeacherComplete)
		api.POST("/reservations/:id/teacher/cancel", reservationHandler.TeacherCancel)
		api.POST("/reservations/:id/student/complete", reservationHandler.StudentComplete)
		api.POST("/reservations/:id/student/cancel", reservationHandler.StudentCancel)

		api.POST("/sweeps/expire", sweepHandler.Expire)
		api.POST("/sweeps/overdue", sweepHandler.Overdue)
		api.POST("/sweeps/autocomplete", sweepHandler.AutoComplete)
	}

	var sw *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sw, err = sweeper.New(expirationSvc, metricsSvc, cfg.Sweeper, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to build sweeper", "error", err)
		}
		if err := sw.Start(); err != nil {
			logr.Sugar().Fatalw("failed to start sweeper", "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	if sw != nil {
		sw.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
