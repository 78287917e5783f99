package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/internal/service"
	"github.com/tutorhq/tutor-market-api/pkg/config"
)

// sweepTimeout bounds one sweep run; a run that exceeds it is abandoned
// and retried on the next tick.
const sweepTimeout = 4 * time.Minute

type expirationService interface {
	HandleExpiredReservations(ctx context.Context, now time.Time) (*models.SweepResult, error)
	MarkReservationsOverdue(ctx context.Context, now time.Time) (*models.SweepResult, error)
	AutoCompleteOverdueReservations(ctx context.Context, now time.Time) (*models.SweepResult, error)
}

// Sweeper drives the three expiration sweeps on independent cron
// cadences, all evaluated in the configured named timezone so "the class
// time has passed" means the same thing in every deployment region.
// Overlapping ticks of the same entry are skipped in-process; cross
// instance safety rests on the conditional-write idempotency of the
// sweeps themselves.
type Sweeper struct {
	engine   expirationService
	metrics  *service.MetricsService
	logger   *zap.Logger
	location *time.Location
	cfg      config.SweeperConfig
	cron     *cron.Cron
}

// New builds a Sweeper. The configured timezone must resolve; a broken
// timezone is a deployment error, not something to silently fall back
// from.
func New(engine expirationService, metrics *service.MetricsService, cfg config.SweeperConfig, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		engine:   engine,
		metrics:  metrics,
		logger:   logger,
		location: location,
		cfg:      cfg,
	}, nil
}

// Start registers the three sweep entries and starts the cron runner.
func (s *Sweeper) Start() error {
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	entries := []struct {
		name string
		spec string
		op   func(context.Context, time.Time) (*models.SweepResult, error)
	}{
		{name: "expire", spec: s.cfg.ExpireSpec, op: s.engine.HandleExpiredReservations},
		{name: "overdue", spec: s.cfg.OverdueSpec, op: s.engine.MarkReservationsOverdue},
		{name: "autocomplete", spec: s.cfg.AutoCompleteSpec, op: s.engine.AutoCompleteOverdueReservations},
	}

	for _, entry := range entries {
		entry := entry
		if _, err := s.cron.AddFunc(entry.spec, func() {
			s.runSweep(entry.name, entry.op)
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("sweeper started",
		zap.String("timezone", s.cfg.Timezone),
		zap.String("expire_spec", s.cfg.ExpireSpec),
		zap.String("overdue_spec", s.cfg.OverdueSpec),
		zap.String("autocomplete_spec", s.cfg.AutoCompleteSpec),
	)
	return nil
}

// Stop halts scheduling and waits for any running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// runSweep executes one sweep with the current instant in the configured
// location. A failing sweep is logged and left for the next natural
// tick; it is never fatal.
func (s *Sweeper) runSweep(name string, op func(context.Context, time.Time) (*models.SweepResult, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := op(ctx, time.Now().In(s.location))
	duration := time.Since(start)

	affected := 0
	if result != nil {
		affected = result.Count
	}
	s.metrics.ObserveSweep(name, affected, duration, err)

	if err != nil {
		s.logger.Error("sweep failed",
			zap.String("sweep", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	if result.Count > 0 {
		s.logger.Info("sweep completed",
			zap.String("sweep", name),
			zap.Int("count", result.Count),
			zap.Strings("reservation_ids", result.AffectedIDs),
			zap.Duration("duration", duration),
		)
	} else {
		s.logger.Debug("sweep completed with no candidates",
			zap.String("sweep", name),
			zap.Duration("duration", duration),
		)
	}
}
