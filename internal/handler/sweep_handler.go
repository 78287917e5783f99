package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/pkg/response"
)

type expirationService interface {
	HandleExpiredReservations(ctx context.Context, now time.Time) (*models.SweepResult, error)
	MarkReservationsOverdue(ctx context.Context, now time.Time) (*models.SweepResult, error)
	AutoCompleteOverdueReservations(ctx context.Context, now time.Time) (*models.SweepResult, error)
}

// SweepHandler exposes the three expiration sweeps as manual trigger
// endpoints. The same operations run on the periodic scheduler; these
// endpoints exist for operational intervention and take no parameters.
type SweepHandler struct {
	service expirationService
	nowFunc func() time.Time
}

// NewSweepHandler constructs handler. nowFunc should produce the current
// instant in the sweep timezone; nil defaults to time.Now.
func NewSweepHandler(svc expirationService, nowFunc func() time.Time) *SweepHandler {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &SweepHandler{service: svc, nowFunc: nowFunc}
}

// Expire runs the teacher-response expiration sweep.
func (h *SweepHandler) Expire(c *gin.Context) {
	h.run(c, h.service.HandleExpiredReservations)
}

// Overdue runs the past-class-time sweep.
func (h *SweepHandler) Overdue(c *gin.Context) {
	h.run(c, h.service.MarkReservationsOverdue)
}

// AutoComplete runs the overdue auto-completion sweep.
func (h *SweepHandler) AutoComplete(c *gin.Context) {
	h.run(c, h.service.AutoCompleteOverdueReservations)
}

func (h *SweepHandler) run(c *gin.Context, op func(context.Context, time.Time) (*models.SweepResult, error)) {
	result, err := op(c.Request.Context(), h.nowFunc())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
