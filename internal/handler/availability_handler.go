package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/internal/service"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
	"github.com/tutorhq/tutor-market-api/pkg/response"
)

type availabilityService interface {
	GetSchedule(ctx context.Context, teacherID string) ([]models.AvailabilitySlot, error)
	SetSchedule(ctx context.Context, teacherID string, req service.SetScheduleRequest) ([]models.AvailabilitySlot, error)
	CheckConflict(ctx context.Context, teacherID string, weekday int, startTime, endTime string) (*models.ConflictCheck, error)
}

// AvailabilityHandler manages teacher weekly schedule endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// GetSchedule returns a teacher's active weekly slots.
func (h *AvailabilityHandler) GetSchedule(c *gin.Context) {
	slots, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// SetSchedule replaces a teacher's entire weekly schedule.
func (h *AvailabilityHandler) SetSchedule(c *gin.Context) {
	var req service.SetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.service.SetSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CheckConflict reports whether a candidate window overlaps any stored
// active slot.
func (h *AvailabilityHandler) CheckConflict(c *gin.Context) {
	weekday, err := strconv.Atoi(c.Query("weekday"))
	if err != nil {
		response.Error(c, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "invalid conflict query"),
			map[string]string{"weekday": "weekday must be an integer between 0 and 6"},
		))
		return
	}

	check, err := h.service.CheckConflict(c.Request.Context(), c.Param("id"), weekday, c.Query("start_time"), c.Query("end_time"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
