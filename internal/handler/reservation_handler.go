package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/internal/repository"
	"github.com/tutorhq/tutor-market-api/internal/service"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
	"github.com/tutorhq/tutor-market-api/pkg/response"
)

type reservationService interface {
	Create(ctx context.Context, req service.CreateReservationRequest) (*models.Reservation, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error)
	Complete(ctx context.Context, id, side string) (*models.Reservation, error)
	Cancel(ctx context.Context, id, side string) (*models.Reservation, error)
}

// ReservationHandler manages reservation endpoints.
type ReservationHandler struct {
	service reservationService
}

// NewReservationHandler constructs handler.
func NewReservationHandler(svc reservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// Create books a class.
func (h *ReservationHandler) Create(c *gin.Context) {
	var req service.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reservation, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reservation)
}

// Get returns a single reservation.
func (h *ReservationHandler) Get(c *gin.Context) {
	reservation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// List returns reservations with optional filters.
func (h *ReservationHandler) List(c *gin.Context) {
	var filter models.ReservationFilter
	filter.TeacherID = c.Query("teacherId")
	filter.StudentID = c.Query("studentId")
	filter.CourseID = c.Query("courseId")
	filter.TeacherStatus = c.Query("teacherStatus")
	filter.StudentStatus = c.Query("studentStatus")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	reservations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, pagination)
}

// TeacherComplete marks the teacher side completed.
func (h *ReservationHandler) TeacherComplete(c *gin.Context) {
	h.transition(c, repository.SideTeacher, h.service.Complete)
}

// TeacherCancel cancels the teacher side.
func (h *ReservationHandler) TeacherCancel(c *gin.Context) {
	h.transition(c, repository.SideTeacher, h.service.Cancel)
}

// StudentComplete marks the student side completed.
func (h *ReservationHandler) StudentComplete(c *gin.Context) {
	h.transition(c, repository.SideStudent, h.service.Complete)
}

// StudentCancel cancels the student side.
func (h *ReservationHandler) StudentCancel(c *gin.Context) {
	h.transition(c, repository.SideStudent, h.service.Cancel)
}

func (h *ReservationHandler) transition(c *gin.Context, side string, action func(context.Context, string, string) (*models.Reservation, error)) {
	reservation, err := action(c.Request.Context(), c.Param("id"), side)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}
