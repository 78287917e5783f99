package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorhq/tutor-market-api/internal/models"
	"github.com/tutorhq/tutor-market-api/internal/repository"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
)

type reservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
	TransitionSide(ctx context.Context, id, side, target string, from []string) (bool, error)
}

// CreateReservationRequest describes payload for booking a class.
type CreateReservationRequest struct {
	StudentID   string    `json:"student_id" validate:"required"`
	TeacherID   string    `json:"teacher_id" validate:"required"`
	CourseID    string    `json:"course_id" validate:"required"`
	ReserveTime time.Time `json:"reserve_time" validate:"required"`
}

// ReservationService coordinates booking creation and the explicit
// user-driven side transitions. Time-driven transitions live in
// ExpirationService.
type ReservationService struct {
	repo      reservationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReservationService instantiates ReservationService.
func NewReservationService(repo reservationRepository, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{repo: repo, validator: validate, logger: logger}
}

// Create books a class. Both sides start in RESERVED.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	if !req.ReserveTime.After(time.Now()) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "invalid reservation payload"),
			map[string]string{"reserve_time": "reserve_time must be in the future"},
		)
	}

	reservation := models.Reservation{
		StudentID:     req.StudentID,
		TeacherID:     req.TeacherID,
		CourseID:      req.CourseID,
		ReserveTime:   req.ReserveTime.UTC(),
		TeacherStatus: models.StatusReserved,
		StudentStatus: models.StatusReserved,
	}

	if err := s.repo.Create(ctx, &reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("teacher_id", reservation.TeacherID),
		zap.String("student_id", reservation.StudentID),
		zap.Time("reserve_time", reservation.ReserveTime),
	)
	return &reservation, nil
}

// Get loads a reservation by id.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	return reservation, nil
}

// List returns reservations with pagination metadata.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error) {
	if filter.TeacherStatus != "" && !models.ValidStatus(filter.TeacherStatus) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown teacher_status")
	}
	if filter.StudentStatus != "" && !models.ValidStatus(filter.StudentStatus) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown student_status")
	}

	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return reservations, pagination, nil
}

// Complete marks one side of a reservation as completed. Allowed out of
// RESERVED or OVERDUE; a row in any other state is rejected.
func (s *ReservationService) Complete(ctx context.Context, id, side string) (*models.Reservation, error) {
	return s.transition(ctx, id, side, models.StatusCompleted, []string{models.StatusReserved, models.StatusOverdue})
}

// Cancel cancels one side of a reservation. Allowed out of RESERVED only.
func (s *ReservationService) Cancel(ctx context.Context, id, side string) (*models.Reservation, error) {
	return s.transition(ctx, id, side, models.StatusCancelled, []string{models.StatusReserved})
}

func (s *ReservationService) transition(ctx context.Context, id, side, target string, from []string) (*models.Reservation, error) {
	if side != repository.SideTeacher && side != repository.SideStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "side must be teacher or student")
	}

	ok, err := s.repo.TransitionSide(ctx, id, side, target, from)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition reservation")
	}
	if !ok {
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation is no longer in a state that allows this action")
	}

	s.logger.Info("reservation transitioned",
		zap.String("reservation_id", id),
		zap.String("side", side),
		zap.String("target", target),
	)
	return s.Get(ctx, id)
}
