package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhq/tutor-market-api/internal/models"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
)

type sweepRepository interface {
	ExpireUnanswered(ctx context.Context, createdBefore, now time.Time) ([]string, error)
	MarkOverdue(ctx context.Context, now time.Time) ([]string, error)
	AutoComplete(ctx context.Context, overdueBefore, now time.Time) ([]string, error)
}

// ExpirationService owns the time-driven reservation transitions. Each
// operation is a pure function of the stored data and the injected
// instant, so sweeps are reproducible in tests with fixed clocks.
// Idempotency comes from the repository's status-qualified conditional
// writes: a row already moved out of its source state is never selected
// again, so overlapping or repeated invocations are harmless.
type ExpirationService struct {
	repo              sweepRepository
	responseWindow    time.Duration
	autoCompleteAfter time.Duration
	logger            *zap.Logger
}

// NewExpirationService instantiates ExpirationService. responseWindow is
// how long a teacher may leave a reservation unanswered;
// autoCompleteAfter is how long a reservation stays overdue before being
// presumed completed.
func NewExpirationService(repo sweepRepository, responseWindow, autoCompleteAfter time.Duration, logger *zap.Logger) *ExpirationService {
	if responseWindow <= 0 {
		responseWindow = 24 * time.Hour
	}
	if autoCompleteAfter <= 0 {
		autoCompleteAfter = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirationService{
		repo:              repo,
		responseWindow:    responseWindow,
		autoCompleteAfter: autoCompleteAfter,
		logger:            logger,
	}
}

// HandleExpiredReservations expires the teacher side of reservations the
// teacher never acted on within the response window. The student side is
// untouched. An empty candidate set is success with zero count.
func (s *ExpirationService) HandleExpiredReservations(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	ids, err := s.repo.ExpireUnanswered(ctx, now.Add(-s.responseWindow), now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire unanswered reservations")
	}
	return s.result("expire", ids), nil
}

// MarkReservationsOverdue moves sides still RESERVED on reservations
// whose class time is strictly in the past into OVERDUE. This marks
// "the class came and went unconfirmed", distinct from teacher
// non-response.
func (s *ExpirationService) MarkReservationsOverdue(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	ids, err := s.repo.MarkOverdue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark reservations overdue")
	}
	return s.result("overdue", ids), nil
}

// AutoCompleteOverdueReservations completes reservations that have sat
// in OVERDUE for the full threshold, on the policy that an uncontested
// overdue session is presumed to have occurred.
func (s *ExpirationService) AutoCompleteOverdueReservations(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	ids, err := s.repo.AutoComplete(ctx, now.Add(-s.autoCompleteAfter), now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to auto-complete overdue reservations")
	}
	return s.result("autocomplete", ids), nil
}

func (s *ExpirationService) result(sweep string, ids []string) *models.SweepResult {
	if ids == nil {
		ids = []string{}
	}
	if len(ids) > 0 {
		s.logger.Info("sweep transitioned reservations",
			zap.String("sweep", sweep),
			zap.Int("count", len(ids)),
			zap.Strings("reservation_ids", ids),
		)
	}
	return &models.SweepResult{Count: len(ids), AffectedIDs: ids}
}
