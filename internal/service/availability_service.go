package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorhq/tutor-market-api/internal/models"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
	"github.com/tutorhq/tutor-market-api/pkg/timeutil"
)

type slotRepository interface {
	GetSchedule(ctx context.Context, teacherID string) ([]models.AvailabilitySlot, error)
	ReplaceSchedule(ctx context.Context, teacherID string, slots []models.AvailabilitySlot) error
	FindOverlapping(ctx context.Context, teacherID string, weekday, startMinute, endMinute int) ([]models.AvailabilitySlot, error)
}

// SlotInput is one submitted weekly window. Weekday runs 0=Sunday
// through 6=Saturday; times are "HH:mm" on the wire.
type SlotInput struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// SetScheduleRequest replaces a teacher's entire weekly schedule.
type SetScheduleRequest struct {
	Schedule []SlotInput `json:"schedule" validate:"dive"`
}

// AvailabilityService owns the teacher weekly schedule and its conflict
// rules.
type AvailabilityService struct {
	repo      slotRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(repo slotRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, cache: cache, validator: validate, logger: logger}
}

func scheduleCacheKey(teacherID string) string {
	return fmt.Sprintf("schedule:%s", teacherID)
}

// GetSchedule returns the teacher's active slots ordered by weekday then
// start time, reading through the cache when enabled.
func (s *AvailabilityService) GetSchedule(ctx context.Context, teacherID string) ([]models.AvailabilitySlot, error) {
	key := scheduleCacheKey(teacherID)
	if s.cache.Enabled() {
		var cached []models.AvailabilitySlot
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}

	slots, err := s.repo.GetSchedule(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	decorateSlots(slots)

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, slots, 0)
	}
	return slots, nil
}

// SetSchedule validates the submitted weekly schedule and atomically
// replaces the teacher's stored slots with it. Nothing is persisted when
// any slot is malformed or any two submitted slots on the same weekday
// overlap; the returned validation error names every offending field and
// every conflicting pair.
func (s *AvailabilityService) SetSchedule(ctx context.Context, teacherID string, req SetScheduleRequest) ([]models.AvailabilitySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	slots, details := parseSchedule(req.Schedule)
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid schedule"), details)
	}

	if overlaps := findInternalOverlaps(slots); len(overlaps) > 0 {
		details = make(map[string]string, len(overlaps))
		for _, o := range overlaps {
			details[fmt.Sprintf("schedule[%d].overlap", o.FirstIndex)] = fmt.Sprintf("overlaps schedule[%d] (%s)", o.OtherIndex, o.String())
		}
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "schedule contains overlapping slots"), details)
	}

	if err := s.repo.ReplaceSchedule(ctx, teacherID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace schedule")
	}
	decorateSlots(slots)

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, scheduleCacheKey(teacherID))
	}

	s.logger.Info("schedule replaced",
		zap.String("teacher_id", teacherID),
		zap.Int("slots", len(slots)),
	)
	return slots, nil
}

// CheckConflict reports whether the candidate window collides with any
// stored active slot of the teacher. It is a pure read.
func (s *AvailabilityService) CheckConflict(ctx context.Context, teacherID string, weekday int, startTime, endTime string) (*models.ConflictCheck, error) {
	details := map[string]string{}
	if weekday < 0 || weekday > 6 {
		details["weekday"] = "weekday must be between 0 (Sunday) and 6 (Saturday)"
	}
	start, err := timeutil.ParseClock(startTime)
	if err != nil {
		details["start_time"] = err.Error()
	}
	end, err := timeutil.ParseClock(endTime)
	if err != nil {
		details["end_time"] = err.Error()
	}
	if len(details) == 0 && start >= end {
		details["time_range"] = "start_time must be before end_time"
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid conflict query"), details)
	}

	overlapping, err := s.repo.FindOverlapping(ctx, teacherID, weekday, int(start), int(end))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
	}
	decorateSlots(overlapping)

	return &models.ConflictCheck{Conflict: len(overlapping) > 0, Slots: overlapping}, nil
}

// parseSchedule converts submitted slots into model rows, collecting a
// field-indexed details map for every malformed entry.
func parseSchedule(inputs []SlotInput) ([]models.AvailabilitySlot, map[string]string) {
	details := map[string]string{}
	slots := make([]models.AvailabilitySlot, 0, len(inputs))

	for i, in := range inputs {
		ok := true
		if in.Weekday < 0 || in.Weekday > 6 {
			details[fmt.Sprintf("schedule[%d].weekday", i)] = "weekday must be between 0 (Sunday) and 6 (Saturday)"
			ok = false
		}
		start, err := timeutil.ParseClock(in.StartTime)
		if err != nil {
			details[fmt.Sprintf("schedule[%d].start_time", i)] = err.Error()
			ok = false
		}
		end, err := timeutil.ParseClock(in.EndTime)
		if err != nil {
			details[fmt.Sprintf("schedule[%d].end_time", i)] = err.Error()
			ok = false
		}
		if ok && start >= end {
			details[fmt.Sprintf("schedule[%d].time_range", i)] = "start_time must be before end_time"
			ok = false
		}
		if !ok {
			continue
		}
		slots = append(slots, models.AvailabilitySlot{
			Weekday:     in.Weekday,
			StartMinute: int(start),
			EndMinute:   int(end),
			IsActive:    true,
		})
	}

	return slots, details
}

// findInternalOverlaps reports every pair of submitted slots on the same
// weekday whose half-open windows intersect. Adjacent slots (one ending
// exactly where the next starts) are not overlaps.
func findInternalOverlaps(slots []models.AvailabilitySlot) []models.SlotOverlap {
	var overlaps []models.SlotOverlap
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Weekday != slots[j].Weekday {
				continue
			}
			if timeutil.Overlaps(
				timeutil.Clock(slots[i].StartMinute), timeutil.Clock(slots[i].EndMinute),
				timeutil.Clock(slots[j].StartMinute), timeutil.Clock(slots[j].EndMinute),
			) {
				overlaps = append(overlaps, models.SlotOverlap{
					Weekday:    slots[i].Weekday,
					FirstIndex: i,
					FirstSlot:  windowLabel(slots[i]),
					OtherIndex: j,
					OtherSlot:  windowLabel(slots[j]),
				})
			}
		}
	}
	return overlaps
}

func windowLabel(slot models.AvailabilitySlot) string {
	return fmt.Sprintf("%s-%s", timeutil.Clock(slot.StartMinute), timeutil.Clock(slot.EndMinute))
}

// decorateSlots fills the wire-format time strings from the stored
// minute values.
func decorateSlots(slots []models.AvailabilitySlot) {
	for i := range slots {
		slots[i].StartTime = timeutil.Clock(slots[i].StartMinute).String()
		slots[i].EndTime = timeutil.Clock(slots[i].EndMinute).String()
	}
}
