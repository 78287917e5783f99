package service

import (
	"context"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorhq/tutor-market-api/internal/models"
	appErrors "github.com/tutorhq/tutor-market-api/pkg/errors"
)

type mockSlotRepo struct {
	schedules map[string][]models.AvailabilitySlot
	replaces  int
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{schedules: make(map[string][]models.AvailabilitySlot)}
}

func (m *mockSlotRepo) GetSchedule(ctx context.Context, teacherID string) ([]models.AvailabilitySlot, error) {
	slots := append([]models.AvailabilitySlot(nil), m.schedules[teacherID]...)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Weekday != slots[j].Weekday {
			return slots[i].Weekday < slots[j].Weekday
		}
		return slots[i].StartMinute < slots[j].StartMinute
	})
	return slots, nil
}

func (m *mockSlotRepo) ReplaceSchedule(ctx context.Context, teacherID string, slots []models.AvailabilitySlot) error {
	m.replaces++
	stored := make([]models.AvailabilitySlot, len(slots))
	for i, s := range slots {
		s.TeacherID = teacherID
		s.IsActive = true
		stored[i] = s
	}
	m.schedules[teacherID] = stored
	return nil
}

func (m *mockSlotRepo) FindOverlapping(ctx context.Context, teacherID string, weekday, startMinute, endMinute int) ([]models.AvailabilitySlot, error) {
	var out []models.AvailabilitySlot
	for _, s := range m.schedules[teacherID] {
		if s.Weekday == weekday && s.StartMinute < endMinute && s.EndMinute > startMinute {
			out = append(out, s)
		}
	}
	return out, nil
}

func newAvailabilityService(repo *mockSlotRepo) *AvailabilityService {
	return NewAvailabilityService(repo, nil, validator.New(), zap.NewNop())
}

func TestSetScheduleValid(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newAvailabilityService(repo)

	slots, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "14:00", EndTime: "17:00"},
	}})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "12:00", slots[0].EndTime)
	assert.Equal(t, 540, slots[0].StartMinute)
	assert.Len(t, repo.schedules["t1"], 2)
}

func TestSetScheduleAdjacentSlotsAllowed(t *testing.T) {
	svc := newAvailabilityService(newMockSlotRepo())

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 2, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 2, StartTime: "12:00", EndTime: "15:00"},
	}})
	require.NoError(t, err)
}

func TestSetScheduleRejectsOverlapInFull(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newAvailabilityService(repo)

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "11:59", EndTime: "13:00"},
	}})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "schedule[0].overlap")

	// Nothing persisted.
	assert.Equal(t, 0, repo.replaces)
}

func TestSetScheduleOverlapOnDifferentWeekdaysAllowed(t *testing.T) {
	svc := newAvailabilityService(newMockSlotRepo())

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 2, StartTime: "09:00", EndTime: "12:00"},
	}})
	require.NoError(t, err)
}

func TestSetScheduleRejectsMalformedSlots(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newAvailabilityService(repo)

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 7, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "9am", EndTime: "12:00"},
		{Weekday: 1, StartTime: "15:00", EndTime: "14:00"},
	}})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Details, "schedule[0].weekday")
	assert.Contains(t, appErr.Details, "schedule[1].start_time")
	assert.Contains(t, appErr.Details, "schedule[2].time_range")
	assert.Equal(t, 0, repo.replaces)
}

func TestSetScheduleInvalidSubmissionLeavesPriorScheduleIntact(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newAvailabilityService(repo)

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
	}})
	require.NoError(t, err)

	_, err = svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "10:00", EndTime: "11:00"},
		{Weekday: 1, StartTime: "10:30", EndTime: "12:00"},
	}})
	require.Error(t, err)

	slots, err := svc.GetSchedule(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime)
}

func TestSetScheduleReplacesWholesale(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newAvailabilityService(repo)

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
		{Weekday: 1, StartTime: "14:00", EndTime: "17:00"},
	}})
	require.NoError(t, err)

	slots, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "10:00", EndTime: "15:00"},
	}})
	require.NoError(t, err)
	require.Len(t, slots, 1)

	stored, err := svc.GetSchedule(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "10:00", stored[0].StartTime)
	assert.Equal(t, "15:00", stored[0].EndTime)
}

func TestCheckConflictBoundaries(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newAvailabilityService(repo)

	_, err := svc.SetSchedule(context.Background(), "t1", SetScheduleRequest{Schedule: []SlotInput{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
	}})
	require.NoError(t, err)

	// Touching window is not a conflict.
	check, err := svc.CheckConflict(context.Background(), "t1", 1, "12:00", "15:00")
	require.NoError(t, err)
	assert.False(t, check.Conflict)
	assert.Empty(t, check.Slots)

	// One shared minute is.
	check, err = svc.CheckConflict(context.Background(), "t1", 1, "11:59", "13:00")
	require.NoError(t, err)
	assert.True(t, check.Conflict)
	require.Len(t, check.Slots, 1)
	assert.Equal(t, "09:00", check.Slots[0].StartTime)

	// Other weekdays are independent.
	check, err = svc.CheckConflict(context.Background(), "t1", 2, "09:00", "12:00")
	require.NoError(t, err)
	assert.False(t, check.Conflict)
}

func TestCheckConflictRejectsMalformedQuery(t *testing.T) {
	svc := newAvailabilityService(newMockSlotRepo())

	_, err := svc.CheckConflict(context.Background(), "t1", 9, "25:00", "12:00")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Details, "weekday")
	assert.Contains(t, appErr.Details, "start_time")
}
