package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorhq/tutor-market-api/internal/models"
)

// SlotRepository provides persistence for teacher availability slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// GetSchedule returns a teacher's active slots ordered by weekday then
// start time.
func (r *SlotRepository) GetSchedule(ctx context.Context, teacherID string) ([]models.AvailabilitySlot, error) {
	const query = `SELECT id, teacher_id, weekday, start_minute, end_minute, is_active, created_at, updated_at FROM availability_slots WHERE teacher_id = $1 AND is_active = TRUE ORDER BY weekday ASC, start_minute ASC`
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return slots, nil
}

// ReplaceSchedule atomically swaps a teacher's entire weekly schedule
// for the provided set. Delete and insert run in one transaction so a
// concurrent reader sees either the old schedule or the new one,
// never a partial mix.
func (r *SlotRepository) ReplaceSchedule(ctx context.Context, teacherID string, slots []models.AvailabilitySlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_slots WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}

	now := time.Now().UTC()
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.TeacherID = teacherID
		payload.IsActive = true
		payload.CreatedAt = now
		payload.UpdatedAt = now

		if _, err = tx.NamedExecContext(ctx, `INSERT INTO availability_slots (id, teacher_id, weekday, start_minute, end_minute, is_active, created_at, updated_at) VALUES (:id, :teacher_id, :weekday, :start_minute, :end_minute, :is_active, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		slots[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedule: %w", err)
	}
	return nil
}

// FindOverlapping returns the teacher's stored active slots on the given
// weekday whose half-open windows intersect [startMinute, endMinute).
func (r *SlotRepository) FindOverlapping(ctx context.Context, teacherID string, weekday, startMinute, endMinute int) ([]models.AvailabilitySlot, error) {
	const query = `SELECT id, teacher_id, weekday, start_minute, end_minute, is_active, created_at, updated_at FROM availability_slots WHERE teacher_id = $1 AND weekday = $2 AND is_active = TRUE AND start_minute < $3 AND end_minute > $4 ORDER BY start_minute ASC`
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID, weekday, endMinute, startMinute); err != nil {
		return nil, fmt.Errorf("find overlapping slots: %w", err)
	}
	return slots, nil
}
