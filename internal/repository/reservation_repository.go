package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tutorhq/tutor-market-api/internal/models"
)

// Reservation side selectors for explicit transitions.
const (
	SideTeacher = "teacher"
	SideStudent = "student"
)

// ReservationRepository provides persistence for reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create stores a new reservation record.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now

	const query = `INSERT INTO reservations (id, student_id, teacher_id, course_id, reserve_time, teacher_status, student_status, overdue_at, created_at, updated_at) VALUES (:id, :student_id, :teacher_id, :course_id, :reserve_time, :teacher_status, :student_status, :overdue_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reservation); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// FindByID loads a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	const query = `SELECT id, student_id, teacher_id, course_id, reserve_time, teacher_status, student_status, overdue_at, created_at, updated_at FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// List returns reservations with optional filtering and pagination.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	base := "FROM reservations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherStatus != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_status = $%d", len(args)+1))
		args = append(args, filter.TeacherStatus)
	}
	if filter.StudentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("student_status = $%d", len(args)+1))
		args = append(args, filter.StudentStatus)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, student_id, teacher_id, course_id, reserve_time, teacher_status, student_status, overdue_at, created_at, updated_at %s ORDER BY reserve_time DESC LIMIT %d OFFSET %d", base, size, offset)
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	return reservations, total, nil
}

// TransitionSide conditionally moves one side of a reservation from any
// of the given source statuses to the target status. It reports whether
// a row was actually transitioned; false means the reservation was no
// longer in a source state when the write ran.
func (r *ReservationRepository) TransitionSide(ctx context.Context, id, side, target string, from []string) (bool, error) {
	column, err := sideColumn(side)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE reservations SET %s = $1, updated_at = $2 WHERE id = $3 AND %s = ANY($4)`, column, column)
	res, err := r.db.ExecContext(ctx, query, target, time.Now().UTC(), id, pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("transition reservation %s side: %w", side, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition reservation %s side: %w", side, err)
	}
	return affected > 0, nil
}

// ExpireUnanswered moves the teacher side of reservations still RESERVED
// past the response deadline into EXPIRED and returns the affected ids.
// The status predicate is repeated in the UPDATE itself so a concurrent
// sweep that already transitioned a row leaves nothing for this one.
func (r *ReservationRepository) ExpireUnanswered(ctx context.Context, createdBefore, now time.Time) ([]string, error) {
	const query = `UPDATE reservations SET teacher_status = $1, updated_at = $2 WHERE teacher_status = $3 AND created_at <= $4 RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.StatusExpired, now.UTC(), models.StatusReserved, createdBefore.UTC()); err != nil {
		return nil, fmt.Errorf("expire unanswered reservations: %w", err)
	}
	return ids, nil
}

// MarkOverdue transitions every side still RESERVED on reservations
// whose class time is strictly in the past into OVERDUE, stamping
// overdue_at on first transition. A cancelled reservation is terminal
// for the sweeps: once either side is CANCELLED the row is never
// selected, so the surviving side stays where the cancellation left it.
func (r *ReservationRepository) MarkOverdue(ctx context.Context, now time.Time) ([]string, error) {
	const query = `UPDATE reservations SET
		teacher_status = CASE WHEN teacher_status = $1 THEN $2 ELSE teacher_status END,
		student_status = CASE WHEN student_status = $1 THEN $2 ELSE student_status END,
		overdue_at = COALESCE(overdue_at, $3),
		updated_at = $3
	WHERE reserve_time < $3 AND (teacher_status = $1 OR student_status = $1)
		AND teacher_status <> $4 AND student_status <> $4
	RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.StatusReserved, models.StatusOverdue, now.UTC(), models.StatusCancelled); err != nil {
		return nil, fmt.Errorf("mark reservations overdue: %w", err)
	}
	return ids, nil
}

// AutoComplete transitions sides that have sat in OVERDUE since before
// the cutoff into COMPLETED and returns the affected ids. Rows with a
// CANCELLED side are excluded, same as MarkOverdue.
func (r *ReservationRepository) AutoComplete(ctx context.Context, overdueBefore, now time.Time) ([]string, error) {
	const query = `UPDATE reservations SET
		teacher_status = CASE WHEN teacher_status = $1 THEN $2 ELSE teacher_status END,
		student_status = CASE WHEN student_status = $1 THEN $2 ELSE student_status END,
		updated_at = $3
	WHERE overdue_at IS NOT NULL AND overdue_at <= $4 AND (teacher_status = $1 OR student_status = $1)
		AND teacher_status <> $5 AND student_status <> $5
	RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.StatusOverdue, models.StatusCompleted, now.UTC(), overdueBefore.UTC(), models.StatusCancelled); err != nil {
		return nil, fmt.Errorf("auto-complete overdue reservations: %w", err)
	}
	return ids, nil
}

func sideColumn(side string) (string, error) {
	switch side {
	case SideTeacher:
		return "teacher_status", nil
	case SideStudent:
		return "student_status", nil
	}
	return "", fmt.Errorf("unknown reservation side %q", side)
}
