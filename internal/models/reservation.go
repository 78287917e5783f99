package models

import (
	"database/sql"
	"time"
)

// Reservation statuses. The teacher and student sides evolve
// independently and each carries its own status field.
const (
	StatusReserved  = "RESERVED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusOverdue   = "OVERDUE"
	StatusExpired   = "EXPIRED"
)

// ValidStatus reports whether s is a known reservation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusReserved, StatusCompleted, StatusCancelled, StatusOverdue, StatusExpired:
		return true
	}
	return false
}

// Reservation is a booked class. Rows are never deleted; lifecycle is
// expressed purely through the two status fields. OverdueAt records when
// the overdue sweep moved a side into OVERDUE and anchors the
// auto-complete threshold.
type Reservation struct {
	ID            string       `db:"id" json:"id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	TeacherID     string       `db:"teacher_id" json:"teacher_id"`
	CourseID      string       `db:"course_id" json:"course_id"`
	ReserveTime   time.Time    `db:"reserve_time" json:"reserve_time"`
	TeacherStatus string       `db:"teacher_status" json:"teacher_status"`
	StudentStatus string       `db:"student_status" json:"student_status"`
	OverdueAt     sql.NullTime `db:"overdue_at" json:"overdue_at,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// ReservationFilter describes query params for listing reservations.
type ReservationFilter struct {
	TeacherID     string
	StudentID     string
	CourseID      string
	TeacherStatus string
	StudentStatus string
	Page          int
	PageSize      int
}

// SweepResult reports one expiration sweep: how many reservations were
// transitioned and which ones. The periodic trigger logs both.
type SweepResult struct {
	Count       int      `json:"count"`
	AffectedIDs []string `json:"affected_ids"`
}
