package models

import (
	"fmt"
	"time"
)

// AvailabilitySlot is one recurring weekly window in a teacher's
// schedule. Start and end are minutes since midnight and the window is
// half-open: [StartMinute, EndMinute).
type AvailabilitySlot struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Weekday     int       `db:"weekday" json:"weekday"`
	StartMinute int       `db:"start_minute" json:"-"`
	EndMinute   int       `db:"end_minute" json:"-"`
	StartTime   string    `db:"-" json:"start_time"`
	EndTime     string    `db:"-" json:"end_time"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SlotOverlap names two submitted slots on the same weekday whose
// windows intersect.
type SlotOverlap struct {
	Weekday    int    `json:"weekday"`
	FirstIndex int    `json:"first_index"`
	FirstSlot  string `json:"first_slot"`
	OtherIndex int    `json:"other_index"`
	OtherSlot  string `json:"other_slot"`
}

func (o SlotOverlap) String() string {
	return fmt.Sprintf("weekday %d: %s overlaps %s", o.Weekday, o.FirstSlot, o.OtherSlot)
}

// ConflictCheck is the result of probing a candidate window against a
// teacher's stored active slots.
type ConflictCheck struct {
	Conflict bool               `json:"conflict"`
	Slots    []AvailabilitySlot `json:"slots"`
}
