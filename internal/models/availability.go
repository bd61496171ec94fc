package models

import "time"

// Availability is a teacher-declared statement of being free or unfree for a
// time slot across a date range.
type Availability struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	TimeSlotID string    `db:"time_slot_id" json:"time_slot_id"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	Available  bool      `db:"available" json:"available"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityFilter captures filtering options for listing availabilities.
type AvailabilityFilter struct {
	TeacherID  string
	TimeSlotID string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
