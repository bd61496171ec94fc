package models

import "time"

// CalendarEvent represents an academic calendar entry. Events flagged as
// blocking make every date inside their range unusable for new sessions.
type CalendarEvent struct {
	ID                string    `db:"id" json:"id"`
	Title             string    `db:"title" json:"title"`
	Description       *string   `db:"description" json:"description,omitempty"`
	StartDate         time.Time `db:"start_date" json:"start_date"`
	EndDate           time.Time `db:"end_date" json:"end_date"`
	BlocksAssignments bool      `db:"blocks_assignments" json:"blocks_assignments"`
	CreatedBy         string    `db:"created_by" json:"created_by"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarFilter narrows down events.
type CalendarFilter struct {
	From     *time.Time
	To       *time.Time
	Blocking *bool
	Page     int
	PageSize int
}
