package models

import "time"

// ConflictType identifies the shared dimension of a double-booking.
type ConflictType string

const (
	ConflictTypeRoom    ConflictType = "ROOM"
	ConflictTypeTeacher ConflictType = "TEACHER"
	ConflictTypeGroup   ConflictType = "GROUP"
)

// Conflict is a detected double-booking across two overlapping assignments.
// Conflicts transition open → resolved exactly once, by admin action.
type Conflict struct {
	ID          string       `db:"id" json:"id"`
	Type        ConflictType `db:"type" json:"type"`
	Description string       `db:"description" json:"description"`
	Resolved    bool         `db:"resolved" json:"resolved"`
	DetectedAt  time.Time    `db:"detected_at" json:"detected_at"`
	ResolvedAt  *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy  *string      `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// ConflictLink joins a conflict to one of the assignments involved.
type ConflictLink struct {
	ConflictID   string `db:"conflict_id" json:"conflict_id"`
	AssignmentID string `db:"assignment_id" json:"assignment_id"`
}

// ConflictCandidate is a detected pairwise overlap that has not been persisted
// yet. One candidate is produced per shared dimension.
type ConflictCandidate struct {
	Type        ConflictType `json:"type"`
	Description string       `json:"description"`
	FirstID     string       `json:"first_assignment_id"`
	SecondID    string       `json:"second_assignment_id"`
}

// ConflictFilter captures filtering options for listing conflicts.
type ConflictFilter struct {
	Type     ConflictType
	Resolved *bool
	Page     int
	PageSize int
}
