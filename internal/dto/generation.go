package dto

import "time"

// GenerateAssignmentsRequest describes one automatic generation run.
// Dates use the YYYY-MM-DD layout; AdminID is injected from the JWT claims.
type GenerateAssignmentsRequest struct {
	DateFrom  string   `json:"date_from" validate:"required"`
	DateTo    string   `json:"date_to" validate:"required"`
	CourseIDs []string `json:"course_ids,omitempty"`
	GroupIDs  []string `json:"group_ids,omitempty"`
	Overwrite bool     `json:"overwrite"`
	AdminID   string   `json:"-"`
}

// GeneratedSession summarises one assignment created by the generator.
type GeneratedSession struct {
	AssignmentID string    `json:"assignment_id"`
	CourseID     string    `json:"course_id"`
	GroupID      string    `json:"group_id"`
	TeacherID    string    `json:"teacher_id"`
	RoomID       string    `json:"room_id"`
	TimeSlotID   string    `json:"time_slot_id"`
	Date         time.Time `json:"date"`
}

// GenerationFailure records one non-fatal scheduling miss.
type GenerationFailure struct {
	CourseID string     `json:"course_id"`
	GroupID  string     `json:"group_id"`
	Date     *time.Time `json:"date,omitempty"`
	Reason   string     `json:"reason"`
}

// GenerationResult aggregates the outcome of a generation run.
type GenerationResult struct {
	Sessions  []GeneratedSession  `json:"sessions"`
	Failures  []GenerationFailure `json:"failures"`
	Planned   int                 `json:"planned"`
	Failed    int                 `json:"failed"`
	Conflicts int                 `json:"conflicts"`
}
