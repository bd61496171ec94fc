package models

import "time"

// AssignmentStatus represents the lifecycle of a scheduled session.
type AssignmentStatus string

const (
	AssignmentStatusPlanned   AssignmentStatus = "PLANNED"
	AssignmentStatusConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
	AssignmentStatusPostponed AssignmentStatus = "POSTPONED"
)

// Active reports whether the status still occupies its teacher, room and group.
func (s AssignmentStatus) Active() bool {
	return s != AssignmentStatusCancelled
}

// Assignment is one scheduled session of a course for a group, bound to a
// teacher, room, time slot and concrete date.
type Assignment struct {
	ID         string           `db:"id" json:"id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	GroupID    string           `db:"group_id" json:"group_id"`
	TeacherID  string           `db:"teacher_id" json:"teacher_id"`
	RoomID     string           `db:"room_id" json:"room_id"`
	TimeSlotID string           `db:"time_slot_id" json:"time_slot_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AssignmentStatus `db:"status" json:"status"`
	CreatedBy  string           `db:"created_by" json:"created_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter captures filtering options for listing assignments.
type AssignmentFilter struct {
	CourseIDs  []string
	GroupIDs   []string
	TeacherID  string
	RoomID     string
	TimeSlotID string
	DateFrom   *time.Time
	DateTo     *time.Time
	Statuses   []AssignmentStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
