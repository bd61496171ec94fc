package dto

import "time"

// TimetableEntry is one denormalised row of a group or teacher timetable.
type TimetableEntry struct {
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	CourseName   string    `json:"course_name" db:"course_name"`
	GroupName    string    `json:"group_name" db:"group_name"`
	TeacherName  string    `json:"teacher_name" db:"teacher_name"`
	RoomName     string    `json:"room_name" db:"room_name"`
	Weekday      string    `json:"weekday" db:"weekday"`
	StartTime    string    `json:"start_time" db:"start_time"`
	EndTime      string    `json:"end_time" db:"end_time"`
	Date         time.Time `json:"date" db:"date"`
	Status       string    `json:"status" db:"status"`
}
