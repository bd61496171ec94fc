package models

import "time"

// Course represents a course belonging to a program at a given level.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	ProgramID string    `db:"program_id" json:"program_id"`
	Level     string    `db:"level" json:"level"`
	Hours     int       `db:"hours" json:"hours"`
	Semester  string    `db:"semester" json:"semester"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	ProgramID string
	Level     string
	Semester  string
	Search    string
	Page      int
	PageSize  int
}
