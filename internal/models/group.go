package models

import "time"

// Group represents a cohort of students following a program at a given level.
type Group struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	ProgramID    string    `db:"program_id" json:"program_id"`
	Level        string    `db:"level" json:"level"`
	Effectif     int       `db:"effectif" json:"effectif"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GroupFilter captures filtering options for listing groups.
type GroupFilter struct {
	ProgramID    string
	Level        string
	AcademicYear string
	Page         int
	PageSize     int
}
