package models

import "time"

// Program represents a degree program offered by the university.
type Program struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramFilter captures filtering options for listing programs.
type ProgramFilter struct {
	Search   string
	Page     int
	PageSize int
}
