package models

import "time"

// Student represents an enrolled student record.
type Student struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Registration string    `db:"registration" json:"registration"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	GroupID      *string   `db:"group_id" json:"group_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	Search   string
	GroupID  string
	Page     int
	PageSize int
}
