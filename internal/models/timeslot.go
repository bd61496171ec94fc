package models

import "time"

// Weekday names stored for time slots, Monday first.
const (
	WeekdayMonday    = "MONDAY"
	WeekdayTuesday   = "TUESDAY"
	WeekdayWednesday = "WEDNESDAY"
	WeekdayThursday  = "THURSDAY"
	WeekdayFriday    = "FRIDAY"
	WeekdaySaturday  = "SATURDAY"
	WeekdaySunday    = "SUNDAY"
)

// TimeSlot represents a recurring weekly time window.
type TimeSlot struct {
	ID              string    `db:"id" json:"id"`
	Weekday         string    `db:"weekday" json:"weekday"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlotFilter captures filtering options for listing time slots.
type TimeSlotFilter struct {
	Weekday  string
	Page     int
	PageSize int
}
