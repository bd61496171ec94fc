package models

import "time"

// NotificationSeverity classifies how urgent a notification is.
type NotificationSeverity string

const (
	NotificationSeverityInfo     NotificationSeverity = "INFO"
	NotificationSeverityWarning  NotificationSeverity = "WARNING"
	NotificationSeverityCritical NotificationSeverity = "CRITICAL"
)

// Notification is an in-app message delivered to a user.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Severity  NotificationSeverity `db:"severity" json:"severity"`
	Read      bool                 `db:"read" json:"read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter captures filtering options for listing notifications.
type NotificationFilter struct {
	UserID   string
	Unread   *bool
	Page     int
	PageSize int
}
