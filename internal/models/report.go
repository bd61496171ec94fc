package models

import "time"

// ReportRequestStatus represents the decision state of a postponement request.
type ReportRequestStatus string

const (
	ReportRequestStatusPending  ReportRequestStatus = "PENDING"
	ReportRequestStatusApproved ReportRequestStatus = "APPROVED"
	ReportRequestStatusRejected ReportRequestStatus = "REJECTED"
)

// ReportRequest is a teacher request to move an assignment to a new date.
// Approval mutates the assignment date and re-runs conflict detection.
type ReportRequest struct {
	ID            string              `db:"id" json:"id"`
	TeacherID     string              `db:"teacher_id" json:"teacher_id"`
	AssignmentID  string              `db:"assignment_id" json:"assignment_id"`
	RequestedDate time.Time           `db:"requested_date" json:"requested_date"`
	Reason        *string             `db:"reason" json:"reason,omitempty"`
	Status        ReportRequestStatus `db:"status" json:"status"`
	DecidedBy     *string             `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt     *time.Time          `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// ReportRequestFilter captures filtering options for listing report requests.
type ReportRequestFilter struct {
	TeacherID    string
	AssignmentID string
	Status       ReportRequestStatus
	Page         int
	PageSize     int
}
