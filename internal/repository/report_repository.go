package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// ReportRepository persists postponement requests.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report request repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = "id, teacher_id, assignment_id, requested_date, reason, status, decided_by, decided_at, created_at, updated_at"

// List returns report requests matching the filter plus the total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportRequestFilter) ([]models.ReportRequest, int, error) {
	base := "FROM report_requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", reportColumns, base, size, offset)
	var requests []models.ReportRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list report requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count report requests: %w", err)
	}
	return requests, total, nil
}

// FindByID loads a report request by id.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM report_requests WHERE id = $1 LIMIT 1", reportColumns)
	var request models.ReportRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report request by id: %w", err)
	}
	return &request, nil
}

// ExistsPending reports whether the assignment already has a pending request.
func (r *ReportRepository) ExistsPending(ctx context.Context, assignmentID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM report_requests WHERE assignment_id = $1 AND status = 'PENDING')`, assignmentID); err != nil {
		return false, fmt.Errorf("check pending report request: %w", err)
	}
	return exists, nil
}

// Create stores a new report request.
func (r *ReportRepository) Create(ctx context.Context, request *models.ReportRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.ReportRequestStatusPending
	}

	const query = `INSERT INTO report_requests (id, teacher_id, assignment_id, requested_date, reason, status, decided_by, decided_at, created_at, updated_at)
VALUES (:id, :teacher_id, :assignment_id, :requested_date, :reason, :status, :decided_by, :decided_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create report request: %w", err)
	}
	return nil
}

// Decide records the decision on a pending request. Returns sql.ErrNoRows
// when the request is missing or already decided.
func (r *ReportRepository) Decide(ctx context.Context, id string, status models.ReportRequestStatus, decidedBy string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE report_requests SET status = $1, decided_by = $2, decided_at = $3, updated_at = $3 WHERE id = $4 AND status = 'PENDING'`, status, decidedBy, now, id)
	if err != nil {
		return fmt.Errorf("decide report request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide report request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a report request by id.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM report_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete report request: %w", err)
	}
	return nil
}
