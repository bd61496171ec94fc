package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// AssignmentRepository provides persistence for scheduled sessions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = "id, course_id, group_id, teacher_id, room_id, time_slot_id, date, status, created_by, created_at, updated_at"

func buildAssignmentWhere(filter models.AssignmentFilter) (string, []interface{}) {
	base := "FROM assignments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if len(filter.CourseIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("course_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.CourseIDs))
	}
	if len(filter.GroupIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("group_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.GroupIDs))
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.TimeSlotID != "" {
		conditions = append(conditions, fmt.Sprintf("time_slot_id = $%d", len(args)+1))
		args = append(args, filter.TimeSlotID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}

// List returns assignments matching the filter plus the total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	base, args := buildAssignmentWhere(filter)

	sortBy := "date"
	switch filter.SortBy {
	case "date", "created_at", "status":
		sortBy = filter.SortBy
	}
	order := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", assignmentColumns, base, sortBy, order, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ListActiveInRange returns every non-cancelled assignment dated within
// [from, to], ordered by date ascending. This is the working set for both
// conflict detection and generation.
func (r *AssignmentRepository) ListActiveInRange(ctx context.Context, from, to time.Time) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE status <> 'CANCELLED' AND date >= $1 AND date <= $2 ORDER BY date ASC, created_at ASC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, from, to); err != nil {
		return nil, fmt.Errorf("list active assignments in range: %w", err)
	}
	return assignments, nil
}

// FindByID loads an assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE id = $1 LIMIT 1", assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// Create stores a new assignment record.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusPlanned
	}

	const query = `INSERT INTO assignments (id, course_id, group_id, teacher_id, room_id, time_slot_id, date, status, created_by, created_at, updated_at)
VALUES (:id, :course_id, :group_id, :teacher_id, :room_id, :time_slot_id, :date, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update modifies an assignment record.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET course_id = :course_id, group_id = :group_id, teacher_id = :teacher_id, room_id = :room_id, time_slot_id = :time_slot_id, date = :date, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// UpdateStatus sets only the lifecycle status of an assignment.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE assignments SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	return nil
}

// UpdateDate moves an assignment to a new date and marks it postponed.
func (r *AssignmentRepository) UpdateDate(ctx context.Context, id string, date time.Time, status models.AssignmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE assignments SET date = $1, status = $2, updated_at = $3 WHERE id = $4`, date, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update assignment date: %w", err)
	}
	return nil
}

// Delete removes an assignment by id.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// DeleteActiveInScope removes non-cancelled assignments in [from, to],
// optionally narrowed to specific courses and groups. Used by overwrite
// generation runs. Returns the number of rows removed.
func (r *AssignmentRepository) DeleteActiveInScope(ctx context.Context, from, to time.Time, courseIDs, groupIDs []string) (int64, error) {
	query := `DELETE FROM assignments WHERE status <> 'CANCELLED' AND date >= $1 AND date <= $2`
	args := []interface{}{from, to}
	if len(courseIDs) > 0 {
		query += fmt.Sprintf(" AND course_id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(courseIDs))
	}
	if len(groupIDs) > 0 {
		query += fmt.Sprintf(" AND group_id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(groupIDs))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete assignments in scope: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete assignments in scope: %w", err)
	}
	return affected, nil
}
