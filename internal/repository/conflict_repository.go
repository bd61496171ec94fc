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

// ConflictRepository persists detected conflicts and their assignment links.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository creates a new conflict repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

const conflictColumns = "id, type, description, resolved, detected_at, resolved_at, resolved_by, created_at"

// Create stores a conflict and its two assignment links in one transaction.
func (r *ConflictRepository) Create(ctx context.Context, conflict *models.Conflict, assignmentIDs []string) error {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = now
	}
	if conflict.DetectedAt.IsZero() {
		conflict.DetectedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create conflict: begin tx: %w", err)
	}
	defer tx.Rollback()

	const insertConflict = `INSERT INTO conflicts (id, type, description, resolved, detected_at, resolved_at, resolved_by, created_at)
VALUES (:id, :type, :description, :resolved, :detected_at, :resolved_at, :resolved_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertConflict, conflict); err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}

	for _, assignmentID := range assignmentIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO conflict_assignments (conflict_id, assignment_id) VALUES ($1, $2)`, conflict.ID, assignmentID); err != nil {
			return fmt.Errorf("create conflict link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create conflict: commit: %w", err)
	}
	return nil
}

// ExistsUnresolved reports whether an open conflict of the given type already
// links any of the given assignments.
func (r *ConflictRepository) ExistsUnresolved(ctx context.Context, conflictType models.ConflictType, assignmentIDs []string) (bool, error) {
	const query = `SELECT EXISTS (
SELECT 1 FROM conflicts c
JOIN conflict_assignments ca ON ca.conflict_id = c.id
WHERE c.type = $1 AND c.resolved = FALSE AND ca.assignment_id = ANY($2)
)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, conflictType, pq.Array(assignmentIDs)); err != nil {
		return false, fmt.Errorf("check unresolved conflict: %w", err)
	}
	return exists, nil
}

// List returns conflicts matching the filter plus the total count.
func (r *ConflictRepository) List(ctx context.Context, filter models.ConflictFilter) ([]models.Conflict, int, error) {
	base := "FROM conflicts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Resolved != nil {
		conditions = append(conditions, fmt.Sprintf("resolved = $%d", len(args)+1))
		args = append(args, *filter.Resolved)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY detected_at DESC LIMIT %d OFFSET %d", conflictColumns, base, size, offset)
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conflicts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conflicts: %w", err)
	}
	return conflicts, total, nil
}

// FindByID loads a conflict by id.
func (r *ConflictRepository) FindByID(ctx context.Context, id string) (*models.Conflict, error) {
	query := fmt.Sprintf("SELECT %s FROM conflicts WHERE id = $1 LIMIT 1", conflictColumns)
	var conflict models.Conflict
	if err := r.db.GetContext(ctx, &conflict, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conflict by id: %w", err)
	}
	return &conflict, nil
}

// ListLinks returns the assignment ids linked to a conflict.
func (r *ConflictRepository) ListLinks(ctx context.Context, conflictID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT assignment_id FROM conflict_assignments WHERE conflict_id = $1`, conflictID); err != nil {
		return nil, fmt.Errorf("list conflict links: %w", err)
	}
	return ids, nil
}

// Resolve marks a conflict resolved, recording who resolved it and when.
// Returns sql.ErrNoRows when the conflict does not exist or is already
// resolved.
func (r *ConflictRepository) Resolve(ctx context.Context, id, resolvedBy string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conflicts SET resolved = TRUE, resolved_at = $1, resolved_by = $2 WHERE id = $3 AND resolved = FALSE`, time.Now().UTC(), resolvedBy, id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a conflict and its links.
func (r *ConflictRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete conflict: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conflict_assignments WHERE conflict_id = $1`, id); err != nil {
		return fmt.Errorf("delete conflict links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conflicts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete conflict: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete conflict: commit: %w", err)
	}
	return nil
}
