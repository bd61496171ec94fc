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

// AvailabilityRepository provides persistence for teacher availability records.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = "id, teacher_id, time_slot_id, start_date, end_date, available, reason, created_at, updated_at"

// List returns availability records with optional filtering and pagination.
func (r *AvailabilityRepository) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.Availability, int, error) {
	base := "FROM availabilities WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.TimeSlotID != "" {
		conditions = append(conditions, fmt.Sprintf("time_slot_id = $%d", len(args)+1))
		args = append(args, filter.TimeSlotID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date ASC LIMIT %d OFFSET %d", availabilityColumns, base, size, offset)
	var records []models.Availability
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list availabilities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count availabilities: %w", err)
	}
	return records, total, nil
}

// ListInRange returns every record whose date range intersects [from, to].
func (r *AvailabilityRepository) ListInRange(ctx context.Context, from, to time.Time) ([]models.Availability, error) {
	query := fmt.Sprintf("SELECT %s FROM availabilities WHERE end_date >= $1 AND start_date <= $2", availabilityColumns)
	var records []models.Availability
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("list availabilities in range: %w", err)
	}
	return records, nil
}

// FindByID loads an availability record by id.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.Availability, error) {
	query := fmt.Sprintf("SELECT %s FROM availabilities WHERE id = $1 LIMIT 1", availabilityColumns)
	var record models.Availability
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability by id: %w", err)
	}
	return &record, nil
}

// Create stores a new availability record.
func (r *AvailabilityRepository) Create(ctx context.Context, record *models.Availability) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO availabilities (id, teacher_id, time_slot_id, start_date, end_date, available, reason, created_at, updated_at)
VALUES (:id, :teacher_id, :time_slot_id, :start_date, :end_date, :available, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Update modifies an availability record.
func (r *AvailabilityRepository) Update(ctx context.Context, record *models.Availability) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availabilities SET teacher_id = :teacher_id, time_slot_id = :time_slot_id, start_date = :start_date, end_date = :end_date, available = :available, reason = :reason, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	return nil
}

// Delete removes an availability record by id.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}
