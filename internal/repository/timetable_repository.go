package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
)

// TimetableRepository reads denormalised timetable rows for display and export.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableSelect = `SELECT
a.id AS assignment_id,
c.name AS course_name,
g.name AS group_name,
t.full_name AS teacher_name,
r.name AS room_name,
ts.weekday AS weekday,
ts.start_time AS start_time,
ts.end_time AS end_time,
a.date AS date,
a.status AS status
FROM assignments a
JOIN courses c ON c.id = a.course_id
JOIN groups g ON g.id = a.group_id
JOIN teachers t ON t.id = a.teacher_id
JOIN rooms r ON r.id = a.room_id
JOIN time_slots ts ON ts.id = a.time_slot_id`

// ForGroup returns the active timetable of a group within [from, to].
func (r *TimetableRepository) ForGroup(ctx context.Context, groupID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	query := timetableSelect + ` WHERE a.group_id = $1 AND a.status <> 'CANCELLED' AND a.date >= $2 AND a.date <= $3 ORDER BY a.date ASC, ts.start_time ASC`
	var entries []dto.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, groupID, from, to); err != nil {
		return nil, fmt.Errorf("timetable for group: %w", err)
	}
	return entries, nil
}

// ForTeacher returns the active timetable of a teacher within [from, to].
func (r *TimetableRepository) ForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	query := timetableSelect + ` WHERE a.teacher_id = $1 AND a.status <> 'CANCELLED' AND a.date >= $2 AND a.date <= $3 ORDER BY a.date ASC, ts.start_time ASC`
	var entries []dto.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("timetable for teacher: %w", err)
	}
	return entries, nil
}

// ForRoom returns the active timetable of a room within [from, to].
func (r *TimetableRepository) ForRoom(ctx context.Context, roomID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	query := timetableSelect + ` WHERE a.room_id = $1 AND a.status <> 'CANCELLED' AND a.date >= $2 AND a.date <= $3 ORDER BY a.date ASC, ts.start_time ASC`
	var entries []dto.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, roomID, from, to); err != nil {
		return nil, fmt.Errorf("timetable for room: %w", err)
	}
	return entries, nil
}
