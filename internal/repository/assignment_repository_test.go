package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs(sqlmock.AnyArg(), "course-1", "group-1", "teacher-1", "room-1", "slot-1", sqlmock.AnyArg(), "PLANNED", "admin-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.Assignment{
		CourseID:   "course-1",
		GroupID:    "group-1",
		TeacherID:  "teacher-1",
		RoomID:     "room-1",
		TimeSlotID: "slot-1",
		Date:       time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		CreatedBy:  "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.Equal(t, models.AssignmentStatusPlanned, assignment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListActiveInRange(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "course_id", "group_id", "teacher_id", "room_id", "time_slot_id", "date", "status", "created_by", "created_at", "updated_at"}).
		AddRow("asg-1", "course-1", "group-1", "teacher-1", "room-1", "slot-1", from.AddDate(0, 0, 6), "PLANNED", "admin-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE status <> 'CANCELLED' AND date >= $1 AND date <= $2 ORDER BY date ASC")).
		WithArgs(from, to).
		WillReturnRows(rows)

	assignments, err := repo.ListActiveInRange(context.Background(), from, to)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
	assert.Equal(t, "asg-1", assignments[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateDate(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	newDate := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET date = $1, status = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(newDate, models.AssignmentStatusPostponed, sqlmock.AnyArg(), "asg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateDate(context.Background(), "asg-1", newDate, models.AssignmentStatusPostponed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteActiveInScope(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE status <> 'CANCELLED' AND date >= $1 AND date <= $2 AND course_id = ANY($3)")).
		WithArgs(from, to, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.DeleteActiveInScope(context.Background(), from, to, []string{"course-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
