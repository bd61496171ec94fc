package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

func newConflictRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestConflictRepositoryCreateWithLinks(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conflicts")).
		WithArgs(sqlmock.AnyArg(), "ROOM", "room double booked", false, sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conflict_assignments (conflict_id, assignment_id) VALUES ($1, $2)")).
		WithArgs(sqlmock.AnyArg(), "asg-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conflict_assignments (conflict_id, assignment_id) VALUES ($1, $2)")).
		WithArgs(sqlmock.AnyArg(), "asg-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	conflict := &models.Conflict{
		Type:        models.ConflictTypeRoom,
		Description: "room double booked",
	}
	require.NoError(t, repo.Create(context.Background(), conflict, []string{"asg-1", "asg-2"}))
	assert.NotEmpty(t, conflict.ID)
	assert.False(t, conflict.DetectedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryExistsUnresolved(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(models.ConflictTypeTeacher, sqlmock.AnyArg()).
		WillReturnRows(rows)

	exists, err := repo.ExistsUnresolved(context.Background(), models.ConflictTypeTeacher, []string{"asg-1", "asg-2"})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE conflicts SET resolved = TRUE, resolved_at = $1, resolved_by = $2 WHERE id = $3 AND resolved = FALSE")).
		WithArgs(sqlmock.AnyArg(), "admin-1", "conf-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Resolve(context.Background(), "conf-1", "admin-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryResolveAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE conflicts SET resolved = TRUE")).
		WithArgs(sqlmock.AnyArg(), "admin-1", "conf-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Resolve(context.Background(), "conf-1", "admin-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryList(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	resolved := false
	rows := sqlmock.NewRows([]string{"id", "type", "description", "resolved", "detected_at", "resolved_at", "resolved_by", "created_at"}).
		AddRow("conf-1", "GROUP", "group double booked", false, time.Now(), nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM conflicts WHERE 1=1 AND resolved = $1 ORDER BY detected_at DESC")).
		WithArgs(false).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conflicts WHERE 1=1 AND resolved = $1")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	conflicts, total, err := repo.List(context.Background(), models.ConflictFilter{Resolved: &resolved})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTypeGroup, conflicts[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
