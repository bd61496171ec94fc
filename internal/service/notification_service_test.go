package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
)

type notifRepoStub struct {
	created []models.Notification
	read    []string
}

func (s *notifRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	s.created = append(s.created, *notification)
	return nil
}

func (s *notifRepoStub) BulkCreate(ctx context.Context, notifications []models.Notification) error {
	s.created = append(s.created, notifications...)
	return nil
}

func (s *notifRepoStub) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var out []models.Notification
	for _, n := range s.created {
		if n.UserID == filter.UserID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (s *notifRepoStub) MarkRead(ctx context.Context, id, userID string) error {
	for _, n := range s.created {
		if n.ID == id && n.UserID == userID {
			s.read = append(s.read, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *notifRepoStub) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}

type notifUserStub struct {
	adminIDs []string
}

func (s *notifUserStub) ListIDsByRoles(ctx context.Context, roles []models.UserRole) ([]string, error) {
	return s.adminIDs, nil
}

type notifTeacherStub struct {
	teachers map[string]models.Teacher
}

func (s *notifTeacherStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &teacher, nil
}

type notifAssignmentStub struct {
	assignments map[string]models.Assignment
}

func (s *notifAssignmentStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assignment, nil
}

type notifQueueStub struct {
	jobs []jobs.Job
}

func (s *notifQueueStub) Enqueue(job jobs.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func strPtr(v string) *string {
	return &v
}

func TestNotifyConflictFansOutToAdminsAndTeachers(t *testing.T) {
	queue := &notifQueueStub{}
	svc := NewNotificationService(
		&notifRepoStub{},
		&notifUserStub{adminIDs: []string{"admin-1", "admin-2"}},
		&notifTeacherStub{teachers: map[string]models.Teacher{
			"teacher-1": {ID: "teacher-1", UserID: strPtr("user-t1")},
			"teacher-2": {ID: "teacher-2"},
		}},
		&notifAssignmentStub{assignments: map[string]models.Assignment{
			"asg-1": {ID: "asg-1", TeacherID: "teacher-1"},
			"asg-2": {ID: "asg-2", TeacherID: "teacher-2"},
		}},
		queue,
		nil,
	)

	conflict := &models.Conflict{ID: "conf-1", Type: models.ConflictTypeRoom, Description: "room R1 booked twice"}
	svc.NotifyConflict(context.Background(), conflict, []string{"asg-1", "asg-2"})

	require.Len(t, queue.jobs, 1)
	batch, ok := queue.jobs[0].Payload.([]models.Notification)
	require.True(t, ok)

	recipients := make([]string, 0, len(batch))
	for _, n := range batch {
		recipients = append(recipients, n.UserID)
		assert.Equal(t, conflict.Description, n.Message)
		assert.Equal(t, models.NotificationSeverityWarning, n.Severity)
	}
	// teacher-2 has no user account and must be skipped.
	assert.ElementsMatch(t, []string{"admin-1", "admin-2", "user-t1"}, recipients)
}

func TestNotifyConflictDeduplicatesRecipients(t *testing.T) {
	queue := &notifQueueStub{}
	svc := NewNotificationService(
		&notifRepoStub{},
		&notifUserStub{adminIDs: []string{"user-t1"}},
		&notifTeacherStub{teachers: map[string]models.Teacher{
			"teacher-1": {ID: "teacher-1", UserID: strPtr("user-t1")},
		}},
		&notifAssignmentStub{assignments: map[string]models.Assignment{
			"asg-1": {ID: "asg-1", TeacherID: "teacher-1"},
		}},
		queue,
		nil,
	)

	svc.NotifyConflict(context.Background(), &models.Conflict{ID: "conf-1"}, []string{"asg-1"})

	require.Len(t, queue.jobs, 1)
	batch := queue.jobs[0].Payload.([]models.Notification)
	require.Len(t, batch, 1)
	assert.Equal(t, "user-t1", batch[0].UserID)
}

func TestNotifyReportDecisionSkipsTeachersWithoutAccount(t *testing.T) {
	queue := &notifQueueStub{}
	svc := NewNotificationService(
		&notifRepoStub{},
		&notifUserStub{},
		&notifTeacherStub{teachers: map[string]models.Teacher{
			"teacher-1": {ID: "teacher-1"},
		}},
		&notifAssignmentStub{},
		queue,
		nil,
	)

	request := &models.ReportRequest{ID: "req-1", TeacherID: "teacher-1", AssignmentID: "asg-1", RequestedDate: firstMonday()}
	svc.NotifyReportDecision(context.Background(), request, true)

	assert.Empty(t, queue.jobs)
}

func TestNotifyReportDecisionApproved(t *testing.T) {
	queue := &notifQueueStub{}
	svc := NewNotificationService(
		&notifRepoStub{},
		&notifUserStub{},
		&notifTeacherStub{teachers: map[string]models.Teacher{
			"teacher-1": {ID: "teacher-1", UserID: strPtr("user-t1")},
		}},
		&notifAssignmentStub{},
		queue,
		nil,
	)

	request := &models.ReportRequest{ID: "req-1", TeacherID: "teacher-1", AssignmentID: "asg-1", RequestedDate: firstMonday().AddDate(0, 0, 7)}
	svc.NotifyReportDecision(context.Background(), request, true)

	require.Len(t, queue.jobs, 1)
	batch := queue.jobs[0].Payload.([]models.Notification)
	require.Len(t, batch, 1)
	assert.Equal(t, "user-t1", batch[0].UserID)
	assert.Contains(t, batch[0].Message, request.RequestedDate.Format("2006-01-02"))
}

func TestNotificationWorkerPersistsBatch(t *testing.T) {
	repo := &notifRepoStub{}
	worker := NewNotificationWorker(repo, nil)

	batch := []models.Notification{
		{UserID: "user-1", Title: "t", Message: "m", Severity: models.NotificationSeverityInfo},
		{UserID: "user-2", Title: "t", Message: "m", Severity: models.NotificationSeverityInfo},
	}
	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: jobTypeNotificationBatch, Payload: batch})
	require.NoError(t, err)
	assert.Len(t, repo.created, 2)
}

func TestNotificationWorkerIgnoresUnknownPayload(t *testing.T) {
	repo := &notifRepoStub{}
	worker := NewNotificationWorker(repo, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: jobTypeNotificationBatch, Payload: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, repo.created)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	repo := &notifRepoStub{created: []models.Notification{{ID: "n-1", UserID: "user-1"}}}
	svc := NewNotificationService(repo, &notifUserStub{}, &notifTeacherStub{}, &notifAssignmentStub{}, &notifQueueStub{}, nil)

	err := svc.MarkRead(context.Background(), "n-1", "user-2")
	require.Error(t, err)
	assert.Equal(t, "notification not found", err.Error())

	err = svc.MarkRead(context.Background(), "n-1", "user-1")
	require.NoError(t, err)
}
