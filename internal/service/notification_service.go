package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	BulkCreate(ctx context.Context, notifications []models.Notification) error
	ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationUserReader interface {
	ListIDsByRoles(ctx context.Context, roles []models.UserRole) ([]string, error)
}

type notificationTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type notificationAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type notificationQueue interface {
	Enqueue(job jobs.Job) error
}

const jobTypeNotificationBatch = "notification_batch"

// NotificationService delivers in-app notifications. Fan-out to multiple
// recipients goes through the background queue so callers never block on
// notification writes.
type NotificationService struct {
	repo        notificationRepository
	users       notificationUserReader
	teachers    notificationTeacherReader
	assignments notificationAssignmentReader
	queue       notificationQueue
	logger      *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, users notificationUserReader, teachers notificationTeacherReader, assignments notificationAssignmentReader, queue notificationQueue, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:        repo,
		users:       users,
		teachers:    teachers,
		assignments: assignments,
		queue:       queue,
		logger:      logger,
	}
}

// List returns the caller's notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	notifications, total, err := s.repo.ListByUser(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return notifications, pagination, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// NotifyConflict fans a freshly detected conflict out to the admins and to
// the teachers of the involved assignments. Implements ConflictNotifier.
func (s *NotificationService) NotifyConflict(ctx context.Context, conflict *models.Conflict, assignmentIDs []string) {
	recipients, err := s.conflictRecipients(ctx, assignmentIDs)
	if err != nil {
		s.logger.Warn("failed to resolve conflict recipients", zap.String("conflict_id", conflict.ID), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}
	batch := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		batch = append(batch, models.Notification{
			UserID:   userID,
			Title:    "Scheduling conflict detected",
			Message:  conflict.Description,
			Severity: models.NotificationSeverityWarning,
		})
	}
	s.dispatch(batch)
}

// NotifyReportDecision informs the requesting teacher of an admin decision
// on a postponement request.
func (s *NotificationService) NotifyReportDecision(ctx context.Context, request *models.ReportRequest, approved bool) {
	teacher, err := s.teachers.FindByID(ctx, request.TeacherID)
	if err != nil {
		s.logger.Warn("failed to load teacher for report decision", zap.String("report_id", request.ID), zap.Error(err))
		return
	}
	if teacher.UserID == nil {
		return
	}
	title := "Postponement request rejected"
	severity := models.NotificationSeverityInfo
	message := fmt.Sprintf("your postponement request for assignment %s was rejected", request.AssignmentID)
	if approved {
		title = "Postponement request approved"
		message = fmt.Sprintf("assignment %s was moved to %s", request.AssignmentID, request.RequestedDate.Format("2006-01-02"))
	}
	s.dispatch([]models.Notification{{
		UserID:   *teacher.UserID,
		Title:    title,
		Message:  message,
		Severity: severity,
	}})
}

// conflictRecipients collects admin user ids plus the linked teachers that
// have a user account, deduplicated.
func (s *NotificationService) conflictRecipients(ctx context.Context, assignmentIDs []string) ([]string, error) {
	adminIDs, err := s.users.ListIDsByRoles(ctx, []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	seen := make(map[string]struct{}, len(adminIDs))
	recipients := make([]string, 0, len(adminIDs))
	for _, id := range adminIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	for _, assignmentID := range assignmentIDs {
		assignment, err := s.assignments.FindByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("load assignment %s: %w", assignmentID, err)
		}
		teacher, err := s.teachers.FindByID(ctx, assignment.TeacherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("load teacher %s: %w", assignment.TeacherID, err)
		}
		if teacher.UserID == nil {
			continue
		}
		if _, ok := seen[*teacher.UserID]; ok {
			continue
		}
		seen[*teacher.UserID] = struct{}{}
		recipients = append(recipients, *teacher.UserID)
	}
	return recipients, nil
}

func (s *NotificationService) dispatch(batch []models.Notification) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeNotificationBatch,
		Payload: batch,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification batch", zap.Int("count", len(batch)), zap.Error(err))
	}
}

// NotificationWorker persists queued notification batches.
type NotificationWorker struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(repo notificationRepository, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{repo: repo, logger: logger}
}

// Handle processes one queued job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	batch, ok := job.Payload.([]models.Notification)
	if !ok {
		w.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if len(batch) == 0 {
		return nil
	}
	if err := w.repo.BulkCreate(ctx, batch); err != nil {
		return fmt.Errorf("persist notification batch: %w", err)
	}
	return nil
}
