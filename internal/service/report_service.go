package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type reportRepository interface {
	List(ctx context.Context, filter models.ReportRequestFilter) ([]models.ReportRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.ReportRequest, error)
	ExistsPending(ctx context.Context, assignmentID string) (bool, error)
	Create(ctx context.Context, request *models.ReportRequest) error
	Decide(ctx context.Context, id string, status models.ReportRequestStatus, decidedBy string) error
	Delete(ctx context.Context, id string) error
}

type reportAssignmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	UpdateDate(ctx context.Context, id string, date time.Time, status models.AssignmentStatus) error
}

// reportNotifier informs the requesting teacher once a request is decided.
type reportNotifier interface {
	NotifyReportDecision(ctx context.Context, request *models.ReportRequest, approved bool)
}

// ReportService handles teacher postponement requests. Approval moves the
// assignment to the requested date and re-runs conflict detection there.
type ReportService struct {
	repo        reportRepository
	assignments reportAssignmentStore
	slots       availabilitySlotReader
	verifier    assignmentVerifier
	invalidator timetableInvalidator
	notifier    reportNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(
	repo reportRepository,
	assignments reportAssignmentStore,
	slots availabilitySlotReader,
	verifier assignmentVerifier,
	invalidator timetableInvalidator,
	notifier reportNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:        repo,
		assignments: assignments,
		slots:       slots,
		verifier:    verifier,
		invalidator: invalidator,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// ReportRequestInput is the teacher-facing creation payload. TeacherID is
// injected from the JWT claims.
type ReportRequestInput struct {
	AssignmentID  string  `json:"assignment_id" validate:"required"`
	RequestedDate string  `json:"requested_date" validate:"required"`
	Reason        *string `json:"reason"`
	TeacherID     string  `json:"-"`
}

// List returns report requests matching the filter.
func (s *ReportService) List(ctx context.Context, filter models.ReportRequestFilter) ([]models.ReportRequest, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report requests")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return requests, pagination, nil
}

// Get returns one report request.
func (s *ReportService) Get(ctx context.Context, id string) (*models.ReportRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get report request")
	}
	return request, nil
}

// Create files a postponement request. One pending request is allowed per
// assignment; the requested date must fall on the assignment's slot weekday.
func (s *ReportService) Create(ctx context.Context, input ReportRequestInput) (*models.ReportRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	requestedDate, err := parseAssignmentDate(input.RequestedDate)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignments.FindByID(ctx, input.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assignment does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.TeacherID != input.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	if !assignment.Status.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is cancelled")
	}

	slot, err := s.slots.FindByID(ctx, assignment.TimeSlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	matches, err := dateMatchesSlot(requestedDate, *slot)
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested date does not fall on the slot weekday")
	}
	if sameDay(requestedDate, assignment.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested date matches the current date")
	}

	pending, err := s.repo.ExistsPending(ctx, input.AssignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists for this assignment")
	}

	request := &models.ReportRequest{
		TeacherID:     input.TeacherID,
		AssignmentID:  input.AssignmentID,
		RequestedDate: requestedDate,
		Reason:        input.Reason,
		Status:        models.ReportRequestStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report request")
	}
	return request, nil
}

// Approve accepts a pending request, moves the assignment to the requested
// date with the POSTPONED status and re-runs conflict detection.
func (s *ReportService) Approve(ctx context.Context, id, adminID string) (*models.ReportRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ReportRequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report request already decided")
	}

	assignment, err := s.assignments.FindByID(ctx, request.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if err := s.repo.Decide(ctx, id, models.ReportRequestStatusApproved, adminID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "report request already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve report request")
	}
	if err := s.assignments.UpdateDate(ctx, request.AssignmentID, request.RequestedDate, models.AssignmentStatusPostponed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move assignment")
	}

	now := time.Now().UTC()
	request.Status = models.ReportRequestStatusApproved
	request.DecidedBy = &adminID
	request.DecidedAt = &now

	moved := *assignment
	moved.Date = request.RequestedDate
	moved.Status = models.AssignmentStatusPostponed
	if s.verifier != nil {
		if _, err := s.verifier.VerifyAssignment(ctx, moved); err != nil {
			s.logger.Warn("conflict verification failed after approval",
				zap.String("report_id", id),
				zap.String("assignment_id", assignment.ID),
				zap.Error(err))
		}
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, assignment.GroupID, assignment.TeacherID, assignment.RoomID)
	}
	if s.notifier != nil {
		s.notifier.NotifyReportDecision(ctx, request, true)
	}
	return request, nil
}

// Reject declines a pending request. The assignment is untouched.
func (s *ReportService) Reject(ctx context.Context, id, adminID string) (*models.ReportRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ReportRequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report request already decided")
	}
	if err := s.repo.Decide(ctx, id, models.ReportRequestStatusRejected, adminID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "report request already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject report request")
	}

	now := time.Now().UTC()
	request.Status = models.ReportRequestStatusRejected
	request.DecidedBy = &adminID
	request.DecidedAt = &now
	if s.notifier != nil {
		s.notifier.NotifyReportDecision(ctx, request, false)
	}
	return request, nil
}

// Delete removes a pending request. Decided requests are kept for the audit
// trail.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	request, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if request.Status != models.ReportRequestStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "report request already decided")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report request")
	}
	return nil
}
