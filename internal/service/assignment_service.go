package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error
	Delete(ctx context.Context, id string) error
}

type assignmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type assignmentGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type assignmentRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// assignmentVerifier re-runs conflict detection around a written assignment.
type assignmentVerifier interface {
	VerifyAssignment(ctx context.Context, assignment models.Assignment) ([]models.Conflict, error)
}

// timetableInvalidator drops cached timetable views touching the given scopes.
type timetableInvalidator interface {
	Invalidate(ctx context.Context, groupID, teacherID, roomID string)
}

// AssignmentService manages manually created sessions. Every write re-runs
// conflict detection for the touched day and invalidates cached timetables.
type AssignmentService struct {
	repo        assignmentRepository
	courses     assignmentCourseReader
	groups      assignmentGroupReader
	teachers    availabilityTeacherReader
	rooms       assignmentRoomReader
	slots       availabilitySlotReader
	verifier    assignmentVerifier
	invalidator timetableInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(
	repo assignmentRepository,
	courses assignmentCourseReader,
	groups assignmentGroupReader,
	teachers availabilityTeacherReader,
	rooms assignmentRoomReader,
	slots availabilitySlotReader,
	verifier assignmentVerifier,
	invalidator timetableInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:        repo,
		courses:     courses,
		groups:      groups,
		teachers:    teachers,
		rooms:       rooms,
		slots:       slots,
		verifier:    verifier,
		invalidator: invalidator,
		validator:   validate,
		logger:      logger,
	}
}

// AssignmentRequest is the create/update payload. Date uses YYYY-MM-DD.
type AssignmentRequest struct {
	CourseID   string `json:"course_id" validate:"required"`
	GroupID    string `json:"group_id" validate:"required"`
	TeacherID  string `json:"teacher_id" validate:"required"`
	RoomID     string `json:"room_id" validate:"required"`
	TimeSlotID string `json:"time_slot_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Status     string `json:"status"`
	CreatedBy  string `json:"-"`
}

func parseAssignmentStatus(raw string) (models.AssignmentStatus, error) {
	switch models.AssignmentStatus(raw) {
	case models.AssignmentStatusPlanned, models.AssignmentStatusConfirmed,
		models.AssignmentStatusCancelled, models.AssignmentStatusPostponed:
		return models.AssignmentStatus(raw), nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assignment status %q", raw))
	}
}

func parseAssignmentDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(generationDateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}
	return date, nil
}

func (s *AssignmentService) ensureReferences(ctx context.Context, req AssignmentRequest) (*models.TimeSlot, error) {
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if _, err := s.groups.FindByID(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "group does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
	}
	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "room does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room")
	}
	slot, err := s.slots.FindByID(ctx, req.TimeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "time slot does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time slot")
	}
	return slot, nil
}

// verify re-runs conflict detection for the written assignment and drops the
// affected cached timetables. Detection failures are logged, not surfaced:
// the write already committed.
func (s *AssignmentService) verify(ctx context.Context, assignment *models.Assignment) []models.Conflict {
	var conflicts []models.Conflict
	if s.verifier != nil {
		detected, err := s.verifier.VerifyAssignment(ctx, *assignment)
		if err != nil {
			s.logger.Warn("conflict verification failed", zap.String("assignment_id", assignment.ID), zap.Error(err))
		} else {
			conflicts = detected
		}
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, assignment.GroupID, assignment.TeacherID, assignment.RoomID)
	}
	return conflicts
}

// List returns assignments matching the filter.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return assignments, pagination, nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get assignment")
	}
	return assignment, nil
}

// Create registers a session and reports any conflicts it introduces.
func (s *AssignmentService) Create(ctx context.Context, req AssignmentRequest) (*models.Assignment, []models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseAssignmentDate(req.Date)
	if err != nil {
		return nil, nil, err
	}
	slot, err := s.ensureReferences(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	matches, err := dateMatchesSlot(date, *slot)
	if err != nil {
		return nil, nil, err
	}
	if !matches {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date does not fall on the slot weekday")
	}
	status := models.AssignmentStatusPlanned
	if req.Status != "" {
		status, err = parseAssignmentStatus(req.Status)
		if err != nil {
			return nil, nil, err
		}
	}
	assignment := &models.Assignment{
		CourseID:   req.CourseID,
		GroupID:    req.GroupID,
		TeacherID:  req.TeacherID,
		RoomID:     req.RoomID,
		TimeSlotID: req.TimeSlotID,
		Date:       date,
		Status:     status,
		CreatedBy:  req.CreatedBy,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	conflicts := s.verify(ctx, assignment)
	return assignment, conflicts, nil
}

// Update modifies a session and reports any conflicts the new placement
// introduces. Cached timetables for both the old and new scopes are dropped.
func (s *AssignmentService) Update(ctx context.Context, id string, req AssignmentRequest) (*models.Assignment, []models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseAssignmentDate(req.Date)
	if err != nil {
		return nil, nil, err
	}
	slot, err := s.ensureReferences(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	matches, err := dateMatchesSlot(date, *slot)
	if err != nil {
		return nil, nil, err
	}
	if !matches {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date does not fall on the slot weekday")
	}
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	previous := *assignment
	assignment.CourseID = req.CourseID
	assignment.GroupID = req.GroupID
	assignment.TeacherID = req.TeacherID
	assignment.RoomID = req.RoomID
	assignment.TimeSlotID = req.TimeSlotID
	assignment.Date = date
	if req.Status != "" {
		status, err := parseAssignmentStatus(req.Status)
		if err != nil {
			return nil, nil, err
		}
		assignment.Status = status
	}
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, previous.GroupID, previous.TeacherID, previous.RoomID)
	}
	conflicts := s.verify(ctx, assignment)
	return assignment, conflicts, nil
}

// UpdateStatus transitions a session status. Cancelled sessions are final.
func (s *AssignmentService) UpdateStatus(ctx context.Context, id, rawStatus string) (*models.Assignment, error) {
	status, err := parseAssignmentStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status == models.AssignmentStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is cancelled")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment status")
	}
	assignment.Status = status
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, assignment.GroupID, assignment.TeacherID, assignment.RoomID)
	}
	return assignment, nil
}

// Cancel marks a session as cancelled, releasing its teacher, room and group.
func (s *AssignmentService) Cancel(ctx context.Context, id string) (*models.Assignment, error) {
	return s.UpdateStatus(ctx, id, string(models.AssignmentStatusCancelled))
}

// Delete removes a session.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, assignment.GroupID, assignment.TeacherID, assignment.RoomID)
	}
	return nil
}
