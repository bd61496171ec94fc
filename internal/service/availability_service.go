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

type availabilityRepository interface {
	List(ctx context.Context, filter models.AvailabilityFilter) ([]models.Availability, int, error)
	FindByID(ctx context.Context, id string) (*models.Availability, error)
	Create(ctx context.Context, record *models.Availability) error
	Update(ctx context.Context, record *models.Availability) error
	Delete(ctx context.Context, id string) error
}

type availabilityTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type availabilitySlotReader interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

// AvailabilityService manages teacher availability declarations.
type AvailabilityService struct {
	repo      availabilityRepository
	teachers  availabilityTeacherReader
	slots     availabilitySlotReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(repo availabilityRepository, teachers availabilityTeacherReader, slots availabilitySlotReader, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, teachers: teachers, slots: slots, validator: validate, logger: logger}
}

// AvailabilityRequest is the create/update payload.
type AvailabilityRequest struct {
	TeacherID  string    `json:"teacher_id" validate:"required"`
	TimeSlotID string    `json:"time_slot_id" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	Available  bool      `json:"available"`
	Reason     *string   `json:"reason"`
}

func (s *AvailabilityService) ensureReferences(ctx context.Context, req AvailabilityRequest) error {
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
	}
	if _, err := s.slots.FindByID(ctx, req.TimeSlotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "time slot does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time slot")
	}
	return nil
}

// List returns availability records.
func (s *AvailabilityService) List(ctx context.Context, filter models.AvailabilityFilter) ([]models.Availability, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return records, pagination, nil
}

// Get returns one record.
func (s *AvailabilityService) Get(ctx context.Context, id string) (*models.Availability, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get availability")
	}
	return record, nil
}

// Create registers an availability declaration.
func (s *AvailabilityService) Create(ctx context.Context, req AvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be on or after start_date")
	}
	if err := s.ensureReferences(ctx, req); err != nil {
		return nil, err
	}
	record := &models.Availability{
		TeacherID:  req.TeacherID,
		TimeSlotID: req.TimeSlotID,
		StartDate:  truncateToDay(req.StartDate),
		EndDate:    truncateToDay(req.EndDate),
		Available:  req.Available,
		Reason:     req.Reason,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
	}
	return record, nil
}

// Update modifies a record.
func (s *AvailabilityService) Update(ctx context.Context, id string, req AvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be on or after start_date")
	}
	if err := s.ensureReferences(ctx, req); err != nil {
		return nil, err
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	record.TeacherID = req.TeacherID
	record.TimeSlotID = req.TimeSlotID
	record.StartDate = truncateToDay(req.StartDate)
	record.EndDate = truncateToDay(req.EndDate)
	record.Available = req.Available
	record.Reason = req.Reason
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}
	return record, nil
}

// Delete removes a record.
func (s *AvailabilityService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}
	return nil
}
