package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
}

type groupProgramReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// GroupService manages student groups.
type GroupService struct {
	repo      groupRepository
	programs  groupProgramReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs the service.
func NewGroupService(repo groupRepository, programs groupProgramReader, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, programs: programs, validator: validate, logger: logger}
}

// GroupRequest is the create/update payload.
type GroupRequest struct {
	Name         string `json:"name" validate:"required"`
	ProgramID    string `json:"program_id" validate:"required"`
	Level        string `json:"level" validate:"required"`
	Effectif     int    `json:"effectif" validate:"required,gt=0"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

func (s *GroupService) ensureProgram(ctx context.Context, programID string) error {
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "program does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program")
	}
	return nil
}

// List returns groups matching the filter.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	groups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return groups, pagination, nil
}

// Get returns one group.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get group")
	}
	return group, nil
}

// Create registers a group.
func (s *GroupService) Create(ctx context.Context, req GroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.ensureProgram(ctx, req.ProgramID); err != nil {
		return nil, err
	}
	group := &models.Group{
		Name:         req.Name,
		ProgramID:    req.ProgramID,
		Level:        req.Level,
		Effectif:     req.Effectif,
		AcademicYear: req.AcademicYear,
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// Update modifies a group.
func (s *GroupService) Update(ctx context.Context, id string, req GroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.ensureProgram(ctx, req.ProgramID); err != nil {
		return nil, err
	}
	group, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Name = req.Name
	group.ProgramID = req.ProgramID
	group.Level = req.Level
	group.Effectif = req.Effectif
	group.AcademicYear = req.AcademicYear
	if err := s.repo.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return group, nil
}

// Delete removes a group.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}
