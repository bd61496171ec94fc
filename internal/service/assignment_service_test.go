package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type asgRepoStub struct {
	assignments map[string]*models.Assignment
	nextID      int
}

func newAsgRepoStub(assignments ...models.Assignment) *asgRepoStub {
	stub := &asgRepoStub{assignments: make(map[string]*models.Assignment)}
	for i := range assignments {
		copied := assignments[i]
		stub.assignments[copied.ID] = &copied
	}
	return stub
}

func (s *asgRepoStub) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	var out []models.Assignment
	for _, assignment := range s.assignments {
		out = append(out, *assignment)
	}
	return out, len(out), nil
}

func (s *asgRepoStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *assignment
	return &copied, nil
}

func (s *asgRepoStub) Create(ctx context.Context, assignment *models.Assignment) error {
	s.nextID++
	assignment.ID = fmt.Sprintf("asg-%d", s.nextID)
	stored := *assignment
	s.assignments[assignment.ID] = &stored
	return nil
}

func (s *asgRepoStub) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := s.assignments[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *assignment
	s.assignments[assignment.ID] = &stored
	return nil
}

func (s *asgRepoStub) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	assignment, ok := s.assignments[id]
	if !ok {
		return sql.ErrNoRows
	}
	assignment.Status = status
	return nil
}

func (s *asgRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.assignments, id)
	return nil
}

type courseFinderStub struct {
	ids map[string]bool
}

func (s *courseFinderStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id}, nil
}

type groupFinderStub struct {
	ids map[string]bool
}

func (s *groupFinderStub) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Group{ID: id}, nil
}

type roomFinderStub struct {
	ids map[string]bool
}

func (s *roomFinderStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Room{ID: id}, nil
}

type teacherFinderStub struct {
	ids map[string]bool
}

func (s *teacherFinderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Teacher{ID: id, Active: true}, nil
}

type asgFixture struct {
	service     *AssignmentService
	repo        *asgRepoStub
	verifier    *verifierStub
	invalidator *invalidatorStub
}

func newAsgFixture(assignments ...models.Assignment) *asgFixture {
	repo := newAsgRepoStub(assignments...)
	verifier := &verifierStub{}
	invalidator := &invalidatorStub{}
	svc := NewAssignmentService(
		repo,
		&courseFinderStub{ids: map[string]bool{"course-1": true}},
		&groupFinderStub{ids: map[string]bool{"group-1": true}},
		&teacherFinderStub{ids: map[string]bool{"teacher-1": true}},
		&roomFinderStub{ids: map[string]bool{"room-1": true}},
		newSlotFinderStub(mondayMorning),
		verifier,
		invalidator,
		nil,
		nil,
	)
	return &asgFixture{service: svc, repo: repo, verifier: verifier, invalidator: invalidator}
}

func validAssignmentRequest() AssignmentRequest {
	return AssignmentRequest{
		CourseID:   "course-1",
		GroupID:    "group-1",
		TeacherID:  "teacher-1",
		RoomID:     "room-1",
		TimeSlotID: mondayMorning.ID,
		Date:       firstMonday().Format("2006-01-02"),
		CreatedBy:  "admin-1",
	}
}

func TestAssignmentCreateDefaultsToPlanned(t *testing.T) {
	fixture := newAsgFixture()

	assignment, conflicts, err := fixture.service.Create(context.Background(), validAssignmentRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusPlanned, assignment.Status)
	assert.Empty(t, conflicts)
	require.Len(t, fixture.verifier.verified, 1)
	assert.Equal(t, assignment.ID, fixture.verifier.verified[0].ID)
	assert.Equal(t, 1, fixture.invalidator.calls)
}

func TestAssignmentCreateRejectsWrongWeekday(t *testing.T) {
	fixture := newAsgFixture()
	req := validAssignmentRequest()
	req.Date = firstMonday().AddDate(0, 0, 1).Format("2006-01-02")

	_, _, err := fixture.service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fixture.verifier.verified)
}

func TestAssignmentCreateRejectsUnknownCourse(t *testing.T) {
	fixture := newAsgFixture()
	req := validAssignmentRequest()
	req.CourseID = "course-missing"

	_, _, err := fixture.service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateRejectsBadDate(t *testing.T) {
	fixture := newAsgFixture()
	req := validAssignmentRequest()
	req.Date = "07/09/2026"

	_, _, err := fixture.service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateRejectsUnknownStatus(t *testing.T) {
	fixture := newAsgFixture()
	req := validAssignmentRequest()
	req.Status = "PAUSED"

	_, _, err := fixture.service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentUpdateInvalidatesOldAndNewScopes(t *testing.T) {
	fixture := newAsgFixture(mondayAssignment())
	req := validAssignmentRequest()
	req.Date = firstMonday().AddDate(0, 0, 7).Format("2006-01-02")

	updated, _, err := fixture.service.Update(context.Background(), "asg-1", req)
	require.NoError(t, err)
	assert.Equal(t, firstMonday().AddDate(0, 0, 7), updated.Date)
	require.Len(t, fixture.verifier.verified, 1)
	assert.Equal(t, 2, fixture.invalidator.calls)
}

func TestAssignmentCancelledStatusIsFinal(t *testing.T) {
	cancelled := mondayAssignment()
	cancelled.Status = models.AssignmentStatusCancelled
	fixture := newAsgFixture(cancelled)

	_, err := fixture.service.UpdateStatus(context.Background(), "asg-1", string(models.AssignmentStatusConfirmed))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCancelReleasesScope(t *testing.T) {
	fixture := newAsgFixture(mondayAssignment())

	assignment, err := fixture.service.Cancel(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, assignment.Status)
	assert.Equal(t, 1, fixture.invalidator.calls)

	stored, err := fixture.repo.FindByID(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, stored.Status)
}

func TestAssignmentDeleteUnknown(t *testing.T) {
	fixture := newAsgFixture()

	err := fixture.service.Delete(context.Background(), "asg-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateRejectsMalformedSlotWeekday(t *testing.T) {
	badSlot := models.TimeSlot{ID: "slot-bad", Weekday: "SOMEDAY", StartTime: "08:00", EndTime: "10:00", DurationMinutes: 120}
	svc := NewAssignmentService(
		newAsgRepoStub(),
		&courseFinderStub{ids: map[string]bool{"course-1": true}},
		&groupFinderStub{ids: map[string]bool{"group-1": true}},
		&teacherFinderStub{ids: map[string]bool{"teacher-1": true}},
		&roomFinderStub{ids: map[string]bool{"room-1": true}},
		newSlotFinderStub(badSlot),
		&verifierStub{},
		&invalidatorStub{},
		nil,
		nil,
	)

	req := validAssignmentRequest()
	req.TimeSlotID = badSlot.ID
	_, _, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
