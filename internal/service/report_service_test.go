package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type reportRepoStub struct {
	requests map[string]*models.ReportRequest
	nextID   int
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{requests: make(map[string]*models.ReportRequest)}
}

func (s *reportRepoStub) List(ctx context.Context, filter models.ReportRequestFilter) ([]models.ReportRequest, int, error) {
	var out []models.ReportRequest
	for _, request := range s.requests {
		out = append(out, *request)
	}
	return out, len(out), nil
}

func (s *reportRepoStub) FindByID(ctx context.Context, id string) (*models.ReportRequest, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (s *reportRepoStub) ExistsPending(ctx context.Context, assignmentID string) (bool, error) {
	for _, request := range s.requests {
		if request.AssignmentID == assignmentID && request.Status == models.ReportRequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *reportRepoStub) Create(ctx context.Context, request *models.ReportRequest) error {
	s.nextID++
	request.ID = fmt.Sprintf("req-%d", s.nextID)
	stored := *request
	s.requests[request.ID] = &stored
	return nil
}

func (s *reportRepoStub) Decide(ctx context.Context, id string, status models.ReportRequestStatus, decidedBy string) error {
	request, ok := s.requests[id]
	if !ok || request.Status != models.ReportRequestStatusPending {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	request.Status = status
	request.DecidedBy = &decidedBy
	request.DecidedAt = &now
	return nil
}

func (s *reportRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.requests, id)
	return nil
}

type reportAssignmentStoreStub struct {
	assignments map[string]*models.Assignment
	moved       []string
}

func newReportAssignmentStoreStub(assignments ...models.Assignment) *reportAssignmentStoreStub {
	stub := &reportAssignmentStoreStub{assignments: make(map[string]*models.Assignment)}
	for i := range assignments {
		copied := assignments[i]
		stub.assignments[copied.ID] = &copied
	}
	return stub
}

func (s *reportAssignmentStoreStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *assignment
	return &copied, nil
}

func (s *reportAssignmentStoreStub) UpdateDate(ctx context.Context, id string, date time.Time, status models.AssignmentStatus) error {
	assignment, ok := s.assignments[id]
	if !ok {
		return sql.ErrNoRows
	}
	assignment.Date = date
	assignment.Status = status
	s.moved = append(s.moved, id)
	return nil
}

type slotFinderStub struct {
	slots map[string]models.TimeSlot
}

func newSlotFinderStub(slots ...models.TimeSlot) *slotFinderStub {
	stub := &slotFinderStub{slots: make(map[string]models.TimeSlot)}
	for _, slot := range slots {
		stub.slots[slot.ID] = slot
	}
	return stub
}

func (s *slotFinderStub) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

type verifierStub struct {
	verified []models.Assignment
}

func (v *verifierStub) VerifyAssignment(ctx context.Context, assignment models.Assignment) ([]models.Conflict, error) {
	v.verified = append(v.verified, assignment)
	return nil, nil
}

type invalidatorStub struct {
	calls int
}

func (i *invalidatorStub) Invalidate(ctx context.Context, groupID, teacherID, roomID string) {
	i.calls++
}

type decisionNotifierStub struct {
	decisions []bool
}

func (n *decisionNotifierStub) NotifyReportDecision(ctx context.Context, request *models.ReportRequest, approved bool) {
	n.decisions = append(n.decisions, approved)
}

type reportFixture struct {
	service     *ReportService
	repo        *reportRepoStub
	assignments *reportAssignmentStoreStub
	verifier    *verifierStub
	invalidator *invalidatorStub
	notifier    *decisionNotifierStub
}

func newReportFixture(assignments ...models.Assignment) *reportFixture {
	repo := newReportRepoStub()
	store := newReportAssignmentStoreStub(assignments...)
	verifier := &verifierStub{}
	invalidator := &invalidatorStub{}
	notifier := &decisionNotifierStub{}
	svc := NewReportService(repo, store, newSlotFinderStub(mondayMorning), verifier, invalidator, notifier, nil, nil)
	return &reportFixture{
		service:     svc,
		repo:        repo,
		assignments: store,
		verifier:    verifier,
		invalidator: invalidator,
		notifier:    notifier,
	}
}

func mondayAssignment() models.Assignment {
	return models.Assignment{
		ID:         "asg-1",
		CourseID:   "course-1",
		GroupID:    "group-1",
		TeacherID:  "teacher-1",
		RoomID:     "room-1",
		TimeSlotID: mondayMorning.ID,
		Date:       firstMonday(),
		Status:     models.AssignmentStatusPlanned,
	}
}

func TestReportCreateFilesPendingRequest(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())
	nextMonday := firstMonday().AddDate(0, 0, 7)

	request, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: nextMonday.Format("2006-01-02"),
		TeacherID:     "teacher-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportRequestStatusPending, request.Status)
	assert.True(t, request.RequestedDate.Equal(nextMonday))
}

func TestReportCreateRejectsForeignAssignment(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())

	_, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: firstMonday().AddDate(0, 0, 7).Format("2006-01-02"),
		TeacherID:     "teacher-2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportCreateRejectsWrongWeekday(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())

	// A Tuesday cannot host a Monday slot.
	_, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: firstMonday().AddDate(0, 0, 1).Format("2006-01-02"),
		TeacherID:     "teacher-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportCreateRejectsDuplicatePending(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())
	input := ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: firstMonday().AddDate(0, 0, 7).Format("2006-01-02"),
		TeacherID:     "teacher-1",
	}

	_, err := fixture.service.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = fixture.service.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReportApproveMovesAssignment(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())
	nextMonday := firstMonday().AddDate(0, 0, 7)

	request, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: nextMonday.Format("2006-01-02"),
		TeacherID:     "teacher-1",
	})
	require.NoError(t, err)

	decided, err := fixture.service.Approve(context.Background(), request.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportRequestStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, "admin-1", *decided.DecidedBy)

	moved, err := fixture.assignments.FindByID(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.True(t, moved.Date.Equal(nextMonday))
	assert.Equal(t, models.AssignmentStatusPostponed, moved.Status)

	require.Len(t, fixture.verifier.verified, 1)
	assert.True(t, fixture.verifier.verified[0].Date.Equal(nextMonday))
	assert.Equal(t, 1, fixture.invalidator.calls)
	assert.Equal(t, []bool{true}, fixture.notifier.decisions)
}

func TestReportApproveOnlyOnce(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())

	request, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: firstMonday().AddDate(0, 0, 7).Format("2006-01-02"),
		TeacherID:     "teacher-1",
	})
	require.NoError(t, err)

	_, err = fixture.service.Approve(context.Background(), request.ID, "admin-1")
	require.NoError(t, err)

	_, err = fixture.service.Approve(context.Background(), request.ID, "admin-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReportRejectKeepsAssignment(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())

	request, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: firstMonday().AddDate(0, 0, 7).Format("2006-01-02"),
		TeacherID:     "teacher-1",
	})
	require.NoError(t, err)

	decided, err := fixture.service.Reject(context.Background(), request.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportRequestStatusRejected, decided.Status)

	untouched, err := fixture.assignments.FindByID(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.True(t, untouched.Date.Equal(firstMonday()))
	assert.Equal(t, models.AssignmentStatusPlanned, untouched.Status)
	assert.Empty(t, fixture.assignments.moved)
	assert.Equal(t, []bool{false}, fixture.notifier.decisions)
}

func TestReportDeleteOnlyPending(t *testing.T) {
	fixture := newReportFixture(mondayAssignment())

	request, err := fixture.service.Create(context.Background(), ReportRequestInput{
		AssignmentID:  "asg-1",
		RequestedDate: firstMonday().AddDate(0, 0, 7).Format("2006-01-02"),
		TeacherID:     "teacher-1",
	})
	require.NoError(t, err)

	_, err = fixture.service.Reject(context.Background(), request.ID, "admin-1")
	require.NoError(t, err)

	err = fixture.service.Delete(context.Background(), request.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
