package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type conflictRepoStub struct {
	conflicts map[string]*models.Conflict
	links     map[string][]string
	created   []models.Conflict
}

func newConflictRepoStub() *conflictRepoStub {
	return &conflictRepoStub{
		conflicts: make(map[string]*models.Conflict),
		links:     make(map[string][]string),
	}
}

func (s *conflictRepoStub) Create(ctx context.Context, conflict *models.Conflict, assignmentIDs []string) error {
	if conflict.ID == "" {
		conflict.ID = "conf-" + conflict.Description
	}
	stored := *conflict
	s.conflicts[conflict.ID] = &stored
	s.links[conflict.ID] = assignmentIDs
	s.created = append(s.created, stored)
	return nil
}

func (s *conflictRepoStub) ExistsUnresolved(ctx context.Context, conflictType models.ConflictType, assignmentIDs []string) (bool, error) {
	for id, conflict := range s.conflicts {
		if conflict.Type != conflictType || conflict.Resolved {
			continue
		}
		for _, linked := range s.links[id] {
			for _, candidate := range assignmentIDs {
				if linked == candidate {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (s *conflictRepoStub) List(ctx context.Context, filter models.ConflictFilter) ([]models.Conflict, int, error) {
	var out []models.Conflict
	for _, conflict := range s.conflicts {
		out = append(out, *conflict)
	}
	return out, len(out), nil
}

func (s *conflictRepoStub) FindByID(ctx context.Context, id string) (*models.Conflict, error) {
	conflict, ok := s.conflicts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *conflict
	return &copied, nil
}

func (s *conflictRepoStub) ListLinks(ctx context.Context, conflictID string) ([]string, error) {
	return s.links[conflictID], nil
}

func (s *conflictRepoStub) Resolve(ctx context.Context, id, resolvedBy string) error {
	conflict, ok := s.conflicts[id]
	if !ok || conflict.Resolved {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	conflict.Resolved = true
	conflict.ResolvedAt = &now
	conflict.ResolvedBy = &resolvedBy
	return nil
}

type assignmentReaderStub struct {
	assignments []models.Assignment
}

func (s *assignmentReaderStub) ListActiveInRange(ctx context.Context, from, to time.Time) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.Status.Active() && !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

type slotReaderStub struct {
	slots []models.TimeSlot
}

func (s *slotReaderStub) ListAll(ctx context.Context) ([]models.TimeSlot, error) {
	return s.slots, nil
}

type notifierStub struct {
	notified []string
}

func (n *notifierStub) NotifyConflict(ctx context.Context, conflict *models.Conflict, assignmentIDs []string) {
	n.notified = append(n.notified, conflict.ID)
}

func slotIndexOf(slots ...models.TimeSlot) map[string]models.TimeSlot {
	indexed := make(map[string]models.TimeSlot, len(slots))
	for _, slot := range slots {
		indexed[slot.ID] = slot
	}
	return indexed
}

func TestDetectPairSharedDimensions(t *testing.T) {
	monday := firstMonday()
	slots := slotIndexOf(mondayMorning, mondayLate)

	base := models.Assignment{
		ID: "asg-1", CourseID: "c1", GroupID: "g1", TeacherID: "t1", RoomID: "r1",
		TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned,
	}
	other := models.Assignment{
		ID: "asg-2", CourseID: "c2", GroupID: "g1", TeacherID: "t1", RoomID: "r1",
		TimeSlotID: mondayLate.ID, Date: monday, Status: models.AssignmentStatusPlanned,
	}

	candidates := detectPair(base, other, slots)
	require.Len(t, candidates, 3)
	assert.Equal(t, models.ConflictTypeRoom, candidates[0].Type)
	assert.Equal(t, models.ConflictTypeTeacher, candidates[1].Type)
	assert.Equal(t, models.ConflictTypeGroup, candidates[2].Type)
}

func TestDetectPairNoSharedResource(t *testing.T) {
	monday := firstMonday()
	slots := slotIndexOf(mondayMorning, mondayLate)

	a := models.Assignment{ID: "asg-1", GroupID: "g1", TeacherID: "t1", RoomID: "r1", TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned}
	b := models.Assignment{ID: "asg-2", GroupID: "g2", TeacherID: "t2", RoomID: "r2", TimeSlotID: mondayLate.ID, Date: monday, Status: models.AssignmentStatusPlanned}
	assert.Empty(t, detectPair(a, b, slots))
}

func TestDetectPairIgnoresCancelledAndOtherDates(t *testing.T) {
	monday := firstMonday()
	slots := slotIndexOf(mondayMorning)

	a := models.Assignment{ID: "asg-1", GroupID: "g1", TeacherID: "t1", RoomID: "r1", TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned}
	cancelled := a
	cancelled.ID = "asg-2"
	cancelled.Status = models.AssignmentStatusCancelled
	assert.Empty(t, detectPair(a, cancelled, slots))

	nextWeek := a
	nextWeek.ID = "asg-3"
	nextWeek.Date = monday.AddDate(0, 0, 7)
	assert.Empty(t, detectPair(a, nextWeek, slots))
}

func TestConflictServiceDetectPersistsOnce(t *testing.T) {
	monday := firstMonday()
	repo := newConflictRepoStub()
	notifier := &notifierStub{}
	assignments := &assignmentReaderStub{assignments: []models.Assignment{
		{ID: "asg-1", GroupID: "g1", TeacherID: "t1", RoomID: "r1", TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned},
		{ID: "asg-2", GroupID: "g2", TeacherID: "t2", RoomID: "r1", TimeSlotID: mondayLate.ID, Date: monday, Status: models.AssignmentStatusPlanned},
	}}
	svc := NewConflictService(repo, assignments, &slotReaderStub{slots: []models.TimeSlot{mondayMorning, mondayLate}}, notifier, nil)

	created, err := svc.Detect(context.Background(), monday, monday.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.ConflictTypeRoom, created[0].Type)
	assert.Len(t, notifier.notified, 1)

	// A second run over the same window creates nothing new.
	created, err = svc.Detect(context.Background(), monday, monday.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Len(t, repo.created, 1)
}

func TestConflictServicePreviewPersistsNothing(t *testing.T) {
	monday := firstMonday()
	repo := newConflictRepoStub()
	assignments := &assignmentReaderStub{assignments: []models.Assignment{
		{ID: "asg-1", GroupID: "g1", TeacherID: "t1", RoomID: "r1", TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned},
		{ID: "asg-2", GroupID: "g2", TeacherID: "t2", RoomID: "r1", TimeSlotID: mondayLate.ID, Date: monday, Status: models.AssignmentStatusPlanned},
	}}
	svc := NewConflictService(repo, assignments, &slotReaderStub{slots: []models.TimeSlot{mondayMorning, mondayLate}}, nil, nil)

	candidates, err := svc.Preview(context.Background(), monday, monday.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.ConflictTypeRoom, candidates[0].Type)
	assert.Empty(t, repo.created)
}

func TestConflictServiceDetectRejectsInvertedWindow(t *testing.T) {
	svc := NewConflictService(newConflictRepoStub(), &assignmentReaderStub{}, &slotReaderStub{}, nil, nil)
	monday := firstMonday()
	_, err := svc.Detect(context.Background(), monday, monday.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConflictServiceResolveOnce(t *testing.T) {
	repo := newConflictRepoStub()
	require.NoError(t, repo.Create(context.Background(), &models.Conflict{ID: "conf-1", Type: models.ConflictTypeRoom}, []string{"asg-1", "asg-2"}))
	svc := NewConflictService(repo, &assignmentReaderStub{}, &slotReaderStub{}, nil, nil)

	resolved, err := svc.Resolve(context.Background(), "conf-1", "admin-1")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "admin-1", *resolved.ResolvedBy)

	_, err = svc.Resolve(context.Background(), "conf-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(context.Background(), "missing", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConflictServiceGetIncludesLinks(t *testing.T) {
	repo := newConflictRepoStub()
	require.NoError(t, repo.Create(context.Background(), &models.Conflict{ID: "conf-1", Type: models.ConflictTypeGroup}, []string{"asg-1", "asg-2"}))
	svc := NewConflictService(repo, &assignmentReaderStub{}, &slotReaderStub{}, nil, nil)

	detail, err := svc.Get(context.Background(), "conf-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"asg-1", "asg-2"}, detail.AssignmentIDs)
}
