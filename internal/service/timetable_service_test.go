package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type timetableRepoStub struct {
	entries []dto.TimetableEntry
	loads   int
}

func (s *timetableRepoStub) ForGroup(ctx context.Context, groupID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	s.loads++
	return s.entries, nil
}

func (s *timetableRepoStub) ForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	s.loads++
	return s.entries, nil
}

func (s *timetableRepoStub) ForRoom(ctx context.Context, roomID string, from, to time.Time) ([]dto.TimetableEntry, error) {
	s.loads++
	return s.entries, nil
}

type ttCacheStub struct {
	store map[string][]dto.TimetableEntry
}

func newTTCacheStub() *ttCacheStub {
	return &ttCacheStub{store: make(map[string][]dto.TimetableEntry)}
}

func (s *ttCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	entries, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*[]dto.TimetableEntry)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*out = entries
	return nil
}

func (s *ttCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	entries, ok := value.([]dto.TimetableEntry)
	if !ok {
		return nil
	}
	s.store[key] = entries
	return nil
}

func (s *ttCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func sampleEntries() []dto.TimetableEntry {
	return []dto.TimetableEntry{{
		AssignmentID: "asg-1",
		CourseName:   "Distributed Systems",
		GroupName:    "CS-3A",
		TeacherName:  "Dr. Ada",
		RoomName:     "B-204",
		Weekday:      "MONDAY",
		StartTime:    "08:00",
		EndTime:      "10:00",
		Date:         firstMonday(),
		Status:       "PLANNED",
	}}
}

func timetableWindow() (time.Time, time.Time) {
	from := firstMonday()
	return from, from.AddDate(0, 0, 6)
}

func TestTimetableForGroupCachesSecondRead(t *testing.T) {
	repo := &timetableRepoStub{entries: sampleEntries()}
	cache := newTTCacheStub()
	svc := NewTimetableService(repo, cache, nil, time.Minute, nil)
	from, to := timetableWindow()

	first, err := svc.ForGroup(context.Background(), "group-1", from, to)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.loads)

	second, err := svc.ForGroup(context.Background(), "group-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.loads)
}

func TestTimetableInvalidateDropsScope(t *testing.T) {
	repo := &timetableRepoStub{entries: sampleEntries()}
	cache := newTTCacheStub()
	svc := NewTimetableService(repo, cache, nil, time.Minute, nil)
	from, to := timetableWindow()

	_, err := svc.ForGroup(context.Background(), "group-1", from, to)
	require.NoError(t, err)
	_, err = svc.ForTeacher(context.Background(), "teacher-1", from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.loads)

	svc.Invalidate(context.Background(), "group-1", "", "")

	_, err = svc.ForGroup(context.Background(), "group-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.loads)

	_, err = svc.ForTeacher(context.Background(), "teacher-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.loads)
}

func TestTimetableInvalidateAll(t *testing.T) {
	repo := &timetableRepoStub{entries: sampleEntries()}
	cache := newTTCacheStub()
	svc := NewTimetableService(repo, cache, nil, time.Minute, nil)
	from, to := timetableWindow()

	_, err := svc.ForRoom(context.Background(), "room-1", from, to)
	require.NoError(t, err)
	svc.InvalidateAll(context.Background())
	assert.Empty(t, cache.store)
}

func TestTimetableRejectsInvertedWindow(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, nil, nil, time.Minute, nil)
	from, to := timetableWindow()

	_, err := svc.ForGroup(context.Background(), "group-1", to, from)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableWorksWithoutCache(t *testing.T) {
	repo := &timetableRepoStub{entries: sampleEntries()}
	svc := NewTimetableService(repo, nil, nil, time.Minute, nil)
	from, to := timetableWindow()

	_, err := svc.ForGroup(context.Background(), "group-1", from, to)
	require.NoError(t, err)
	_, err = svc.ForGroup(context.Background(), "group-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)

	svc.Invalidate(context.Background(), "group-1", "", "")
	svc.InvalidateAll(context.Background())
}

func TestTimetableExportCSV(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, nil, nil, time.Minute, nil)

	data, err := svc.ExportCSV(sampleEntries())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Weekday,Start,End,Course,Group,Teacher,Room,Status", lines[0])
	assert.Contains(t, lines[1], "Distributed Systems")
	assert.Contains(t, lines[1], "2026-09-07")
}

func TestTimetableExportPDF(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, nil, nil, time.Minute, nil)

	data, err := svc.ExportPDF(sampleEntries(), "group-timetable")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}
