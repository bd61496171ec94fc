package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type groupReaderStub struct {
	groups []models.Group
}

func (s *groupReaderStub) ListAll(ctx context.Context) ([]models.Group, error) {
	return s.groups, nil
}

func (s *groupReaderStub) FindByIDs(ctx context.Context, ids []string) ([]models.Group, error) {
	var out []models.Group
	for _, group := range s.groups {
		for _, id := range ids {
			if group.ID == id {
				out = append(out, group)
			}
		}
	}
	return out, nil
}

type courseReaderStub struct {
	courses []models.Course
}

func (s *courseReaderStub) ListForGroup(ctx context.Context, programID, level string, courseIDs []string) ([]models.Course, error) {
	var out []models.Course
	for _, course := range s.courses {
		if course.ProgramID != programID || course.Level != level {
			continue
		}
		if len(courseIDs) > 0 {
			found := false
			for _, id := range courseIDs {
				if course.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, course)
	}
	return out, nil
}

type teacherReaderStub struct {
	teachers []models.Teacher
}

func (s *teacherReaderStub) ListActive(ctx context.Context) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, teacher := range s.teachers {
		if teacher.Active {
			out = append(out, teacher)
		}
	}
	return out, nil
}

type roomReaderStub struct {
	rooms []models.Room
}

func (s *roomReaderStub) ListOpen(ctx context.Context) ([]models.Room, error) {
	var out []models.Room
	for _, room := range s.rooms {
		if room.OpenForBooking {
			out = append(out, room)
		}
	}
	return out, nil
}

type availabilityReaderStub struct {
	records []models.Availability
}

func (s *availabilityReaderStub) ListInRange(ctx context.Context, from, to time.Time) ([]models.Availability, error) {
	return s.records, nil
}

type calendarReaderStub struct {
	events []models.CalendarEvent
}

func (s *calendarReaderStub) ListBlockingInRange(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	return s.events, nil
}

type assignmentStoreStub struct {
	assignments []models.Assignment
	nextID      int
	deleted     int64
}

func (s *assignmentStoreStub) ListActiveInRange(ctx context.Context, from, to time.Time) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.Status.Active() && !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *assignmentStoreStub) Create(ctx context.Context, assignment *models.Assignment) error {
	s.nextID++
	assignment.ID = fmt.Sprintf("asg-%d", s.nextID)
	s.assignments = append(s.assignments, *assignment)
	return nil
}

func (s *assignmentStoreStub) DeleteActiveInScope(ctx context.Context, from, to time.Time, courseIDs, groupIDs []string) (int64, error) {
	var kept []models.Assignment
	for _, a := range s.assignments {
		remove := a.Status.Active() && !a.Date.Before(from) && !a.Date.After(to)
		if remove {
			s.deleted++
			continue
		}
		kept = append(kept, a)
	}
	s.assignments = kept
	return s.deleted, nil
}

// pairwiseVerifier re-runs detection over the stored assignments, which is
// exactly what the real detector does after a generation run.
type pairwiseVerifier struct {
	store *assignmentStoreStub
	slots []models.TimeSlot
}

func (v *pairwiseVerifier) Detect(ctx context.Context, from, to time.Time) ([]models.Conflict, error) {
	assignments, _ := v.store.ListActiveInRange(ctx, from, to)
	candidates := detectAll(assignments, slotIndexOf(v.slots...))
	conflicts := make([]models.Conflict, len(candidates))
	for i, c := range candidates {
		conflicts[i] = models.Conflict{Type: c.Type, Description: c.Description}
	}
	return conflicts, nil
}

type generatorFixture struct {
	groups   *groupReaderStub
	courses  *courseReaderStub
	teachers *teacherReaderStub
	rooms    *roomReaderStub
	slots    *slotReaderStub
	avail    *availabilityReaderStub
	calendar *calendarReaderStub
	store    *assignmentStoreStub
}

func (f *generatorFixture) service() *GeneratorService {
	verifier := &pairwiseVerifier{store: f.store, slots: f.slots.slots}
	return NewGeneratorService(f.groups, f.courses, f.teachers, f.rooms, f.slots, f.avail, f.calendar, f.store, verifier, nil, nil, nil)
}

// fourWeekFixture covers four Mondays starting 2026-09-07 with one 120-minute
// Monday slot, one teacher available throughout, one open room and one group.
func fourWeekFixture() *generatorFixture {
	monday := firstMonday()
	return &generatorFixture{
		groups: &groupReaderStub{groups: []models.Group{
			{ID: "group-1", Name: "L1-A", ProgramID: "prog-1", Level: "L1", Effectif: 30},
		}},
		courses: &courseReaderStub{courses: []models.Course{
			{ID: "course-1", Code: "MATH101", Name: "Analysis", ProgramID: "prog-1", Level: "L1", Hours: 2},
		}},
		teachers: &teacherReaderStub{teachers: []models.Teacher{
			{ID: "teacher-1", FullName: "Amina Diallo", Active: true},
		}},
		rooms: &roomReaderStub{rooms: []models.Room{
			{ID: "room-1", Name: "A101", Capacity: 40, OpenForBooking: true},
		}},
		slots: &slotReaderStub{slots: []models.TimeSlot{mondayMorning}},
		avail: &availabilityReaderStub{records: []models.Availability{
			{TeacherID: "teacher-1", TimeSlotID: mondayMorning.ID, StartDate: monday, EndDate: monday.AddDate(0, 0, 27), Available: true},
		}},
		calendar: &calendarReaderStub{},
		store:    &assignmentStoreStub{},
	}
}

func generationWindow() dto.GenerateAssignmentsRequest {
	return dto.GenerateAssignmentsRequest{
		DateFrom: "2026-09-07",
		DateTo:   "2026-10-04",
		AdminID:  "admin-1",
	}
}

func TestGenerateSingleSessionCourse(t *testing.T) {
	fixture := fourWeekFixture()
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)

	// 2 hours against a 120-minute slot is exactly one session, placed on
	// the first free Monday.
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, 1, result.Planned)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Conflicts)
	assert.Equal(t, firstMonday(), result.Sessions[0].Date)
	assert.Equal(t, "teacher-1", result.Sessions[0].TeacherID)
	assert.Equal(t, "room-1", result.Sessions[0].RoomID)
}

func TestGenerateSpreadsSessionsAcrossWeeks(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.courses.courses[0].Hours = 6 // three 120-minute sessions
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 3)
	monday := firstMonday()
	for i, session := range result.Sessions {
		assert.Equal(t, monday.AddDate(0, 0, 7*i), session.Date)
	}
}

func TestGenerateContentionFallsToNextWeek(t *testing.T) {
	fixture := fourWeekFixture()
	// A second group competing for the same teacher, room and slot.
	fixture.groups.groups = append(fixture.groups.groups, models.Group{
		ID: "group-2", Name: "L1-B", ProgramID: "prog-1", Level: "L1", Effectif: 30,
	})
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, firstMonday(), result.Sessions[0].Date)
	assert.Equal(t, firstMonday().AddDate(0, 0, 7), result.Sessions[1].Date)
	assert.Zero(t, result.Conflicts)
}

func TestGenerateNeverDoubleBooks(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.groups.groups = append(fixture.groups.groups,
		models.Group{ID: "group-2", Name: "L1-B", ProgramID: "prog-1", Level: "L1", Effectif: 30},
		models.Group{ID: "group-3", Name: "L1-C", ProgramID: "prog-1", Level: "L1", Effectif: 25},
	)
	fixture.courses.courses = append(fixture.courses.courses,
		models.Course{ID: "course-2", Code: "PHY101", Name: "Mechanics", ProgramID: "prog-1", Level: "L1", Hours: 4},
	)
	fixture.teachers.teachers = append(fixture.teachers.teachers,
		models.Teacher{ID: "teacher-2", FullName: "Bakary Kone", Active: true},
	)
	fixture.rooms.rooms = append(fixture.rooms.rooms,
		models.Room{ID: "room-2", Name: "A102", Capacity: 40, OpenForBooking: true},
	)
	fixture.avail.records = append(fixture.avail.records, models.Availability{
		TeacherID: "teacher-2", TimeSlotID: mondayMorning.ID,
		StartDate: firstMonday(), EndDate: firstMonday().AddDate(0, 0, 27), Available: true,
	})
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Sessions)
	// Post-run detection over everything created finds nothing.
	assert.Zero(t, result.Conflicts)
}

func TestGenerateReportsShortfall(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.courses.courses[0].Hours = 20 // ten sessions, only four Mondays
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Planned)
	assert.Equal(t, 6, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "course-1", result.Failures[0].CourseID)
}

func TestGenerateSkipsBlockedDates(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.calendar.events = []models.CalendarEvent{{
		Title:             "holiday",
		StartDate:         firstMonday(),
		EndDate:           firstMonday(),
		BlocksAssignments: true,
	}}
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, firstMonday().AddDate(0, 0, 7), result.Sessions[0].Date)
}

func TestGenerateRespectsExistingAssignments(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.store.assignments = []models.Assignment{{
		ID: "asg-existing", CourseID: "other", GroupID: "other-group",
		TeacherID: "teacher-1", RoomID: "room-1", TimeSlotID: mondayMorning.ID,
		Date: firstMonday(), Status: models.AssignmentStatusConfirmed,
	}}
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, firstMonday().AddDate(0, 0, 7), result.Sessions[0].Date)
	assert.Zero(t, result.Conflicts)
}

func TestGenerateOverwriteClearsWindowFirst(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.store.assignments = []models.Assignment{{
		ID: "asg-old", CourseID: "course-1", GroupID: "group-1",
		TeacherID: "teacher-1", RoomID: "room-1", TimeSlotID: mondayMorning.ID,
		Date: firstMonday(), Status: models.AssignmentStatusPlanned,
	}}
	svc := fixture.service()

	req := generationWindow()
	req.Overwrite = true
	result, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixture.store.deleted)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, firstMonday(), result.Sessions[0].Date)
}

func TestGeneratePreconditions(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.slots.slots = nil
	_, err := fixture.service().Generate(context.Background(), generationWindow())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	fixture = fourWeekFixture()
	fixture.rooms.rooms = nil
	_, err = fixture.service().Generate(context.Background(), generationWindow())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	fixture = fourWeekFixture()
	fixture.teachers.teachers = nil
	_, err = fixture.service().Generate(context.Background(), generationWindow())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestGenerateRejectsBadDates(t *testing.T) {
	svc := fourWeekFixture().service()

	_, err := svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{DateFrom: "07/09/2026", DateTo: "2026-10-04", AdminID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Generate(context.Background(), dto.GenerateAssignmentsRequest{DateFrom: "2026-10-04", DateTo: "2026-09-07", AdminID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateUnknownGroupID(t *testing.T) {
	svc := fourWeekFixture().service()
	req := generationWindow()
	req.GroupIDs = []string{"group-1", "missing"}
	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateFillsEarlierSlotAcrossWeeks(t *testing.T) {
	fixture := fourWeekFixture()
	// Slots arrive unsorted; placement walks them morning-first and exhausts
	// the window for one slot before touching the next.
	fixture.slots.slots = []models.TimeSlot{mondayNoon, mondayMorning}
	fixture.courses.courses[0].Hours = 4 // two 120-minute sessions
	fixture.avail.records = append(fixture.avail.records, models.Availability{
		TeacherID: "teacher-1", TimeSlotID: mondayNoon.ID,
		StartDate: firstMonday(), EndDate: firstMonday().AddDate(0, 0, 27), Available: true,
	})
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, mondayMorning.ID, result.Sessions[0].TimeSlotID)
	assert.Equal(t, mondayMorning.ID, result.Sessions[1].TimeSlotID)
	assert.Equal(t, firstMonday(), result.Sessions[0].Date)
	assert.Equal(t, firstMonday().AddDate(0, 0, 7), result.Sessions[1].Date)
}

func TestGenerateEmptyCourseSetAbortsBeforeOverwrite(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.courses.courses = nil
	fixture.store.assignments = []models.Assignment{{
		ID: "asg-old", CourseID: "course-1", GroupID: "group-1",
		TeacherID: "teacher-1", RoomID: "room-1", TimeSlotID: mondayMorning.ID,
		Date: firstMonday(), Status: models.AssignmentStatusPlanned,
	}}
	svc := fixture.service()

	req := generationWindow()
	req.Overwrite = true
	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	// The run aborted before clearing the window.
	assert.Zero(t, fixture.store.deleted)
	assert.Len(t, fixture.store.assignments, 1)
}

func TestGenerateReportsTeacherShortage(t *testing.T) {
	fixture := fourWeekFixture()
	// Two groups, two rooms, one teacher: the teacher is the bottleneck.
	fixture.groups.groups = append(fixture.groups.groups, models.Group{
		ID: "group-2", Name: "L1-B", ProgramID: "prog-1", Level: "L1", Effectif: 30,
	})
	fixture.rooms.rooms = append(fixture.rooms.rooms, models.Room{
		ID: "room-2", Name: "A102", Capacity: 40, OpenForBooking: true,
	})
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	require.Len(t, result.Failures, 1)
	failure := result.Failures[0]
	assert.Equal(t, "group-2", failure.GroupID)
	assert.Equal(t, "no teacher available", failure.Reason)
	require.NotNil(t, failure.Date)
	assert.Equal(t, firstMonday(), *failure.Date)
	// Both groups still got their session, so nothing counts as failed.
	assert.Zero(t, result.Failed)
}

func TestGenerateReportsRoomShortage(t *testing.T) {
	fixture := fourWeekFixture()
	// Two groups, two teachers, one room: the room is the bottleneck.
	fixture.groups.groups = append(fixture.groups.groups, models.Group{
		ID: "group-2", Name: "L1-B", ProgramID: "prog-1", Level: "L1", Effectif: 30,
	})
	fixture.teachers.teachers = append(fixture.teachers.teachers, models.Teacher{
		ID: "teacher-2", FullName: "Bakary Kone", Active: true,
	})
	fixture.avail.records = append(fixture.avail.records, models.Availability{
		TeacherID: "teacher-2", TimeSlotID: mondayMorning.ID,
		StartDate: firstMonday(), EndDate: firstMonday().AddDate(0, 0, 27), Available: true,
	})
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "no room available", result.Failures[0].Reason)
	require.NotNil(t, result.Failures[0].Date)
	assert.Equal(t, firstMonday(), *result.Failures[0].Date)
}

func TestGenerateKeepsCourseTeacherContinuity(t *testing.T) {
	fixture := fourWeekFixture()
	fixture.teachers.teachers = append(fixture.teachers.teachers, models.Teacher{
		ID: "teacher-2", FullName: "Bakary Kone", Active: true,
	})
	fixture.avail.records = append(fixture.avail.records, models.Availability{
		TeacherID: "teacher-2", TimeSlotID: mondayMorning.ID,
		StartDate: firstMonday(), EndDate: firstMonday().AddDate(0, 0, 27), Available: true,
	})
	// The course already ran once with teacher-2; the new session keeps them
	// even though teacher-1 sorts first.
	fixture.store.assignments = []models.Assignment{{
		ID: "asg-prior", CourseID: "course-1", GroupID: "group-1",
		TeacherID: "teacher-2", RoomID: "room-1", TimeSlotID: mondayMorning.ID,
		Date: firstMonday(), Status: models.AssignmentStatusConfirmed,
	}}
	svc := fixture.service()

	result, err := svc.Generate(context.Background(), generationWindow())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, firstMonday().AddDate(0, 0, 7), result.Sessions[0].Date)
	assert.Equal(t, "teacher-2", result.Sessions[0].TeacherID)
}
