package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type generatorGroupReader interface {
	ListAll(ctx context.Context) ([]models.Group, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Group, error)
}

type generatorCourseReader interface {
	ListForGroup(ctx context.Context, programID, level string, courseIDs []string) ([]models.Course, error)
}

type generatorTeacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type generatorRoomReader interface {
	ListOpen(ctx context.Context) ([]models.Room, error)
}

type generatorAvailabilityReader interface {
	ListInRange(ctx context.Context, from, to time.Time) ([]models.Availability, error)
}

type generatorCalendarReader interface {
	ListBlockingInRange(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
}

type generatorAssignmentStore interface {
	ListActiveInRange(ctx context.Context, from, to time.Time) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	DeleteActiveInScope(ctx context.Context, from, to time.Time, courseIDs, groupIDs []string) (int64, error)
}

type generationVerifier interface {
	Detect(ctx context.Context, from, to time.Time) ([]models.Conflict, error)
}

type generationRecorder interface {
	RecordGenerationRun(planned, failed, conflicts int)
}

// GeneratorService plans course sessions automatically over a date window.
// Placement is greedy first-fit: slots in weekday and start-time order,
// chronological dates within each slot, teachers preferring course
// continuity, smallest sufficient open room. Runs are serialised per process.
type GeneratorService struct {
	groups         generatorGroupReader
	courses        generatorCourseReader
	teachers       generatorTeacherReader
	rooms          generatorRoomReader
	slots          conflictSlotReader
	availabilities generatorAvailabilityReader
	calendar       generatorCalendarReader
	assignments    generatorAssignmentStore
	verifier       generationVerifier
	recorder       generationRecorder
	validator      *validator.Validate
	logger         *zap.Logger

	mu sync.Mutex
}

// NewGeneratorService constructs the service. The recorder may be nil.
func NewGeneratorService(
	groups generatorGroupReader,
	courses generatorCourseReader,
	teachers generatorTeacherReader,
	rooms generatorRoomReader,
	slots conflictSlotReader,
	availabilities generatorAvailabilityReader,
	calendar generatorCalendarReader,
	assignments generatorAssignmentStore,
	verifier generationVerifier,
	recorder generationRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorService{
		groups:         groups,
		courses:        courses,
		teachers:       teachers,
		rooms:          rooms,
		slots:          slots,
		availabilities: availabilities,
		calendar:       calendar,
		assignments:    assignments,
		verifier:       verifier,
		recorder:       recorder,
		validator:      validate,
		logger:         logger,
	}
}

const generationDateLayout = "2006-01-02"

// sessionsNeeded converts course hours into a session count using the mean
// slot duration, rounding up so short slots never under-schedule a course.
func sessionsNeeded(hours int, avgSlotMinutes float64) int {
	if hours <= 0 || avgSlotMinutes <= 0 {
		return 0
	}
	return int(math.Ceil(float64(hours*60) / avgSlotMinutes))
}

// orderSlots returns a copy sorted by weekday then start time, the order the
// placement loop walks slots in. Slots with malformed fields sort last.
func orderSlots(slots []models.TimeSlot) []models.TimeSlot {
	rank := func(slot models.TimeSlot) (int, int) {
		day, err := weekdayIndex(slot.Weekday)
		if err != nil {
			return 7, 0
		}
		start, _, err := slotInterval(slot)
		if err != nil {
			return day, 24 * 60
		}
		return day, start
	}
	ordered := make([]models.TimeSlot, len(slots))
	copy(ordered, slots)
	sort.Slice(ordered, func(i, j int) bool {
		di, si := rank(ordered[i])
		dj, sj := rank(ordered[j])
		if di != dj {
			return di < dj
		}
		return si < sj
	})
	return ordered
}

func averageSlotMinutes(slots []models.TimeSlot) float64 {
	total := 0
	counted := 0
	for _, slot := range slots {
		minutes, err := slotDurationMinutes(slot)
		if err != nil {
			continue
		}
		total += minutes
		counted++
	}
	if counted == 0 {
		return 0
	}
	return float64(total) / float64(counted)
}

// Generate runs one automatic scheduling pass and returns what was planned,
// what could not be placed, and how many conflicts the post-run verification
// found. Only one run executes at a time; a concurrent call fails fast.
func (s *GeneratorService) Generate(ctx context.Context, req dto.GenerateAssignmentsRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	from, err := time.ParseInLocation(generationDateLayout, req.DateFrom, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_from must use YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(generationDateLayout, req.DateTo, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must use YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must be on or after date_from")
	}

	if !s.mu.TryLock() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a generation run is already in progress")
	}
	defer s.mu.Unlock()

	started := time.Now()
	result, err := s.generate(ctx, req, from, to)
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordGenerationRun(result.Planned, result.Failed, result.Conflicts)
	}
	s.logger.Info("generation run finished",
		zap.String("from", req.DateFrom),
		zap.String("to", req.DateTo),
		zap.Int("planned", result.Planned),
		zap.Int("failed", result.Failed),
		zap.Int("conflicts", result.Conflicts),
		zap.Duration("took", time.Since(started)))
	return result, nil
}

func (s *GeneratorService) generate(ctx context.Context, req dto.GenerateAssignmentsRequest, from, to time.Time) (*dto.GenerationResult, error) {
	slots, err := s.slots.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no time slots configured")
	}
	slots = orderSlots(slots)
	avgMinutes := averageSlotMinutes(slots)
	if avgMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "time slots carry no usable durations")
	}

	rooms, err := s.rooms.ListOpen(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no rooms open for booking")
	}

	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active teachers")
	}

	groups, err := s.loadGroups(ctx, req.GroupIDs)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no groups to schedule")
	}

	groupCourses := make([][]models.Course, len(groups))
	totalCourses := 0
	for i, group := range groups {
		courses, err := s.courses.ListForGroup(ctx, group.ProgramID, group.Level, req.CourseIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
		}
		groupCourses[i] = courses
		totalCourses += len(courses)
	}
	if totalCourses == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no courses match the requested groups")
	}

	blocking, err := s.calendar.ListBlockingInRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar events")
	}
	dates := enumerateDates(from, to, blocking)
	if len(dates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "every date in the window is blocked")
	}

	records, err := s.availabilities.ListInRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availabilities")
	}
	oracle := newAvailabilityOracle(records)

	if req.Overwrite {
		removed, err := s.assignments.DeleteActiveInScope(ctx, from, to, req.CourseIDs, req.GroupIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous assignments")
		}
		s.logger.Info("cleared previous assignments", zap.Int64("removed", removed))
	}

	existing, err := s.assignments.ListActiveInRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing assignments")
	}
	ledger := newOccupancyLedger(slots)
	ledger.Seed(existing)

	// Teachers already carrying a course keep it for new sessions too.
	courseTeacher := make(map[string]string)
	for _, assignment := range existing {
		if !assignment.Status.Active() {
			continue
		}
		if _, seen := courseTeacher[assignment.CourseID]; !seen {
			courseTeacher[assignment.CourseID] = assignment.TeacherID
		}
	}

	result := &dto.GenerationResult{}
	for i, group := range groups {
		for _, course := range groupCourses[i] {
			needed := sessionsNeeded(course.Hours, avgMinutes)
			if needed == 0 {
				continue
			}
			placed := s.placeCourse(ctx, course, group, needed, dates, slots, teachers, rooms, oracle, ledger, courseTeacher, req.AdminID, result)
			if placed < needed {
				result.Failures = append(result.Failures, dto.GenerationFailure{
					CourseID: course.ID,
					GroupID:  group.ID,
					Reason:   fmt.Sprintf("placed %d of %d sessions: no remaining free combination", placed, needed),
				})
				result.Failed += needed - placed
			}
		}
	}

	if s.verifier != nil {
		conflicts, err := s.verifier.Detect(ctx, from, to)
		if err != nil {
			s.logger.Error("post-generation conflict detection failed", zap.Error(err))
		} else {
			result.Conflicts = len(conflicts)
		}
	}
	return result, nil
}

// placeCourse books up to needed sessions for one course and group, walking
// slots in weekday and start-time order and, within each slot, dates
// chronologically. Returns the number of sessions actually placed.
func (s *GeneratorService) placeCourse(
	ctx context.Context,
	course models.Course,
	group models.Group,
	needed int,
	dates []time.Time,
	slots []models.TimeSlot,
	teachers []models.Teacher,
	rooms []models.Room,
	oracle *availabilityOracle,
	ledger *occupancyLedger,
	courseTeacher map[string]string,
	adminID string,
	result *dto.GenerationResult,
) int {
	placed := 0
	for _, slot := range slots {
		if placed >= needed {
			break
		}
		for _, date := range dates {
			if placed >= needed {
				break
			}
			matches, err := dateMatchesSlot(date, slot)
			if err != nil || !matches {
				continue
			}
			if !ledger.GroupFree(group.ID, slot, date) {
				continue
			}
			teacher, ok := pickTeacher(teachers, oracle, ledger, slot, date, courseTeacher[course.ID])
			if !ok {
				failDate := date
				result.Failures = append(result.Failures, dto.GenerationFailure{
					CourseID: course.ID,
					GroupID:  group.ID,
					Date:     &failDate,
					Reason:   "no teacher available",
				})
				continue
			}
			room, ok := pickRoom(rooms, ledger, slot, date, group.Effectif)
			if !ok {
				failDate := date
				result.Failures = append(result.Failures, dto.GenerationFailure{
					CourseID: course.ID,
					GroupID:  group.ID,
					Date:     &failDate,
					Reason:   "no room available",
				})
				continue
			}

			assignment := &models.Assignment{
				CourseID:   course.ID,
				GroupID:    group.ID,
				TeacherID:  teacher.ID,
				RoomID:     room.ID,
				TimeSlotID: slot.ID,
				Date:       date,
				Status:     models.AssignmentStatusPlanned,
				CreatedBy:  adminID,
			}
			if err := s.assignments.Create(ctx, assignment); err != nil {
				s.logger.Error("failed to persist generated assignment",
					zap.String("course_id", course.ID),
					zap.String("group_id", group.ID),
					zap.Error(err))
				failDate := date
				result.Failures = append(result.Failures, dto.GenerationFailure{
					CourseID: course.ID,
					GroupID:  group.ID,
					Date:     &failDate,
					Reason:   "storage error while saving the session",
				})
				continue
			}

			ledger.Add(*assignment)
			courseTeacher[course.ID] = teacher.ID
			result.Sessions = append(result.Sessions, dto.GeneratedSession{
				AssignmentID: assignment.ID,
				CourseID:     course.ID,
				GroupID:      group.ID,
				TeacherID:    teacher.ID,
				RoomID:       room.ID,
				TimeSlotID:   slot.ID,
				Date:         date,
			})
			result.Planned++
			placed++
		}
	}
	return placed
}

func (s *GeneratorService) loadGroups(ctx context.Context, ids []string) ([]models.Group, error) {
	if len(ids) == 0 {
		groups, err := s.groups.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
		}
		return groups, nil
	}
	groups, err := s.groups.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	if len(groups) != len(ids) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more group ids do not exist")
	}
	return groups, nil
}
