package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type conflictRepository interface {
	Create(ctx context.Context, conflict *models.Conflict, assignmentIDs []string) error
	ExistsUnresolved(ctx context.Context, conflictType models.ConflictType, assignmentIDs []string) (bool, error)
	List(ctx context.Context, filter models.ConflictFilter) ([]models.Conflict, int, error)
	FindByID(ctx context.Context, id string) (*models.Conflict, error)
	ListLinks(ctx context.Context, conflictID string) ([]string, error)
	Resolve(ctx context.Context, id, resolvedBy string) error
}

type conflictAssignmentReader interface {
	ListActiveInRange(ctx context.Context, from, to time.Time) ([]models.Assignment, error)
}

type conflictSlotReader interface {
	ListAll(ctx context.Context) ([]models.TimeSlot, error)
}

// ConflictNotifier fans detection results out to the affected users.
// Implementations must not block the detection path.
type ConflictNotifier interface {
	NotifyConflict(ctx context.Context, conflict *models.Conflict, assignmentIDs []string)
}

// ConflictService detects and manages double-bookings between assignments.
type ConflictService struct {
	conflicts   conflictRepository
	assignments conflictAssignmentReader
	slots       conflictSlotReader
	notifier    ConflictNotifier
	logger      *zap.Logger
}

// NewConflictService constructs the service. The notifier may be nil.
func NewConflictService(conflicts conflictRepository, assignments conflictAssignmentReader, slots conflictSlotReader, notifier ConflictNotifier, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		conflicts:   conflicts,
		assignments: assignments,
		slots:       slots,
		notifier:    notifier,
		logger:      logger,
	}
}

// detectPair returns one candidate per shared dimension between two
// assignments, checked in room, teacher, group order. Cancelled assignments
// and assignments on different dates never conflict.
func detectPair(a, b models.Assignment, slots map[string]models.TimeSlot) []models.ConflictCandidate {
	if !a.Status.Active() || !b.Status.Active() {
		return nil
	}
	if !sameDay(a.Date, b.Date) {
		return nil
	}
	slotA, okA := slots[a.TimeSlotID]
	slotB, okB := slots[b.TimeSlotID]
	if !okA || !okB {
		return nil
	}
	overlap, err := slotsOverlap(slotA, slotB)
	if err != nil || !overlap {
		return nil
	}

	day := truncateToDay(a.Date).Format("2006-01-02")
	var candidates []models.ConflictCandidate
	if a.RoomID == b.RoomID {
		candidates = append(candidates, models.ConflictCandidate{
			Type:        models.ConflictTypeRoom,
			Description: fmt.Sprintf("room %s booked twice on %s", a.RoomID, day),
			FirstID:     a.ID,
			SecondID:    b.ID,
		})
	}
	if a.TeacherID == b.TeacherID {
		candidates = append(candidates, models.ConflictCandidate{
			Type:        models.ConflictTypeTeacher,
			Description: fmt.Sprintf("teacher %s booked twice on %s", a.TeacherID, day),
			FirstID:     a.ID,
			SecondID:    b.ID,
		})
	}
	if a.GroupID == b.GroupID {
		candidates = append(candidates, models.ConflictCandidate{
			Type:        models.ConflictTypeGroup,
			Description: fmt.Sprintf("group %s booked twice on %s", a.GroupID, day),
			FirstID:     a.ID,
			SecondID:    b.ID,
		})
	}
	return candidates
}

// DetectForAssignment pairs one assignment against a working set.
func DetectForAssignment(target models.Assignment, others []models.Assignment, slots map[string]models.TimeSlot) []models.ConflictCandidate {
	var candidates []models.ConflictCandidate
	for _, other := range others {
		if other.ID == target.ID {
			continue
		}
		candidates = append(candidates, detectPair(target, other, slots)...)
	}
	return candidates
}

// detectAll scans a date-ordered working set pairwise.
func detectAll(assignments []models.Assignment, slots map[string]models.TimeSlot) []models.ConflictCandidate {
	var candidates []models.ConflictCandidate
	for i := 0; i < len(assignments); i++ {
		for j := i + 1; j < len(assignments); j++ {
			candidates = append(candidates, detectPair(assignments[i], assignments[j], slots)...)
		}
	}
	return candidates
}

func (s *ConflictService) slotIndex(ctx context.Context) (map[string]models.TimeSlot, error) {
	slots, err := s.slots.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	indexed := make(map[string]models.TimeSlot, len(slots))
	for _, slot := range slots {
		indexed[slot.ID] = slot
	}
	return indexed, nil
}

// Detect scans every active assignment in [from, to], persists any new
// conflicts and returns them.
func (s *ConflictService) Detect(ctx context.Context, from, to time.Time) ([]models.Conflict, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must be on or after date_from")
	}
	slots, err := s.slotIndex(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListActiveInRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	candidates := detectAll(assignments, slots)
	return s.persistCandidates(ctx, candidates)
}

// Preview runs the same scan as Detect without persisting anything. The
// returned candidates include pairs a previous run already stored.
func (s *ConflictService) Preview(ctx context.Context, from, to time.Time) ([]models.ConflictCandidate, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must be on or after date_from")
	}
	slots, err := s.slotIndex(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListActiveInRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return detectAll(assignments, slots), nil
}

// VerifyAssignment pairs one assignment against the other active assignments
// of its date, persisting any new conflicts. Used after manual writes.
func (s *ConflictService) VerifyAssignment(ctx context.Context, assignment models.Assignment) ([]models.Conflict, error) {
	slots, err := s.slotIndex(ctx)
	if err != nil {
		return nil, err
	}
	day := truncateToDay(assignment.Date)
	others, err := s.assignments.ListActiveInRange(ctx, day, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	candidates := DetectForAssignment(assignment, others, slots)
	return s.persistCandidates(ctx, candidates)
}

func (s *ConflictService) persistCandidates(ctx context.Context, candidates []models.ConflictCandidate) ([]models.Conflict, error) {
	var created []models.Conflict
	for _, candidate := range candidates {
		conflict, err := s.persistIfNew(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			created = append(created, *conflict)
		}
	}
	return created, nil
}

// persistIfNew stores a candidate unless an unresolved conflict of the same
// type already involves either assignment. This keeps repeated detection
// runs idempotent.
func (s *ConflictService) persistIfNew(ctx context.Context, candidate models.ConflictCandidate) (*models.Conflict, error) {
	ids := []string{candidate.FirstID, candidate.SecondID}
	exists, err := s.conflicts.ExistsUnresolved(ctx, candidate.Type, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing conflicts")
	}
	if exists {
		return nil, nil
	}

	conflict := &models.Conflict{
		Type:        candidate.Type,
		Description: candidate.Description,
		Resolved:    false,
		DetectedAt:  time.Now().UTC(),
	}
	if err := s.conflicts.Create(ctx, conflict, ids); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist conflict")
	}
	s.logger.Warn("conflict detected",
		zap.String("conflict_id", conflict.ID),
		zap.String("type", string(conflict.Type)),
		zap.Strings("assignment_ids", ids))

	if s.notifier != nil {
		s.notifier.NotifyConflict(ctx, conflict, ids)
	}
	return conflict, nil
}

// List returns conflicts matching the filter.
func (s *ConflictService) List(ctx context.Context, filter models.ConflictFilter) ([]models.Conflict, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	conflicts, total, err := s.conflicts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return conflicts, pagination, nil
}

// ConflictDetail is a conflict with its linked assignment ids.
type ConflictDetail struct {
	models.Conflict
	AssignmentIDs []string `json:"assignment_ids"`
}

// Get returns a conflict and the assignments it links.
func (s *ConflictService) Get(ctx context.Context, id string) (*ConflictDetail, error) {
	conflict, err := s.conflicts.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get conflict")
	}
	links, err := s.conflicts.ListLinks(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflict links")
	}
	return &ConflictDetail{Conflict: *conflict, AssignmentIDs: links}, nil
}

// Resolve closes a conflict once. Resolving a resolved conflict fails.
func (s *ConflictService) Resolve(ctx context.Context, id, resolvedBy string) (*models.Conflict, error) {
	if err := s.conflicts.Resolve(ctx, id, resolvedBy); err != nil {
		if err == sql.ErrNoRows {
			if _, findErr := s.conflicts.FindByID(ctx, id); findErr == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "conflict already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve conflict")
	}
	conflict, err := s.conflicts.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload conflict")
	}
	return conflict, nil
}
