package service

import (
	"time"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// availabilityOracle answers whether a teacher declared themselves free for a
// slot on a date. The model is closed-world: a teacher with no covering
// record is treated as unavailable, and an explicit unavailability record
// overrides any overlapping availability.
type availabilityOracle struct {
	byTeacher map[string][]models.Availability
}

func newAvailabilityOracle(records []models.Availability) *availabilityOracle {
	byTeacher := make(map[string][]models.Availability, len(records))
	for _, record := range records {
		byTeacher[record.TeacherID] = append(byTeacher[record.TeacherID], record)
	}
	return &availabilityOracle{byTeacher: byTeacher}
}

func recordCovers(record models.Availability, slotID string, date time.Time) bool {
	if record.TimeSlotID != slotID {
		return false
	}
	day := truncateToDay(date)
	return !day.Before(truncateToDay(record.StartDate)) && !day.After(truncateToDay(record.EndDate))
}

// TeacherAvailable reports the declared availability of a teacher for a slot
// on a concrete date.
func (o *availabilityOracle) TeacherAvailable(teacherID, slotID string, date time.Time) bool {
	declared := false
	for _, record := range o.byTeacher[teacherID] {
		if !recordCovers(record, slotID, date) {
			continue
		}
		if !record.Available {
			return false
		}
		declared = true
	}
	return declared
}

// occupancyEntry is one booked interval on a concrete date.
type occupancyEntry struct {
	teacherID string
	roomID    string
	groupID   string
	date      time.Time
	weekday   int
	startMin  int
	endMin    int
}

// occupancyLedger tracks which teachers, rooms and groups are busy during
// the generation window. Overlap is judged on the actual minute intervals,
// not slot identity, so two distinct but overlapping slots still collide.
type occupancyLedger struct {
	entries []occupancyEntry
	slots   map[string]models.TimeSlot
}

func newOccupancyLedger(slots []models.TimeSlot) *occupancyLedger {
	indexed := make(map[string]models.TimeSlot, len(slots))
	for _, slot := range slots {
		indexed[slot.ID] = slot
	}
	return &occupancyLedger{slots: indexed}
}

// Seed loads existing assignments into the ledger. Assignments referencing
// unknown or malformed slots are skipped: they cannot be compared.
func (l *occupancyLedger) Seed(assignments []models.Assignment) {
	for _, assignment := range assignments {
		if !assignment.Status.Active() {
			continue
		}
		l.Add(assignment)
	}
}

// Add books the assignment's interval for its teacher, room and group.
func (l *occupancyLedger) Add(assignment models.Assignment) {
	slot, ok := l.slots[assignment.TimeSlotID]
	if !ok {
		return
	}
	start, end, err := slotInterval(slot)
	if err != nil {
		return
	}
	weekday, err := weekdayIndex(slot.Weekday)
	if err != nil {
		return
	}
	l.entries = append(l.entries, occupancyEntry{
		teacherID: assignment.TeacherID,
		roomID:    assignment.RoomID,
		groupID:   assignment.GroupID,
		date:      truncateToDay(assignment.Date),
		weekday:   weekday,
		startMin:  start,
		endMin:    end,
	})
}

func (l *occupancyLedger) busy(match func(occupancyEntry) bool, slot models.TimeSlot, date time.Time) bool {
	start, end, err := slotInterval(slot)
	if err != nil {
		return true
	}
	day := truncateToDay(date)
	for _, entry := range l.entries {
		if !entry.date.Equal(day) {
			continue
		}
		if !intervalsOverlap(start, end, entry.startMin, entry.endMin) {
			continue
		}
		if match(entry) {
			return true
		}
	}
	return false
}

// TeacherFree reports whether no booked interval of the teacher overlaps the
// slot on the date.
func (l *occupancyLedger) TeacherFree(teacherID string, slot models.TimeSlot, date time.Time) bool {
	return !l.busy(func(e occupancyEntry) bool { return e.teacherID == teacherID }, slot, date)
}

// RoomFree reports whether the room is unbooked for the slot on the date.
func (l *occupancyLedger) RoomFree(roomID string, slot models.TimeSlot, date time.Time) bool {
	return !l.busy(func(e occupancyEntry) bool { return e.roomID == roomID }, slot, date)
}

// GroupFree reports whether the group is unbooked for the slot on the date.
func (l *occupancyLedger) GroupFree(groupID string, slot models.TimeSlot, date time.Time) bool {
	return !l.busy(func(e occupancyEntry) bool { return e.groupID == groupID }, slot, date)
}

// pickTeacher chooses the teacher for one session: a candidate must be
// declared available and currently free. A teacher already carrying the
// course keeps it when still eligible, otherwise the first eligible teacher
// in list order wins.
func pickTeacher(teachers []models.Teacher, oracle *availabilityOracle, ledger *occupancyLedger, slot models.TimeSlot, date time.Time, preferredID string) (*models.Teacher, bool) {
	var fallback *models.Teacher
	for i := range teachers {
		teacher := &teachers[i]
		if !teacher.Active {
			continue
		}
		if !oracle.TeacherAvailable(teacher.ID, slot.ID, date) {
			continue
		}
		if !ledger.TeacherFree(teacher.ID, slot, date) {
			continue
		}
		if teacher.ID == preferredID {
			return teacher, true
		}
		if fallback == nil {
			fallback = teacher
		}
	}
	if fallback == nil {
		return nil, false
	}
	return fallback, true
}

// pickRoom chooses the smallest open room that seats the group and is free,
// relying on the caller passing rooms sorted by ascending capacity.
func pickRoom(rooms []models.Room, ledger *occupancyLedger, slot models.TimeSlot, date time.Time, groupSize int) (*models.Room, bool) {
	for i := range rooms {
		room := &rooms[i]
		if !room.OpenForBooking || room.Capacity < groupSize {
			continue
		}
		if !ledger.RoomFree(room.ID, slot, date) {
			continue
		}
		return room, true
	}
	return nil, false
}
