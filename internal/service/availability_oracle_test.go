package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

var (
	mondayMorning = models.TimeSlot{ID: "slot-mon-am", Weekday: models.WeekdayMonday, StartTime: "08:00", EndTime: "10:00", DurationMinutes: 120}
	mondayLate    = models.TimeSlot{ID: "slot-mon-late", Weekday: models.WeekdayMonday, StartTime: "09:00", EndTime: "11:00", DurationMinutes: 120}
	mondayNoon    = models.TimeSlot{ID: "slot-mon-noon", Weekday: models.WeekdayMonday, StartTime: "10:00", EndTime: "12:00", DurationMinutes: 120}
)

func firstMonday() time.Time {
	return time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
}

func TestOracleClosedWorld(t *testing.T) {
	oracle := newAvailabilityOracle(nil)
	assert.False(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, firstMonday()))
}

func TestOracleDeclaredAvailability(t *testing.T) {
	monday := firstMonday()
	oracle := newAvailabilityOracle([]models.Availability{{
		TeacherID:  "teacher-1",
		TimeSlotID: mondayMorning.ID,
		StartDate:  monday,
		EndDate:    monday.AddDate(0, 0, 28),
		Available:  true,
	}})

	assert.True(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, monday))
	assert.True(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, monday.AddDate(0, 0, 7)))
	// Outside the declared range.
	assert.False(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, monday.AddDate(0, 0, 35)))
	// Different slot.
	assert.False(t, oracle.TeacherAvailable("teacher-1", mondayNoon.ID, monday))
}

func TestOracleUnavailabilityOverrides(t *testing.T) {
	monday := firstMonday()
	oracle := newAvailabilityOracle([]models.Availability{
		{
			TeacherID:  "teacher-1",
			TimeSlotID: mondayMorning.ID,
			StartDate:  monday,
			EndDate:    monday.AddDate(0, 0, 28),
			Available:  true,
		},
		{
			TeacherID:  "teacher-1",
			TimeSlotID: mondayMorning.ID,
			StartDate:  monday.AddDate(0, 0, 7),
			EndDate:    monday.AddDate(0, 0, 7),
			Available:  false,
		},
	})

	assert.True(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, monday))
	assert.False(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, monday.AddDate(0, 0, 7)))
	assert.True(t, oracle.TeacherAvailable("teacher-1", mondayMorning.ID, monday.AddDate(0, 0, 14)))
}

func TestLedgerBlocksOverlappingSlots(t *testing.T) {
	monday := firstMonday()
	ledger := newOccupancyLedger([]models.TimeSlot{mondayMorning, mondayLate, mondayNoon})
	ledger.Add(models.Assignment{
		ID:         "asg-1",
		TeacherID:  "teacher-1",
		RoomID:     "room-1",
		GroupID:    "group-1",
		TimeSlotID: mondayMorning.ID,
		Date:       monday,
		Status:     models.AssignmentStatusPlanned,
	})

	// Distinct but overlapping slot still collides.
	assert.False(t, ledger.TeacherFree("teacher-1", mondayLate, monday))
	assert.False(t, ledger.RoomFree("room-1", mondayLate, monday))
	assert.False(t, ledger.GroupFree("group-1", mondayLate, monday))

	// Back-to-back slot is fine.
	assert.True(t, ledger.TeacherFree("teacher-1", mondayNoon, monday))
	// Other resources are unaffected.
	assert.True(t, ledger.TeacherFree("teacher-2", mondayLate, monday))
	// Same slot on another week is free.
	assert.True(t, ledger.TeacherFree("teacher-1", mondayLate, monday.AddDate(0, 0, 7)))
}

func TestLedgerSeedSkipsCancelled(t *testing.T) {
	monday := firstMonday()
	ledger := newOccupancyLedger([]models.TimeSlot{mondayMorning})
	ledger.Seed([]models.Assignment{{
		ID:         "asg-1",
		TeacherID:  "teacher-1",
		RoomID:     "room-1",
		GroupID:    "group-1",
		TimeSlotID: mondayMorning.ID,
		Date:       monday,
		Status:     models.AssignmentStatusCancelled,
	}})
	assert.True(t, ledger.TeacherFree("teacher-1", mondayMorning, monday))
}

func TestPickTeacherPrefersContinuity(t *testing.T) {
	monday := firstMonday()
	teachers := []models.Teacher{
		{ID: "teacher-1", FullName: "Amina Diallo", Active: true},
		{ID: "teacher-2", FullName: "Bakary Kone", Active: true},
	}
	oracle := newAvailabilityOracle([]models.Availability{
		{TeacherID: "teacher-1", TimeSlotID: mondayMorning.ID, StartDate: monday, EndDate: monday.AddDate(0, 0, 28), Available: true},
		{TeacherID: "teacher-2", TimeSlotID: mondayMorning.ID, StartDate: monday, EndDate: monday.AddDate(0, 0, 28), Available: true},
	})
	ledger := newOccupancyLedger([]models.TimeSlot{mondayMorning})

	picked, ok := pickTeacher(teachers, oracle, ledger, mondayMorning, monday, "teacher-2")
	require.True(t, ok)
	assert.Equal(t, "teacher-2", picked.ID)

	// No preference falls back to list order.
	picked, ok = pickTeacher(teachers, oracle, ledger, mondayMorning, monday, "")
	require.True(t, ok)
	assert.Equal(t, "teacher-1", picked.ID)

	// Preferred teacher busy: the next eligible one takes over.
	ledger.Add(models.Assignment{TeacherID: "teacher-2", RoomID: "room-x", GroupID: "group-x", TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned})
	picked, ok = pickTeacher(teachers, oracle, ledger, mondayMorning, monday, "teacher-2")
	require.True(t, ok)
	assert.Equal(t, "teacher-1", picked.ID)
}

func TestPickTeacherRequiresDeclaredAvailability(t *testing.T) {
	teachers := []models.Teacher{{ID: "teacher-1", Active: true}}
	ledger := newOccupancyLedger([]models.TimeSlot{mondayMorning})

	_, ok := pickTeacher(teachers, newAvailabilityOracle(nil), ledger, mondayMorning, firstMonday(), "")
	assert.False(t, ok)
}

func TestPickRoomSmallestSufficient(t *testing.T) {
	monday := firstMonday()
	// Sorted by capacity ascending, the way the repository returns them.
	rooms := []models.Room{
		{ID: "room-small", Capacity: 20, OpenForBooking: true},
		{ID: "room-mid", Capacity: 35, OpenForBooking: true},
		{ID: "room-closed", Capacity: 40, OpenForBooking: false},
		{ID: "room-big", Capacity: 120, OpenForBooking: true},
	}
	ledger := newOccupancyLedger([]models.TimeSlot{mondayMorning})

	room, ok := pickRoom(rooms, ledger, mondayMorning, monday, 30)
	require.True(t, ok)
	assert.Equal(t, "room-mid", room.ID)

	// Mid room taken: next open room with enough seats.
	ledger.Add(models.Assignment{TeacherID: "t", RoomID: "room-mid", GroupID: "g", TimeSlotID: mondayMorning.ID, Date: monday, Status: models.AssignmentStatusPlanned})
	room, ok = pickRoom(rooms, ledger, mondayMorning, monday, 30)
	require.True(t, ok)
	assert.Equal(t, "room-big", room.ID)

	// Nothing big enough.
	_, ok = pickRoom(rooms, ledger, mondayMorning, monday, 200)
	assert.False(t, ok)
}
