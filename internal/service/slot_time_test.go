package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

func TestParseClockFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"08:00", 480},
		{"08:30:00", 510},
		{"2026-09-07T14:00:00Z", 840},
		{"2026-09-07 09:15:00", 555},
		{"23:59", 1439},
		{"00:00", 0},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "noon", "25:00", "10:75", "10"} {
		_, err := parseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestIntervalsOverlapHalfOpen(t *testing.T) {
	// Touching endpoints do not collide.
	assert.False(t, intervalsOverlap(480, 600, 600, 720))
	assert.False(t, intervalsOverlap(600, 720, 480, 600))
	assert.True(t, intervalsOverlap(480, 600, 540, 660))
	assert.True(t, intervalsOverlap(480, 720, 540, 600))
	assert.True(t, intervalsOverlap(540, 600, 480, 720))
}

func TestSlotsOverlapDifferentWeekdays(t *testing.T) {
	monday := models.TimeSlot{Weekday: models.WeekdayMonday, StartTime: "08:00", EndTime: "10:00"}
	tuesday := models.TimeSlot{Weekday: models.WeekdayTuesday, StartTime: "08:00", EndTime: "10:00"}

	overlap, err := slotsOverlap(monday, tuesday)
	require.NoError(t, err)
	assert.False(t, overlap)

	overlap, err = slotsOverlap(monday, models.TimeSlot{Weekday: models.WeekdayMonday, StartTime: "09:00", EndTime: "11:00"})
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestSlotIntervalFallsBackToDuration(t *testing.T) {
	slot := models.TimeSlot{Weekday: models.WeekdayMonday, StartTime: "08:00", DurationMinutes: 90}
	start, end, err := slotInterval(slot)
	require.NoError(t, err)
	assert.Equal(t, 480, start)
	assert.Equal(t, 570, end)
}

func TestDateWeekdayIndexMondayFirst(t *testing.T) {
	// 2026-09-07 is a Monday.
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, dateWeekdayIndex(monday))
	assert.Equal(t, 6, dateWeekdayIndex(monday.AddDate(0, 0, 6)))

	matches, err := dateMatchesSlot(monday, models.TimeSlot{Weekday: models.WeekdayMonday, StartTime: "08:00", EndTime: "10:00"})
	require.NoError(t, err)
	assert.True(t, matches)
}

func TestEnumerateDatesSkipsBlockedDays(t *testing.T) {
	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)
	blocking := []models.CalendarEvent{{
		Title:             "exam week start",
		StartDate:         from.AddDate(0, 0, 2),
		EndDate:           from.AddDate(0, 0, 3),
		BlocksAssignments: true,
	}}

	dates := enumerateDates(from, to, blocking)
	require.Len(t, dates, 5)
	for _, date := range dates {
		assert.False(t, dateBlocked(date, blocking))
	}
	assert.Equal(t, from, dates[0])
	assert.Equal(t, to, dates[len(dates)-1])
}

func TestEnumerateDatesIgnoresNonBlockingEvents(t *testing.T) {
	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{{
		Title:             "open house",
		StartDate:         from,
		EndDate:           from,
		BlocksAssignments: false,
	}}
	dates := enumerateDates(from, from, events)
	assert.Len(t, dates, 1)
}
