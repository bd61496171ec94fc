package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

// weekdayIndexes maps stored weekday names to a Monday-first index.
var weekdayIndexes = map[string]int{
	models.WeekdayMonday:    0,
	models.WeekdayTuesday:   1,
	models.WeekdayWednesday: 2,
	models.WeekdayThursday:  3,
	models.WeekdayFriday:    4,
	models.WeekdaySaturday:  5,
	models.WeekdaySunday:    6,
}

// parseClock converts a wall-clock string into minutes since midnight.
// Accepts "HH:MM", "HH:MM:SS" and full timestamps carrying a time part,
// since imported slot data mixes the three.
func parseClock(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, appErrors.Clone(appErrors.ErrInvalidTimeFormat, "empty time value")
	}

	// Full timestamps keep only their time portion.
	if idx := strings.IndexAny(value, "T "); idx >= 0 && strings.Contains(value[:idx], "-") {
		value = value[idx+1:]
	}
	value = strings.TrimSuffix(value, "Z")
	if idx := strings.IndexAny(value, "+"); idx >= 0 {
		value = value[:idx]
	}

	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return 0, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("cannot parse time %q", raw))
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("invalid hour in %q", raw))
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("invalid minute in %q", raw))
	}
	return hours*60 + minutes, nil
}

// slotInterval resolves the [start, end) minute window of a slot. When the
// end time is missing or not after the start, duration_minutes supplies it.
func slotInterval(slot models.TimeSlot) (int, int, error) {
	start, err := parseClock(slot.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end := start
	if strings.TrimSpace(slot.EndTime) != "" {
		end, err = parseClock(slot.EndTime)
		if err != nil {
			return 0, 0, err
		}
	}
	if end <= start {
		if slot.DurationMinutes <= 0 {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %s has no usable duration", slot.ID))
		}
		end = start + slot.DurationMinutes
	}
	return start, end, nil
}

// slotDurationMinutes returns the effective slot length.
func slotDurationMinutes(slot models.TimeSlot) (int, error) {
	if slot.DurationMinutes > 0 {
		return slot.DurationMinutes, nil
	}
	start, end, err := slotInterval(slot)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// intervalsOverlap applies half-open comparison: touching endpoints are fine.
func intervalsOverlap(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}

// slotsOverlap reports whether two weekly slots collide. Slots on different
// weekdays never overlap.
func slotsOverlap(a, b models.TimeSlot) (bool, error) {
	if a.Weekday != b.Weekday {
		return false, nil
	}
	startA, endA, err := slotInterval(a)
	if err != nil {
		return false, err
	}
	startB, endB, err := slotInterval(b)
	if err != nil {
		return false, err
	}
	return intervalsOverlap(startA, endA, startB, endB), nil
}

// sameDay compares calendar dates ignoring the time component.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// truncateToDay drops the time component, keeping UTC midnight.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdayIndex returns the Monday-first index of a stored weekday name.
func weekdayIndex(weekday string) (int, error) {
	idx, ok := weekdayIndexes[strings.ToUpper(strings.TrimSpace(weekday))]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", weekday))
	}
	return idx, nil
}

// dateWeekdayIndex returns the Monday-first index of a concrete date.
func dateWeekdayIndex(t time.Time) int {
	// time.Weekday is Sunday-first.
	return (int(t.UTC().Weekday()) + 6) % 7
}

// dateMatchesSlot reports whether the date falls on the slot's weekday.
func dateMatchesSlot(date time.Time, slot models.TimeSlot) (bool, error) {
	idx, err := weekdayIndex(slot.Weekday)
	if err != nil {
		return false, err
	}
	return dateWeekdayIndex(date) == idx, nil
}

// dateBlocked reports whether any blocking event covers the date.
func dateBlocked(date time.Time, events []models.CalendarEvent) bool {
	day := truncateToDay(date)
	for _, event := range events {
		if !event.BlocksAssignments {
			continue
		}
		if !day.Before(truncateToDay(event.StartDate)) && !day.After(truncateToDay(event.EndDate)) {
			return true
		}
	}
	return false
}

// enumerateDates lists every calendar day in [from, to] that is not covered
// by a blocking event, in chronological order.
func enumerateDates(from, to time.Time, blocking []models.CalendarEvent) []time.Time {
	var dates []time.Time
	for day := truncateToDay(from); !day.After(truncateToDay(to)); day = day.AddDate(0, 0, 1) {
		if dateBlocked(day, blocking) {
			continue
		}
		dates = append(dates, day)
	}
	return dates
}
