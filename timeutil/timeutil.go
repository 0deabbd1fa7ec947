package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Tolerance is the window used when matching "now" against a configured
// wall-clock time. The scheduler tick cadence should be at least twice this
// value so a condition cannot be observed true on two consecutive ticks.
const Tolerance = 5 * time.Minute

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday converts a lowercase-insensitive weekday name ("thursday")
// into a time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday name: %q", name)
	}
	return day, nil
}

// IsValidClock reports whether s is a well-formed 24-hour HH:MM string.
func IsValidClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// NextWeekday returns the day immediately following d, wrapping
// Saturday back around to Sunday.
func NextWeekday(d time.Weekday) time.Weekday {
	return (d + 1) % 7
}

// WeekStart returns the Monday that identifies t's week, truncated to a
// date at midnight UTC. Sunday counts as day 7 of the previous week, so a
// Sunday maps to the Monday six days earlier.
func WeekStart(t time.Time) time.Time {
	day := int(t.Weekday())
	if day == 0 {
		day = 7
	}
	monday := t.AddDate(0, 0, -(day - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// MatchesWeekday reports whether "now" falls on the given weekday in loc.
func MatchesWeekday(now time.Time, day time.Weekday, loc *time.Location) bool {
	return now.In(loc).Weekday() == day
}

// MatchesClock reports whether "now", viewed in loc, is within tolerance of
// the target HH:MM wall-clock time on the same local day.
func MatchesClock(now time.Time, clock string, loc *time.Location, tolerance time.Duration) bool {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return false
	}

	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)

	diff := local.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
