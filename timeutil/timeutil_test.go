package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	utc := time.UTC

	// Wednesday maps back to its Monday.
	wed := time.Date(2025, 10, 15, 17, 30, 0, 0, utc)
	assert.Equal(t, time.Date(2025, 10, 13, 0, 0, 0, 0, utc), WeekStart(wed))

	// Monday maps to itself.
	mon := time.Date(2025, 10, 13, 0, 0, 1, 0, utc)
	assert.Equal(t, time.Date(2025, 10, 13, 0, 0, 0, 0, utc), WeekStart(mon))

	// Sunday belongs to the previous week: Monday six days earlier.
	sun := time.Date(2025, 10, 19, 23, 59, 0, 0, utc)
	assert.Equal(t, time.Date(2025, 10, 13, 0, 0, 0, 0, utc), WeekStart(sun))
}

func TestMatchesClock(t *testing.T) {
	loc := time.FixedZone("EDT", -4*60*60)

	// 14:02 local is inside the ±5m window around 14:00.
	now := time.Date(2025, 10, 16, 14, 2, 0, 0, loc)
	assert.True(t, MatchesClock(now, "14:00", loc, Tolerance))

	// Exactly at the edge still matches.
	edge := time.Date(2025, 10, 16, 14, 5, 0, 0, loc)
	assert.True(t, MatchesClock(edge, "14:00", loc, Tolerance))

	// Six minutes out does not.
	outside := time.Date(2025, 10, 16, 14, 6, 0, 0, loc)
	assert.False(t, MatchesClock(outside, "14:00", loc, Tolerance))

	// Before the target also matches within tolerance.
	before := time.Date(2025, 10, 16, 13, 56, 0, 0, loc)
	assert.True(t, MatchesClock(before, "14:00", loc, Tolerance))

	// Malformed clock strings never match.
	assert.False(t, MatchesClock(now, "25:99", loc, Tolerance))
}

func TestMatchesClockConvertsZones(t *testing.T) {
	// 18:02 UTC is 14:02 in UTC-4: the match is evaluated on the local clock.
	loc := time.FixedZone("EDT", -4*60*60)
	now := time.Date(2025, 10, 16, 18, 2, 0, 0, time.UTC)
	assert.True(t, MatchesClock(now, "14:00", loc, Tolerance))
	assert.False(t, MatchesClock(now, "18:00", loc, Tolerance))
}

func TestMatchesWeekday(t *testing.T) {
	// Thursday 01:00 UTC is still Wednesday evening in UTC-5.
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2025, 10, 16, 1, 0, 0, 0, time.UTC)
	assert.True(t, MatchesWeekday(now, time.Wednesday, loc))
	assert.False(t, MatchesWeekday(now, time.Thursday, loc))
	assert.True(t, MatchesWeekday(now, time.Thursday, time.UTC))
}

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday("Thursday")
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, day)

	day, err = ParseWeekday("  sunday ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestNextWeekday(t *testing.T) {
	assert.Equal(t, time.Friday, NextWeekday(time.Thursday))
	assert.Equal(t, time.Sunday, NextWeekday(time.Saturday))
}

func TestIsValidClock(t *testing.T) {
	assert.True(t, IsValidClock("09:00"))
	assert.True(t, IsValidClock("23:59"))
	assert.False(t, IsValidClock("24:00"))
	assert.False(t, IsValidClock("9am"))
}
