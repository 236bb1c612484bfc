package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse("2026-1-13")
	require.Error(t, err)
	assert.False(t, Valid("13/01/2026"))
	assert.True(t, Valid("2026-01-13"))
}

func TestTodayUsesLocation(t *testing.T) {
	now := time.Date(2026, 1, 13, 3, 0, 0, 0, time.UTC)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	assert.Equal(t, "2026-01-13", Today(now, nil))
	assert.Equal(t, "2026-01-12", Today(now, ny))
}

func TestAddDaysCrossesMonth(t *testing.T) {
	got, err := AddDays("2026-01-31", 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", got)
	assert.Equal(t, "2025-12-31", MustAddDays("2026-01-01", -1))
}

func TestRangeAndBetween(t *testing.T) {
	days, err := Range("2026-01-13", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-13", "2026-01-14", "2026-01-15"}, days)

	between, err := Between("2026-02-27", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-27", "2026-02-28", "2026-03-01"}, between)

	_, err = Between("2026-03-01", "2026-02-27")
	require.Error(t, err)
}

func TestWeekStartIsMonday(t *testing.T) {
	cases := map[string]string{
		"2026-01-12": "2026-01-12", // Monday
		"2026-01-15": "2026-01-12",
		"2026-01-18": "2026-01-12", // Sunday
		"2026-01-19": "2026-01-19",
	}
	for day, want := range cases {
		got, err := WeekStart(day)
		require.NoError(t, err)
		assert.Equal(t, want, got, day)
	}
}

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday(" tuesday ")
	assert.True(t, ok)
	assert.Equal(t, time.Tuesday, d)

	_, ok = ParseWeekday("Funday")
	assert.False(t, ok)
}
