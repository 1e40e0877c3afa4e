package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2025-01-01, so "tomorrow" is Thursday 2025-01-02.
var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestListAvailableSlotsExcludesBusyOverlap(t *testing.T) {
	busy := []BusyInterval{{
		Start: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 2, 11, 0, 0, 0, time.UTC),
	}}

	slots := ListAvailableSlots(fixedNow, busy)

	var times []string
	for _, s := range slots {
		if s.Date == "2025-01-02" {
			times = append(times, s.Time)
		}
	}
	assert.NotContains(t, times, "10:00", "slot overlapping the busy interval must be excluded")
	assert.Contains(t, times, "09:00", "slot ending exactly at busy start is bookable")
	assert.Contains(t, times, "11:00", "slot starting exactly at busy end is bookable")
}

func TestListAvailableSlotsPartialOverlapExcluded(t *testing.T) {
	// Busy 09:30-10:30 knocks out both the 09:00 and 10:00 slots.
	busy := []BusyInterval{{
		Start: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC),
	}}

	slots := ListAvailableSlots(fixedNow, busy)
	for _, s := range slots {
		if s.Date == "2025-01-02" {
			assert.NotEqual(t, "09:00", s.Time)
			assert.NotEqual(t, "10:00", s.Time)
		}
	}
}

func TestListAvailableSlotsNeverWeekendNeverBeyondHorizonNeverOverCap(t *testing.T) {
	// A fully busy Thursday and Friday push the search into next week.
	busy := []BusyInterval{
		{Start: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)},
	}

	slots := ListAvailableSlots(fixedNow, busy)
	require.NotEmpty(t, slots)
	assert.LessOrEqual(t, len(slots), maxSlots)

	horizonEnd := fixedNow.AddDate(0, 0, horizonDays)
	for _, s := range slots {
		day, err := time.Parse("2006-01-02", s.Date)
		require.NoError(t, err)
		assert.NotEqual(t, time.Saturday, day.Weekday())
		assert.NotEqual(t, time.Sunday, day.Weekday())
		assert.False(t, day.After(horizonEnd), "slot %s beyond the 7-day horizon", s.Date)
		assert.True(t, day.After(fixedNow), "slots start tomorrow")
	}
}

func TestListAvailableSlotsCapStopsTraversalEarly(t *testing.T) {
	slots := ListAvailableSlots(fixedNow, nil)
	require.Len(t, slots, maxSlots)
	// First free day has nine working hours; the cap lands before 18:00 on
	// day one, first-found-wins.
	assert.Equal(t, "2025-01-02", slots[0].Date)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "2025-01-02", slots[maxSlots-1].Date)
}

func TestSimulatedSlots(t *testing.T) {
	slots := SimulatedSlots(fixedNow)

	require.NotEmpty(t, slots)
	assert.LessOrEqual(t, len(slots), maxSimulatedSlots)

	for _, s := range slots {
		day, err := time.Parse("2006-01-02", s.Date)
		require.NoError(t, err)
		assert.NotEqual(t, time.Saturday, day.Weekday())
		assert.NotEqual(t, time.Sunday, day.Weekday())
		assert.Contains(t, []string{"10:00", "14:00", "16:00"}, s.Time)
	}

	// First business day carries the full 10/14/16 schedule.
	assert.Equal(t, "10:00", slots[0].Time)
	assert.Equal(t, "14:00", slots[1].Time)
	assert.Equal(t, "16:00", slots[2].Time)
}

func TestSlotDisplayIsHumanReadable(t *testing.T) {
	slots := SimulatedSlots(fixedNow)
	require.NotEmpty(t, slots)
	assert.Contains(t, slots[0].Display, "Thursday")
	assert.Contains(t, slots[0].Display, "10:00")
}
