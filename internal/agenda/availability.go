package agenda

import (
	"fmt"
	"time"
)

const (
	// horizonDays bounds the search window: tomorrow through tomorrow+6.
	horizonDays = 7

	workdayStartHour = 9
	workdayEndHour   = 18
	slotDuration     = 60 * time.Minute

	// maxSlots caps calendar-driven results; traversal stops day by day as
	// soon as the cap is reached, so the result is first-found, not a
	// globally optimal pick.
	maxSlots = 8

	// maxSimulatedSlots caps the static fallback schedule.
	maxSimulatedSlots = 6
)

// ListAvailableSlots computes bookable slots over the next 7 calendar days
// starting tomorrow, excluding weekends and any slot overlapping a busy
// interval. Slots run hourly between 09:00 and 18:00 local time.
func ListAvailableSlots(now time.Time, busy []BusyInterval) []Slot {
	slots := make([]Slot, 0, maxSlots)

	for daysAhead := 1; daysAhead <= horizonDays; daysAhead++ {
		day := now.AddDate(0, 0, daysAhead)
		if isWeekend(day) {
			continue
		}

		for hour := workdayStartHour; hour < workdayEndHour; hour++ {
			slotStart := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, now.Location())
			slotEnd := slotStart.Add(slotDuration)
			if overlapsAny(slotStart, slotEnd, busy) {
				continue
			}
			slots = append(slots, makeSlot(slotStart))
			if len(slots) >= maxSlots {
				return slots
			}
		}
	}
	return slots
}

// SimulatedSlots returns the static fallback schedule used when no calendar
// is reachable: 10:00/14:00/16:00 for the first three business days, then
// 10:00/14:00, capped at 6 slots.
func SimulatedSlots(now time.Time) []Slot {
	slots := make([]Slot, 0, maxSimulatedSlots)
	businessDays := 0

	for daysAhead := 1; daysAhead <= horizonDays; daysAhead++ {
		day := now.AddDate(0, 0, daysAhead)
		if isWeekend(day) {
			continue
		}
		businessDays++

		hours := []int{10, 14, 16}
		if businessDays > 3 {
			hours = []int{10, 14}
		}
		for _, hour := range hours {
			slotStart := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, now.Location())
			slots = append(slots, makeSlot(slotStart))
			if len(slots) >= maxSimulatedSlots {
				return slots
			}
		}
	}
	return slots
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Sunday || wd == time.Saturday
}

// overlapsAny reports whether [slotStart, slotEnd) intersects any busy
// interval: slotStart < busy.End && slotEnd > busy.Start.
func overlapsAny(slotStart, slotEnd time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if slotStart.Before(b.End) && slotEnd.After(b.Start) {
			return true
		}
	}
	return false
}

func makeSlot(start time.Time) Slot {
	return Slot{
		Date:     start.Format("2006-01-02"),
		Time:     start.Format("15:04"),
		DateTime: start.Format("2006-01-02T15:04:05"),
		Display:  fmt.Sprintf("%s at %s", start.Format("Monday, January 2"), start.Format("15:04")),
	}
}
