package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdates/internal/models"
)

// nineToFive: 8 hourly slots per working day, capacity 1.
func nineToFive() models.WorkingHours {
	return models.WorkingHours{
		Windows: map[time.Weekday]models.Window{
			time.Monday:    {Start: "09:00", End: "17:00"},
			time.Tuesday:   {Start: "09:00", End: "17:00"},
			time.Wednesday: {Start: "09:00", End: "17:00"},
			time.Thursday:  {Start: "09:00", End: "17:00"},
			time.Friday:    {Start: "09:00", End: "17:00"},
		},
		SlotInterval: 60,
		Capacity:     1,
	}
}

// monday is 2026-03-09.
var monday = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

func TestResolveDay_NoConstraints(t *testing.T) {
	// Scenario A: zero bookings, no calendar events.
	day := ResolveDay(monday, nineToFive(), 0, nil)

	require.False(t, day.DayOff)
	require.Len(t, day.Slots, 8)
	for _, s := range day.Slots {
		assert.Equal(t, models.SlotOpen, s.Status)
	}
	assert.False(t, day.FullyBlocked())
}

func TestResolveDay_CalendarOverlap(t *testing.T) {
	// Scenario B: event 10:00-11:30 blocks [10,11) and [11,12) only.
	busy := []models.BusyInterval{{Start: at(monday, 10, 0), End: at(monday, 11, 30)}}

	day := ResolveDay(monday, nineToFive(), 0, busy)
	require.Len(t, day.Slots, 8)

	statuses := make(map[string]models.SlotStatus)
	for _, s := range day.Slots {
		statuses[s.Start.Format("15:04")] = s.Status
	}

	assert.Equal(t, models.SlotBlockedByCalendar, statuses["10:00"])
	assert.Equal(t, models.SlotBlockedByCalendar, statuses["11:00"])
	for _, hh := range []string{"09:00", "12:00", "13:00", "14:00", "15:00", "16:00"} {
		assert.Equal(t, models.SlotOpen, statuses[hh], "slot %s", hh)
	}
	assert.False(t, day.FullyBlocked())
}

func TestResolveDay_CalendarBeatsCapacity(t *testing.T) {
	// A slot with free capacity but an overlapping event stays blocked, and
	// stays blocked by calendar even when capacity is also exhausted.
	busy := []models.BusyInterval{{Start: at(monday, 9, 0), End: at(monday, 17, 0)}}

	day := ResolveDay(monday, nineToFive(), 8, busy)
	for _, s := range day.Slots {
		assert.Equal(t, models.SlotBlockedByCalendar, s.Status)
	}
}

func TestResolveDay_CapacityExhausted(t *testing.T) {
	// Scenario C: 8 bookings fill all 8 slots.
	day := ResolveDay(monday, nineToFive(), 8, nil)

	require.Len(t, day.Slots, 8)
	for _, s := range day.Slots {
		assert.Equal(t, models.SlotBlockedByCapacity, s.Status)
	}
	assert.True(t, day.FullyBlocked())
}

func TestResolveDay_PartialCapacity(t *testing.T) {
	// 3 bookings block 3 slots from the start of the day, 5 remain open.
	day := ResolveDay(monday, nineToFive(), 3, nil)

	open := 0
	for _, s := range day.Slots {
		if s.Status == models.SlotOpen {
			open++
		}
	}
	assert.Equal(t, 5, open)
	assert.Equal(t, models.SlotBlockedByCapacity, day.Slots[0].Status)
	assert.Equal(t, models.SlotOpen, day.Slots[7].Status)
	assert.False(t, day.FullyBlocked())
}

func TestResolveDay_MultiCapacity(t *testing.T) {
	wh := nineToFive()
	wh.Capacity = 2 // 16 bookings fill the day

	day := ResolveDay(monday, wh, 15, nil)
	blocked := 0
	for _, s := range day.Slots {
		if s.Status == models.SlotBlockedByCapacity {
			blocked++
		}
	}
	assert.Equal(t, 7, blocked)
	assert.False(t, day.FullyBlocked())

	day = ResolveDay(monday, wh, 16, nil)
	assert.True(t, day.FullyBlocked())
}

func TestResolveDay_DayOff(t *testing.T) {
	// Scenario D: Sunday has no window; bookings and events are irrelevant.
	sunday := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	busy := []models.BusyInterval{{Start: at(sunday, 10, 0), End: at(sunday, 11, 0)}}

	day := ResolveDay(sunday, nineToFive(), 5, busy)
	assert.True(t, day.DayOff)
	assert.Empty(t, day.Slots)
	assert.True(t, day.FullyBlocked())
}

func TestResolveDay_NoTrailingPartialSlot(t *testing.T) {
	wh := models.WorkingHours{
		Windows:      map[time.Weekday]models.Window{time.Monday: {Start: "09:00", End: "10:30"}},
		SlotInterval: 60,
	}

	day := ResolveDay(monday, wh, 0, nil)
	require.Len(t, day.Slots, 1)
	assert.Equal(t, at(monday, 9, 0), day.Slots[0].Start)
	assert.Equal(t, at(monday, 10, 0), day.Slots[0].End)
}

func TestResolveDay_WindowShorterThanInterval(t *testing.T) {
	wh := models.WorkingHours{
		Windows:      map[time.Weekday]models.Window{time.Monday: {Start: "09:00", End: "09:20"}},
		SlotInterval: 60,
	}

	day := ResolveDay(monday, wh, 0, nil)
	assert.Empty(t, day.Slots)
	assert.True(t, day.FullyBlocked())
}

func TestResolveRange_MissingConfigFailsSafe(t *testing.T) {
	dr := models.NewDateRange(monday, monday.AddDate(0, 0, 4), time.UTC)

	days := ResolveRange(dr, models.WorkingHours{}, false, nil, nil)
	require.Len(t, days, 5)
	for _, d := range days {
		assert.True(t, d.DayOff)
	}
}

func TestResolveRange_FiltersBusyByDate(t *testing.T) {
	dr := models.NewDateRange(monday, monday.AddDate(0, 0, 1), time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	busy := []models.BusyInterval{
		{Start: at(tuesday, 9, 0), End: at(tuesday, 17, 0)},
	}

	days := ResolveRange(dr, nineToFive(), true, nil, busy)
	require.Len(t, days, 2)
	assert.False(t, days[0].FullyBlocked(), "monday untouched by tuesday's event")
	assert.True(t, days[1].FullyBlocked())
}
