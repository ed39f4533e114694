package resolver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"blockdates/internal/models"
)

// DayResult holds the resolved slot statuses for one date. DayOff is set when
// the weekday has no working window; Slots is empty in that case.
type DayResult struct {
	Date   time.Time
	DayOff bool
	Slots  []models.Slot
}

// FullyBlocked reports whether the date has zero open slots.
func (d DayResult) FullyBlocked() bool {
	if d.DayOff {
		return true
	}
	if len(d.Slots) == 0 {
		// A working window too short to fit a single slot offers nothing to book.
		return true
	}
	for _, s := range d.Slots {
		if s.Status == models.SlotOpen {
			return false
		}
	}
	return true
}

// ResolveDay computes per-slot statuses for a single date.
//
// Calendar conflicts take priority: a slot overlapping any busy interval is
// blocked regardless of remaining booking capacity. Capacity blocking models
// the ledger's sequential fill: the date's booking count, divided by per-slot
// capacity, blocks that many slots from the start of the day. A date whose
// count reaches capacity x total slots therefore has every slot blocked.
func ResolveDay(date time.Time, wh models.WorkingHours, bookingCount int, busy []models.BusyInterval) DayResult {
	result := DayResult{Date: date}

	window, ok := wh.WindowFor(date)
	if !ok {
		result.DayOff = true
		return result
	}

	start, err := parseTimeOnDate(date, window.Start)
	if err != nil {
		result.DayOff = true
		return result
	}
	end, err := parseTimeOnDate(date, window.End)
	if err != nil {
		result.DayOff = true
		return result
	}

	interval := wh.Interval()
	capacity := wh.SlotCapacity()

	capacityIdx := 0
	for cursor := start; !cursor.Add(interval).After(end); cursor = cursor.Add(interval) {
		slot := models.Slot{Start: cursor, End: cursor.Add(interval), Status: models.SlotOpen}

		for _, b := range busy {
			if b.Overlaps(slot.Start, slot.End) {
				slot.Status = models.SlotBlockedByCalendar
				break
			}
		}

		if slot.Status == models.SlotOpen {
			if bookingCount >= capacity*(capacityIdx+1) {
				slot.Status = models.SlotBlockedByCapacity
			}
			capacityIdx++
		}

		result.Slots = append(result.Slots, slot)
	}

	return result
}

// ResolveRange resolves every date in the range. A nil WorkingHours config
// (haveConfig=false) fails safe: every day is reported as day_off.
func ResolveRange(dr models.DateRange, wh models.WorkingHours, haveConfig bool, counts models.BookingCounts, busy []models.BusyInterval) []DayResult {
	var results []DayResult
	dr.Days(func(date time.Time) {
		if !haveConfig {
			results = append(results, DayResult{Date: date, DayOff: true})
			return
		}
		count := counts[date.Format(models.DateLayout)]
		results = append(results, ResolveDay(date, wh, count, busyOnDate(busy, date)))
	})
	return results
}

// busyOnDate filters intervals touching the given calendar day.
func busyOnDate(busy []models.BusyInterval, date time.Time) []models.BusyInterval {
	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)

	var out []models.BusyInterval
	for _, b := range busy {
		if b.Overlaps(dayStart, dayEnd) {
			out = append(out, b)
		}
	}
	return out
}

func parseTimeOnDate(date time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
