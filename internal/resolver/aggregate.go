package resolver

import (
	"sort"

	"blockdates/internal/models"
)

// Aggregate rolls per-day slot results up into the sorted, deduplicated
// blocked-date list. Manual blocks apply regardless of slot status. When a
// date qualifies under several reasons, the first applicable wins:
// manual > calendar_conflict > no_available_slots > day_off.
func Aggregate(days []DayResult, manualBlocks []string) []models.BlockedDate {
	byDate := make(map[string]models.BlockReason)

	for _, day := range days {
		if !day.FullyBlocked() {
			continue
		}
		date := day.Date.Format(models.DateLayout)
		merge(byDate, date, dayReason(day))
	}

	for _, date := range manualBlocks {
		merge(byDate, date, models.ReasonManual)
	}

	out := make([]models.BlockedDate, 0, len(byDate))
	for date, reason := range byDate {
		out = append(out, models.BlockedDate{Date: date, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func merge(byDate map[string]models.BlockReason, date string, reason models.BlockReason) {
	if existing, ok := byDate[date]; !ok || reason.Wins(existing) {
		byDate[date] = reason
	}
}

// dayReason picks the rollup reason for a fully-blocked day. The day counts
// as a calendar conflict only when calendar overlaps did all the blocking.
func dayReason(day DayResult) models.BlockReason {
	if day.DayOff {
		return models.ReasonDayOff
	}

	allCalendar := len(day.Slots) > 0
	for _, s := range day.Slots {
		if s.Status != models.SlotBlockedByCalendar {
			allCalendar = false
			break
		}
	}
	if allCalendar {
		return models.ReasonCalendarConflict
	}
	return models.ReasonNoAvailableSlots
}

// MergeSorted concatenates already-sorted, disjoint sub-range results in
// order. Sub-ranges are contiguous and ascending, so no re-sort is needed.
func MergeSorted(parts [][]models.BlockedDate) []models.BlockedDate {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]models.BlockedDate, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
