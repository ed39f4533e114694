package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxRangeDays is the maximum number of days allowed in a blocked-dates query.
const MaxRangeDays = 365

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var (
	ErrInvalidRange      = errors.New("invalid date range")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrConfigMissing     = errors.New("working hours config missing")
	ErrCacheBackend      = errors.New("cache backend error")
)

// Resource identifies a bookable entity: a staff member offering a meeting type.
// The pair is immutable once constructed.
type Resource struct {
	StaffID   int64 `json:"staff_id"`
	MeetingID int64 `json:"meeting_id"`
}

// Key returns the canonical string form used in cache keys and logs.
func (r Resource) Key() string {
	return fmt.Sprintf("%d:%d", r.StaffID, r.MeetingID)
}

// ParseResourceKey parses the canonical "staff:meeting" form produced by Key.
func ParseResourceKey(s string) (Resource, bool) {
	staff, meeting, ok := strings.Cut(s, ":")
	if !ok {
		return Resource{}, false
	}
	staffID, err := strconv.ParseInt(staff, 10, 64)
	if err != nil || staffID <= 0 {
		return Resource{}, false
	}
	meetingID, err := strconv.ParseInt(meeting, 10, 64)
	if err != nil || meetingID <= 0 {
		return Resource{}, false
	}
	return Resource{StaffID: staffID, MeetingID: meetingID}, true
}

// DateRange is an inclusive [Start, End] span of calendar dates in a single
// timezone. Start and End are midnight in Loc.
type DateRange struct {
	Start time.Time
	End   time.Time
	Loc   *time.Location
}

// NewDateRange normalizes both bounds to midnight in loc.
func NewDateRange(start, end time.Time, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	return DateRange{
		Start: Midnight(start, loc),
		End:   Midnight(end, loc),
		Loc:   loc,
	}
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Validate checks the range invariants: Start <= End, span <= MaxRangeDays.
func (dr DateRange) Validate() error {
	if dr.End.Before(dr.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRange,
			dr.End.Format(DateLayout), dr.Start.Format(DateLayout))
	}
	if dr.DaysSpan() > MaxRangeDays {
		return fmt.Errorf("%w: %d days exceeds maximum %d", ErrInvalidRange, dr.DaysSpan(), MaxRangeDays)
	}
	return nil
}

// DaysSpan returns End - Start in calendar days (0 for a single-day range).
// Rounding absorbs the hour lost or gained on DST transition days, which
// would otherwise skew the count in non-UTC ranges.
func (dr DateRange) DaysSpan() int {
	return int(math.Round(dr.End.Sub(dr.Start).Hours() / 24))
}

// Days calls fn for every date in the range, in ascending order.
func (dr DateRange) Days(fn func(date time.Time)) {
	for d := dr.Start; !d.After(dr.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// Window is a daily working window, times as "HH:MM" local strings.
type Window struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// WorkingHours describes a resource's weekly schedule. A weekday without a
// window means the whole day is unavailable.
type WorkingHours struct {
	Windows      map[time.Weekday]Window
	SlotInterval int // minutes
	Capacity     int // bookings per slot, default 1
}

// WindowFor returns the window for the weekday of date, if any.
func (wh WorkingHours) WindowFor(date time.Time) (Window, bool) {
	w, ok := wh.Windows[date.Weekday()]
	return w, ok
}

// SlotCapacity returns the configured capacity, defaulting to 1.
func (wh WorkingHours) SlotCapacity() int {
	if wh.Capacity <= 0 {
		return 1
	}
	return wh.Capacity
}

// Interval returns the slot interval as a duration, defaulting to 30 minutes.
func (wh WorkingHours) Interval() time.Duration {
	if wh.SlotInterval <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(wh.SlotInterval) * time.Minute
}

// BookingCounts maps date ("2006-01-02") to the number of active bookings.
type BookingCounts map[string]int

// BusyInterval is a half-open [Start, End) busy period from an external calendar.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the interval overlaps half-open [start, end).
func (bi BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(bi.End) && bi.Start.Before(end)
}

// SlotStatus classifies a candidate slot.
type SlotStatus int

const (
	SlotOpen SlotStatus = iota
	SlotBlockedByCapacity
	SlotBlockedByCalendar
)

func (s SlotStatus) String() string {
	switch s {
	case SlotOpen:
		return "open"
	case SlotBlockedByCapacity:
		return "blocked_by_capacity"
	case SlotBlockedByCalendar:
		return "blocked_by_calendar"
	}
	return "unknown"
}

// Slot is a candidate booking window [Start, End) with its resolved status.
type Slot struct {
	Start  time.Time
	End    time.Time
	Status SlotStatus
}

// BlockReason explains why a date is blocked. Precedence when a date blocks
// for several reasons: manual > calendar_conflict > no_available_slots > day_off.
type BlockReason string

const (
	ReasonManual           BlockReason = "manual"
	ReasonCalendarConflict BlockReason = "calendar_conflict"
	ReasonNoAvailableSlots BlockReason = "no_available_slots"
	ReasonDayOff           BlockReason = "day_off"
)

// precedence: lower wins.
func (r BlockReason) precedence() int {
	switch r {
	case ReasonManual:
		return 0
	case ReasonCalendarConflict:
		return 1
	case ReasonNoAvailableSlots:
		return 2
	case ReasonDayOff:
		return 3
	}
	return 4
}

// Wins reports whether r takes precedence over other for the same date.
func (r BlockReason) Wins(other BlockReason) bool {
	return r.precedence() < other.precedence()
}

// BlockedDate is one fully-blocked calendar date. Date is "2006-01-02".
type BlockedDate struct {
	Date   string      `json:"date"`
	Reason BlockReason `json:"reason"`
}

// CacheTier classifies how far in the future a sub-range starts.
type CacheTier string

const (
	TierHot  CacheTier = "hot"
	TierWarm CacheTier = "warm"
	TierCold CacheTier = "cold"
)

// Tier day-offset boundaries and TTLs.
const (
	HotDays  = 30
	WarmDays = 90
	ColdDays = MaxRangeDays

	HotTTL  = time.Hour
	WarmTTL = 24 * time.Hour
	ColdTTL = 7 * 24 * time.Hour
)

// TTL returns the tier's time-to-live.
func (t CacheTier) TTL() time.Duration {
	switch t {
	case TierHot:
		return HotTTL
	case TierWarm:
		return WarmTTL
	}
	return ColdTTL
}

// ParseTier parses "hot", "warm", "cold". Empty and "auto" return ok=false.
func ParseTier(s string) (CacheTier, bool) {
	switch s {
	case string(TierHot):
		return TierHot, true
	case string(TierWarm):
		return TierWarm, true
	case string(TierCold):
		return TierCold, true
	}
	return "", false
}

// SubRangeInfo is per-sub-range provenance attached to a resolve result.
type SubRangeInfo struct {
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Tier     CacheTier `json:"tier"`
	Source   string    `json:"source"` // "cache" or "computed"
	CachedAt time.Time `json:"cached_at"`
	Degraded bool      `json:"degraded,omitempty"`
}

// Metadata describes how a resolve result was assembled.
type Metadata struct {
	SubRanges []SubRangeInfo `json:"sub_ranges"`
	Degraded  bool           `json:"degraded,omitempty"`
}

// CacheHit reports whether every sub-range was served from cache.
func (m Metadata) CacheHit() bool {
	if len(m.SubRanges) == 0 {
		return false
	}
	for _, sr := range m.SubRanges {
		if sr.Source != "cache" {
			return false
		}
	}
	return true
}
