package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"blockdates/internal/models"
)

// ScheduleConfig is the weekly working-hours configuration for one resource.
type ScheduleConfig struct {
	StaffID             int64             `yaml:"staff_id"`
	MeetingID           int64             `yaml:"meeting_id"`
	SlotIntervalMinutes int               `yaml:"slot_interval_minutes"` // 30
	Capacity            int               `yaml:"capacity"`              // bookings per slot, 1
	Days                map[string]Window `yaml:"days"`                  // mon..sun -> window
	ManualBlocks        []string          `yaml:"manual_blocks,omitempty"`
}

// Window mirrors models.Window at the YAML layer.
type Window struct {
	Start string `yaml:"start"` // "09:00"
	End   string `yaml:"end"`   // "17:00"
}

// SchedulesConfig is the root of schedules.yaml.
type SchedulesConfig struct {
	Schedules []ScheduleConfig `yaml:"schedules"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// LoadSchedules loads and validates the per-resource schedule file.
func LoadSchedules(path string) (*SchedulesConfig, error) {
	if path == "" {
		path = "configs/schedules.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg SchedulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse schedules config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate schedules config: %w", err)
	}

	return &cfg, nil
}

// Validate checks days, time formats and duplicate resources.
func (c *SchedulesConfig) Validate() error {
	seen := make(map[string]bool)
	for i, s := range c.Schedules {
		key := fmt.Sprintf("%d:%d", s.StaffID, s.MeetingID)
		if s.StaffID <= 0 || s.MeetingID <= 0 {
			return fmt.Errorf("schedule[%d]: staff_id and meeting_id must be positive", i)
		}
		if seen[key] {
			return fmt.Errorf("schedule[%d]: duplicate resource %s", i, key)
		}
		seen[key] = true

		for day, w := range s.Days {
			if _, ok := weekdayNames[strings.ToLower(day)]; !ok {
				return fmt.Errorf("schedule[%d]: unknown weekday %q", i, day)
			}
			if err := validateWindow(w); err != nil {
				return fmt.Errorf("schedule[%d] %s: %w", i, day, err)
			}
		}

		for _, d := range s.ManualBlocks {
			if _, err := time.Parse(models.DateLayout, d); err != nil {
				return fmt.Errorf("schedule[%d]: invalid manual block date %q", i, d)
			}
		}
	}
	return nil
}

func validateWindow(w Window) error {
	start, err := parseClock(w.Start)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", w.Start, err)
	}
	end, err := parseClock(w.End)
	if err != nil {
		return fmt.Errorf("invalid end %q: %w", w.End, err)
	}
	if !end.After(start) {
		return fmt.Errorf("window end %q not after start %q", w.End, w.Start)
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}

// Provider serves working hours and manual blocks per resource. It satisfies
// the orchestrator's config-provider dependency.
type Provider struct {
	byResource map[string]ScheduleConfig
}

// NewProvider indexes the loaded schedules by resource.
func NewProvider(cfg *SchedulesConfig) *Provider {
	p := &Provider{byResource: make(map[string]ScheduleConfig)}
	if cfg == nil {
		return p
	}
	for _, s := range cfg.Schedules {
		p.byResource[models.Resource{StaffID: s.StaffID, MeetingID: s.MeetingID}.Key()] = s
	}
	return p
}

// WorkingHours returns the weekly schedule for a resource. ok is false when
// the resource has no configuration at all.
func (p *Provider) WorkingHours(resource models.Resource) (models.WorkingHours, bool) {
	s, ok := p.byResource[resource.Key()]
	if !ok {
		return models.WorkingHours{}, false
	}

	wh := models.WorkingHours{
		Windows:      make(map[time.Weekday]models.Window, len(s.Days)),
		SlotInterval: s.SlotIntervalMinutes,
		Capacity:     s.Capacity,
	}
	for day, w := range s.Days {
		wd := weekdayNames[strings.ToLower(day)]
		wh.Windows[wd] = models.Window{Start: w.Start, End: w.End}
	}
	return wh, ok
}

// ManualBlocks returns configured manual block dates for a resource within
// the given range, as "2006-01-02" strings.
func (p *Provider) ManualBlocks(resource models.Resource, dr models.DateRange) []string {
	s, ok := p.byResource[resource.Key()]
	if !ok || len(s.ManualBlocks) == 0 {
		return nil
	}

	var out []string
	for _, d := range s.ManualBlocks {
		t, err := time.ParseInLocation(models.DateLayout, d, dr.Loc)
		if err != nil {
			continue
		}
		if !t.Before(dr.Start) && !t.After(dr.End) {
			out = append(out, d)
		}
	}
	return out
}

// Resources lists all configured resources, used by cache warmup.
func (p *Provider) Resources() []models.Resource {
	out := make([]models.Resource, 0, len(p.byResource))
	for _, s := range p.byResource {
		out = append(out, models.Resource{StaffID: s.StaffID, MeetingID: s.MeetingID})
	}
	return out
}
