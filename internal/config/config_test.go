package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockdates/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  timezone: "Europe/Berlin"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "Europe/Berlin", cfg.Server.Timezone)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "data/bookings.db", cfg.Bookings.DatabasePath)
	assert.Equal(t, 10*time.Second, cfg.SourceTimeout())
	assert.Equal(t, 30*time.Second, cfg.ResolveTimeout())

	perSec, burst := cfg.CalendarRate()
	assert.Equal(t, 5.0, perSec)
	assert.Equal(t, 10, burst)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")
	path := writeFile(t, "config.yaml", `
cache:
  backend: redis
  redis:
    address: "${TEST_REDIS_ADDR}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Address)
}

func TestLoad_BadTimezone(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  timezone: "Mars/Olympus"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

const schedulesYAML = `
schedules:
  - staff_id: 11
    meeting_id: 22
    slot_interval_minutes: 60
    capacity: 1
    days:
      mon: {start: "09:00", end: "17:00"}
      tue: {start: "09:00", end: "17:00"}
      wed: {start: "09:00", end: "13:00"}
    manual_blocks:
      - "2026-05-01"
      - "2026-12-31"
`

func TestLoadSchedules(t *testing.T) {
	path := writeFile(t, "schedules.yaml", schedulesYAML)

	cfg, err := LoadSchedules(path)
	require.NoError(t, err)
	require.Len(t, cfg.Schedules, 1)

	p := NewProvider(cfg)
	res := models.Resource{StaffID: 11, MeetingID: 22}

	wh, ok := p.WorkingHours(res)
	require.True(t, ok)
	assert.Equal(t, 60, wh.SlotInterval)

	w, ok := wh.Windows[time.Monday]
	require.True(t, ok)
	assert.Equal(t, "09:00", w.Start)
	assert.Equal(t, "17:00", w.End)

	_, ok = wh.Windows[time.Sunday]
	assert.False(t, ok)

	_, ok = p.WorkingHours(models.Resource{StaffID: 99, MeetingID: 99})
	assert.False(t, ok)
}

func TestLoadSchedules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"UnknownWeekday", `
schedules:
  - staff_id: 1
    meeting_id: 1
    days:
      funday: {start: "09:00", end: "17:00"}
`},
		{"EndBeforeStart", `
schedules:
  - staff_id: 1
    meeting_id: 1
    days:
      mon: {start: "17:00", end: "09:00"}
`},
		{"DuplicateResource", `
schedules:
  - staff_id: 1
    meeting_id: 1
    days: {}
  - staff_id: 1
    meeting_id: 1
    days: {}
`},
		{"BadManualBlock", `
schedules:
  - staff_id: 1
    meeting_id: 1
    days: {}
    manual_blocks: ["not-a-date"]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "schedules.yaml", tt.yaml)
			_, err := LoadSchedules(path)
			assert.Error(t, err)
		})
	}
}

func TestProvider_ManualBlocks(t *testing.T) {
	path := writeFile(t, "schedules.yaml", schedulesYAML)
	cfg, err := LoadSchedules(path)
	require.NoError(t, err)

	p := NewProvider(cfg)
	res := models.Resource{StaffID: 11, MeetingID: 22}

	dr := models.NewDateRange(
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		time.UTC,
	)
	assert.Equal(t, []string{"2026-05-01"}, p.ManualBlocks(res, dr))

	dr = models.NewDateRange(
		time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		time.UTC,
	)
	assert.Empty(t, p.ManualBlocks(res, dr))
}
