package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"blockdates/internal/events"
	"blockdates/internal/metrics"
	"blockdates/internal/models"
)

// TierFor maps a sub-range's start offset in days from today to its tier.
func TierFor(startOffsetDays int) models.CacheTier {
	switch {
	case startOffsetDays <= models.HotDays:
		return models.TierHot
	case startOffsetDays <= models.WarmDays:
		return models.TierWarm
	}
	return models.TierCold
}

// Key derives the cache key for a (resource, sub-range, tier) triple. Callers
// must not depend on the key structure.
func Key(resource models.Resource, dr models.DateRange, tier models.CacheTier) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s|%s",
		resource.Key(),
		dr.Start.Format(models.DateLayout),
		dr.End.Format(models.DateLayout),
		tier,
	)))
	return hex.EncodeToString(h[:])
}

// Stats is a point-in-time counter snapshot served by the stats endpoint.
type Stats struct {
	Hits    map[models.CacheTier]uint64 `json:"hits"`
	Misses  map[models.CacheTier]uint64 `json:"misses"`
	Stale   map[models.CacheTier]uint64 `json:"stale"`
	Version uint64                      `json:"global_version"`
}

type tierCounters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
	stale  atomic.Uint64
}

// Manager is the tiered cache: it owns staleness (TTL by age plus the
// invalidation version) and recovers from backend failures by reporting a
// miss. Invalidation only bumps a counter; stale entries are found at the
// next read instead of being enumerated and deleted.
type Manager struct {
	store   Store
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	globalVersion atomic.Uint64
	mu            sync.Mutex
	resourceVer   map[string]uint64

	counters map[models.CacheTier]*tierCounters
}

// NewManager constructs a manager over the given store.
func NewManager(store Store, logger *zerolog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		store:       store,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
		resourceVer: make(map[string]uint64),
		counters: map[models.CacheTier]*tierCounters{
			models.TierHot:  {},
			models.TierWarm: {},
			models.TierCold: {},
		},
	}
}

// Version returns the current invalidation version for a resource: the
// maximum of its own counter and the global counter.
func (m *Manager) Version(resource models.Resource) uint64 {
	m.mu.Lock()
	rv := m.resourceVer[resource.Key()]
	m.mu.Unlock()

	if gv := m.globalVersion.Load(); gv > rv {
		return gv
	}
	return rv
}

// Get returns the cached payload for key if present. stale is true when the
// entry exists but aged past its tier TTL or predates the current version;
// callers recompute on miss or stale. Backend errors degrade to a miss.
func (m *Manager) Get(ctx context.Context, resource models.Resource, key string, tier models.CacheTier) (payload []models.BlockedDate, cachedAt time.Time, found, stale bool) {
	entry, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.metrics.IncCacheBackendError()
		m.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, bypassing")
		m.count(tier).misses.Add(1)
		m.metrics.IncCacheLookup(string(tier), "miss")
		return nil, time.Time{}, false, false
	}
	if !ok {
		m.count(tier).misses.Add(1)
		m.metrics.IncCacheLookup(string(tier), "miss")
		return nil, time.Time{}, false, false
	}

	if m.isStale(entry, resource) {
		m.count(tier).stale.Add(1)
		m.metrics.IncCacheLookup(string(tier), "stale")
		return entry.Payload, entry.CreatedAt, true, true
	}

	m.count(tier).hits.Add(1)
	m.metrics.IncCacheLookup(string(tier), "hit")
	return entry.Payload, entry.CreatedAt, true, false
}

// Set stores a freshly computed payload under key. Backend errors are logged
// and swallowed; the caller already has the computed result.
func (m *Manager) Set(ctx context.Context, resource models.Resource, key string, payload []models.BlockedDate, tier models.CacheTier) {
	entry := Entry{
		Payload:   payload,
		Tier:      tier,
		CreatedAt: m.now(),
		Version:   m.Version(resource),
	}
	if err := m.store.Set(ctx, key, entry, tier.TTL()); err != nil {
		m.metrics.IncCacheBackendError()
		m.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (m *Manager) isStale(entry Entry, resource models.Resource) bool {
	if m.now().Sub(entry.CreatedAt) > entry.Tier.TTL() {
		return true
	}
	return entry.Version < m.Version(resource)
}

// Invalidate bumps the version counter for a resource, or the global counter
// when resource is nil. Existing entries are left in place; the next read
// finds them stale.
func (m *Manager) Invalidate(resource *models.Resource) {
	if resource == nil {
		m.globalVersion.Add(1)
		m.metrics.IncInvalidation("global")
		m.logger.Info().Uint64("version", m.globalVersion.Load()).Msg("global cache invalidation")
		return
	}

	// The resource counter must end up above the global one, or entries
	// written after a global bump would never see this invalidation
	// (staleness compares against max of the two).
	m.mu.Lock()
	v := m.resourceVer[resource.Key()]
	if gv := m.globalVersion.Load(); gv > v {
		v = gv
	}
	v++
	m.resourceVer[resource.Key()] = v
	m.mu.Unlock()

	m.metrics.IncInvalidation("resource")
	m.logger.Info().Str("resource", resource.Key()).Uint64("version", v).Msg("cache invalidation")
}

// OnBookingChanged is the booking-lifecycle invalidation callback.
func (m *Manager) OnBookingChanged(resource *models.Resource) {
	m.Invalidate(resource)
}

// OnCalendarSynced is the calendar-sync invalidation callback.
func (m *Manager) OnCalendarSynced(resource *models.Resource) {
	m.Invalidate(resource)
}

// BindBus subscribes the invalidation callbacks to the application event bus.
func (m *Manager) BindBus(bus *events.Bus) {
	bus.SubscribeBookingChanges(func(e events.Event) {
		m.OnBookingChanged(e.Resource)
	})
	bus.Subscribe(events.TypeCalendarSynced, func(e events.Event) {
		m.OnCalendarSynced(e.Resource)
	})
}

// Snapshot returns current counter values for the stats endpoint.
func (m *Manager) Snapshot() Stats {
	s := Stats{
		Hits:    make(map[models.CacheTier]uint64, 3),
		Misses:  make(map[models.CacheTier]uint64, 3),
		Stale:   make(map[models.CacheTier]uint64, 3),
		Version: m.globalVersion.Load(),
	}
	for tier, c := range m.counters {
		s.Hits[tier] = c.hits.Load()
		s.Misses[tier] = c.misses.Load()
		s.Stale[tier] = c.stale.Load()
	}
	return s
}

func (m *Manager) count(tier models.CacheTier) *tierCounters {
	if c, ok := m.counters[tier]; ok {
		return c
	}
	return m.counters[models.TierCold]
}
