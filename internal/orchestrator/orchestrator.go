package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"blockdates/internal/cache"
	"blockdates/internal/metrics"
	"blockdates/internal/models"
	"blockdates/internal/resolver"
	"blockdates/internal/source"
)

// maxConcurrentSubRanges bounds parallel sub-range computations within one
// resolve, one per tier, to limit load on the external calendar.
const maxConcurrentSubRanges = 3

// ConfigProvider serves working hours and manual blocks per resource.
type ConfigProvider interface {
	WorkingHours(resource models.Resource) (models.WorkingHours, bool)
	ManualBlocks(resource models.Resource, dr models.DateRange) []string
}

// SubRange is one tier-aligned slice of the caller's range.
type SubRange struct {
	Range models.DateRange
	Tier  models.CacheTier
}

// Partition splits a range into contiguous sub-ranges aligned to the tier
// day-offset boundaries, clipped to the caller's start and end. Dates at or
// before the hot boundary (past dates included) land in the hot tier.
func Partition(dr models.DateRange, today time.Time) []SubRange {
	bands := []struct {
		end  time.Time
		tier models.CacheTier
	}{
		{today.AddDate(0, 0, models.HotDays), models.TierHot},
		{today.AddDate(0, 0, models.WarmDays), models.TierWarm},
		{time.Time{}, models.TierCold}, // unbounded
	}

	var out []SubRange
	cursor := dr.Start
	for _, b := range bands {
		if cursor.After(dr.End) {
			break
		}
		end := dr.End
		if b.tier != models.TierCold {
			if b.end.Before(cursor) {
				continue
			}
			if b.end.Before(end) {
				end = b.end
			}
		}
		out = append(out, SubRange{
			Range: models.DateRange{Start: cursor, End: end, Loc: dr.Loc},
			Tier:  b.tier,
		})
		cursor = end.AddDate(0, 0, 1)
	}
	return out
}

// Orchestrator drives cache-or-compute per sub-range and merges results in
// date order. Concurrent resolves for the same (resource, sub-range, tier)
// coalesce into a single computation.
type Orchestrator struct {
	fetcher   *source.Fetcher
	cache     *cache.Manager
	schedules ConfigProvider
	logger    *zerolog.Logger
	metrics   *metrics.Metrics

	group   singleflight.Group
	now     func() time.Time
	timeout time.Duration
}

// New constructs an orchestrator with all collaborators injected.
func New(fetcher *source.Fetcher, cm *cache.Manager, schedules ConfigProvider, timeout time.Duration, logger *zerolog.Logger, m *metrics.Metrics) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{
		fetcher:   fetcher,
		cache:     cm,
		schedules: schedules,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		timeout:   timeout,
	}
}

type subResult struct {
	payload []models.BlockedDate
	info    models.SubRangeInfo
}

// Resolve returns the blocked dates for a resource over an arbitrary range.
// forcedTier pins the whole range to one tier when non-nil (auto otherwise).
// The only fatal error is an invalid range; source and cache trouble degrade.
func (o *Orchestrator) Resolve(ctx context.Context, resource models.Resource, dr models.DateRange, forcedTier *models.CacheTier) ([]models.BlockedDate, models.Metadata, error) {
	started := o.now()
	if err := dr.Validate(); err != nil {
		return nil, models.Metadata{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	today := models.Midnight(o.now(), dr.Loc)
	var subs []SubRange
	if forcedTier != nil {
		subs = []SubRange{{Range: dr, Tier: *forcedTier}}
	} else {
		subs = Partition(dr, today)
	}

	results := make([]subResult, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSubRanges)

	for i, sub := range subs {
		g.Go(func() error {
			results[i] = o.resolveSubRange(gctx, resource, sub)
			return nil
		})
	}
	_ = g.Wait() // sub-range failures degrade, they never propagate

	var (
		parts [][]models.BlockedDate
		meta  models.Metadata
	)
	for _, r := range results {
		parts = append(parts, r.payload)
		meta.SubRanges = append(meta.SubRanges, r.info)
		if r.info.Degraded {
			meta.Degraded = true
		}
	}

	o.metrics.ObserveResolve(o.now().Sub(started).Seconds())
	return resolver.MergeSorted(parts), meta, nil
}

func (o *Orchestrator) resolveSubRange(ctx context.Context, resource models.Resource, sub SubRange) subResult {
	info := models.SubRangeInfo{
		Start: sub.Range.Start.Format(models.DateLayout),
		End:   sub.Range.End.Format(models.DateLayout),
		Tier:  sub.Tier,
	}

	key := cache.Key(resource, sub.Range, sub.Tier)

	payload, cachedAt, found, stale := o.cache.Get(ctx, resource, key, sub.Tier)
	if found && !stale {
		info.Source = "cache"
		info.CachedAt = cachedAt
		return subResult{payload: payload, info: info}
	}

	v, err, shared := o.group.Do(key, func() (interface{}, error) {
		return o.compute(ctx, resource, sub, key), nil
	})
	if shared {
		o.metrics.IncCoalesced()
	}
	if err != nil {
		// compute never returns an error; belt and braces for the type system.
		info.Source = "computed"
		info.Degraded = true
		return subResult{info: info}
	}
	return v.(subResult)
}

// compute recomputes one sub-range from sources and caches a non-degraded
// result. A degraded result is returned to the caller but not cached, so the
// next request retries the failed source.
func (o *Orchestrator) compute(ctx context.Context, resource models.Resource, sub SubRange, key string) subResult {
	started := o.now()
	info := models.SubRangeInfo{
		Start:  sub.Range.Start.Format(models.DateLayout),
		End:    sub.Range.End.Format(models.DateLayout),
		Tier:   sub.Tier,
		Source: "computed",
	}

	if ctx.Err() != nil {
		// Budget exhausted: this sub-range degrades to unknown rather than
		// failing the merged response.
		info.Degraded = true
		return subResult{info: info}
	}

	wh, haveConfig := o.schedules.WorkingHours(resource)
	if !haveConfig {
		o.logger.Warn().
			Str("resource", resource.Key()).
			Msg("no working hours configured, blocking all days")
	}

	facts := o.fetcher.Fetch(ctx, resource, sub.Range)
	days := resolver.ResolveRange(sub.Range, wh, haveConfig, facts.Counts, facts.Busy)
	manual := o.schedules.ManualBlocks(resource, sub.Range)
	payload := resolver.Aggregate(days, manual)

	info.Degraded = facts.Degraded
	info.CachedAt = o.now()
	if !facts.Degraded {
		o.cache.Set(ctx, resource, key, payload, sub.Tier)
	}

	o.metrics.ObserveSubRangeCompute(string(sub.Tier), o.now().Sub(started).Seconds())
	return subResult{payload: payload, info: info}
}
