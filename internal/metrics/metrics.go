package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the blocked-dates engine.
type Metrics struct {
	// CacheLookups counts cache reads by tier and outcome (hit, miss, stale).
	CacheLookups *prometheus.CounterVec

	// ResolveDuration is the end-to-end time of one Resolve call.
	ResolveDuration prometheus.Histogram

	// SubRangeComputeDuration is the time to recompute one sub-range.
	SubRangeComputeDuration *prometheus.HistogramVec

	// SourceDegraded counts source calls degraded to empty facts.
	SourceDegraded *prometheus.CounterVec

	// Invalidations counts version bumps by scope (resource, global).
	Invalidations *prometheus.CounterVec

	// CoalescedResolves counts sub-range computations absorbed by an
	// in-flight identical computation.
	CoalescedResolves prometheus.Counter

	// CacheBackendErrors counts cache store failures that were bypassed.
	CacheBackendErrors prometheus.Counter

	// HTTPRequests counts API requests by handler.
	HTTPRequests *prometheus.CounterVec
}

// New creates and registers Prometheus metrics for the engine.
func New(namespace string) *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),

		ResolveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "End-to-end duration of a blocked-dates resolve",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2, 5, 10},
			},
		),

		SubRangeComputeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "subrange_compute_duration_seconds",
				Help:      "Duration of one sub-range recomputation",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10},
			},
			[]string{"tier"},
		),

		SourceDegraded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_degraded_total",
				Help:      "Source adapter calls degraded to empty facts",
			},
			[]string{"source"},
		),

		Invalidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalidations_total",
				Help:      "Cache invalidation version bumps by scope",
			},
			[]string{"scope"},
		),

		CoalescedResolves: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coalesced_resolves_total",
				Help:      "Sub-range computations coalesced into an in-flight one",
			},
		),

		CacheBackendErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_backend_errors_total",
				Help:      "Cache store failures bypassed by direct computation",
			},
		),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests by handler",
			},
			[]string{"handler"},
		),
	}
}

// IncCacheLookup records a cache read outcome for a tier.
func (m *Metrics) IncCacheLookup(tier, outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(tier, outcome).Inc()
}

// IncSourceDegraded records a degraded source call.
func (m *Metrics) IncSourceDegraded(source string) {
	if m == nil {
		return
	}
	m.SourceDegraded.WithLabelValues(source).Inc()
}

// IncInvalidation records a version bump.
func (m *Metrics) IncInvalidation(scope string) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(scope).Inc()
}

// IncCoalesced records a coalesced sub-range computation.
func (m *Metrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.CoalescedResolves.Inc()
}

// IncCacheBackendError records a bypassed cache store failure.
func (m *Metrics) IncCacheBackendError() {
	if m == nil {
		return
	}
	m.CacheBackendErrors.Inc()
}

// IncHTTP records an API request.
func (m *Metrics) IncHTTP(handler string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(handler).Inc()
}

// ObserveResolve records a resolve duration.
func (m *Metrics) ObserveResolve(seconds float64) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(seconds)
}

// ObserveSubRangeCompute records a sub-range computation duration.
func (m *Metrics) ObserveSubRangeCompute(tier string, seconds float64) {
	if m == nil {
		return
	}
	m.SubRangeComputeDuration.WithLabelValues(tier).Observe(seconds)
}
