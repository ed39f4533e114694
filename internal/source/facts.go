package source

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"blockdates/internal/metrics"
	"blockdates/internal/models"
)

// Facts is the merged fact set for one sub-range. Degraded is true when any
// source failed and contributed nothing; missing facts only lose true
// positives, they never invent blocks.
type Facts struct {
	Counts   models.BookingCounts
	Busy     []models.BusyInterval
	Degraded bool
}

// Fetcher pulls facts from both sources under a per-source timeout.
type Fetcher struct {
	bookings BookingSource
	calendar CalendarSource
	timeout  time.Duration
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
}

// NewFetcher builds a fetcher. calendar may be nil when the external
// calendar integration is disabled.
func NewFetcher(bookings BookingSource, calendar CalendarSource, timeout time.Duration, logger *zerolog.Logger, m *metrics.Metrics) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		bookings: bookings,
		calendar: calendar,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
	}
}

// Fetch gathers booking counts and busy intervals for the sub-range. A
// source that errors or times out is degraded to an empty fact set.
func (f *Fetcher) Fetch(ctx context.Context, resource models.Resource, dr models.DateRange) Facts {
	facts := Facts{Counts: make(models.BookingCounts)}

	if f.bookings != nil {
		bctx, cancel := context.WithTimeout(ctx, f.timeout)
		counts, err := f.bookings.BookingCounts(bctx, resource, dr)
		cancel()
		if err != nil {
			f.degrade(&facts, "bookings", resource, err)
		} else {
			facts.Counts = counts
		}
	}

	if f.calendar != nil {
		cctx, cancel := context.WithTimeout(ctx, f.timeout)
		busy, err := f.calendar.BusyIntervals(cctx, resource, dr)
		cancel()
		if err != nil {
			f.degrade(&facts, "calendar", resource, err)
		} else {
			facts.Busy = busy
		}
	}

	return facts
}

func (f *Fetcher) degrade(facts *Facts, source string, resource models.Resource, err error) {
	facts.Degraded = true
	f.metrics.IncSourceDegraded(source)
	f.logger.Warn().
		Err(err).
		Str("source", source).
		Str("resource", resource.Key()).
		Msg("source degraded, continuing without its facts")
}
