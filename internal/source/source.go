// Package source holds the read-only adapters the resolver draws facts from:
// the booking ledger, the external calendar and configured manual blocks.
// Adapters never mutate their backends and never fail a query outright; the
// Facts fetcher degrades a broken source to an empty fact set.
package source

import (
	"context"

	"blockdates/internal/models"
)

// BookingSource reports active booking counts per date for a resource.
type BookingSource interface {
	BookingCounts(ctx context.Context, resource models.Resource, dr models.DateRange) (models.BookingCounts, error)
}

// CalendarSource reports external busy intervals for a resource.
type CalendarSource interface {
	BusyIntervals(ctx context.Context, resource models.Resource, dr models.DateRange) ([]models.BusyInterval, error)
}
