package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blockdates/internal/models"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) BookingCounts(ctx context.Context, resource models.Resource, dr models.DateRange) (models.BookingCounts, error) {
	args := m.Called(ctx, resource, dr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.BookingCounts), args.Error(1)
}

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) BusyIntervals(ctx context.Context, resource models.Resource, dr models.DateRange) ([]models.BusyInterval, error) {
	args := m.Called(ctx, resource, dr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BusyInterval), args.Error(1)
}

var (
	testResource = models.Resource{StaffID: 1, MeetingID: 2}
	anyCtx       = mock.Anything
)

func testRange() models.DateRange {
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return models.NewDateRange(start, start.AddDate(0, 0, 7), time.UTC)
}

func newFetcher(b BookingSource, c CalendarSource) *Fetcher {
	logger := zerolog.New(io.Discard)
	return NewFetcher(b, c, time.Second, &logger, nil)
}

func TestFetcher_BothSourcesHealthy(t *testing.T) {
	bookings := new(mockBookings)
	cal := new(mockCalendar)
	dr := testRange()

	counts := models.BookingCounts{"2026-03-10": 2}
	busy := []models.BusyInterval{{
		Start: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}}
	bookings.On("BookingCounts", anyCtx, testResource, dr).Return(counts, nil).Once()
	cal.On("BusyIntervals", anyCtx, testResource, dr).Return(busy, nil).Once()

	facts := newFetcher(bookings, cal).Fetch(context.Background(), testResource, dr)

	assert.False(t, facts.Degraded)
	assert.Equal(t, counts, facts.Counts)
	assert.Equal(t, busy, facts.Busy)
	bookings.AssertExpectations(t)
	cal.AssertExpectations(t)
}

func TestFetcher_BookingFailureDegrades(t *testing.T) {
	bookings := new(mockBookings)
	cal := new(mockCalendar)
	dr := testRange()

	bookings.On("BookingCounts", anyCtx, testResource, dr).
		Return(nil, errors.New("ledger down")).Once()
	cal.On("BusyIntervals", anyCtx, testResource, dr).
		Return([]models.BusyInterval{}, nil).Once()

	facts := newFetcher(bookings, cal).Fetch(context.Background(), testResource, dr)

	assert.True(t, facts.Degraded)
	assert.Empty(t, facts.Counts, "degraded source contributes no facts")
}

func TestFetcher_CalendarFailureDegrades(t *testing.T) {
	bookings := new(mockBookings)
	cal := new(mockCalendar)
	dr := testRange()

	bookings.On("BookingCounts", anyCtx, testResource, dr).
		Return(models.BookingCounts{}, nil).Once()
	cal.On("BusyIntervals", anyCtx, testResource, dr).
		Return(nil, models.ErrSourceUnavailable).Once()

	facts := newFetcher(bookings, cal).Fetch(context.Background(), testResource, dr)

	assert.True(t, facts.Degraded)
	assert.Empty(t, facts.Busy)
}

func TestFetcher_NilCalendarSkipped(t *testing.T) {
	bookings := new(mockBookings)
	dr := testRange()

	bookings.On("BookingCounts", anyCtx, testResource, dr).
		Return(models.BookingCounts{}, nil).Once()

	facts := newFetcher(bookings, nil).Fetch(context.Background(), testResource, dr)

	assert.False(t, facts.Degraded)
	assert.Empty(t, facts.Busy)
}

func TestFetcher_SlowSourceTimesOut(t *testing.T) {
	slow := &slowBookings{delay: 200 * time.Millisecond}
	logger := zerolog.New(io.Discard)
	f := NewFetcher(slow, nil, 20*time.Millisecond, &logger, nil)

	start := time.Now()
	facts := f.Fetch(context.Background(), testResource, testRange())

	require.True(t, facts.Degraded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

type slowBookings struct {
	delay time.Duration
}

func (s *slowBookings) BookingCounts(ctx context.Context, _ models.Resource, _ models.DateRange) (models.BookingCounts, error) {
	select {
	case <-time.After(s.delay):
		return models.BookingCounts{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
