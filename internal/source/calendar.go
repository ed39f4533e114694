package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"blockdates/internal/models"
)

// GoogleCalendar fetches busy intervals from the Google Calendar FreeBusy
// API. All calls are rate limited to protect the external quota.
type GoogleCalendar struct {
	service    *calendar.Service
	calendarID string
	limiter    *rate.Limiter
	logger     *zerolog.Logger
}

// NewGoogleCalendar builds the adapter from a static OAuth token. Token
// acquisition and refresh are the surrounding application's concern.
func NewGoogleCalendar(ctx context.Context, calendarID, accessToken string, perSec float64, burst int, logger *zerolog.Logger) (*GoogleCalendar, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &GoogleCalendar{
		service:    svc,
		calendarID: calendarID,
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
		logger:     logger,
	}, nil
}

// BusyIntervals queries FreeBusy for the range and returns half-open busy
// periods in the range's timezone.
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, resource models.Resource, dr models.DateRange) ([]models.BusyInterval, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: calendar rate wait: %v", models.ErrSourceUnavailable, err)
	}

	req := &calendar.FreeBusyRequest{
		TimeMin:  dr.Start.Format(time.RFC3339),
		TimeMax:  dr.End.AddDate(0, 0, 1).Format(time.RFC3339), // inclusive end date
		TimeZone: dr.Loc.String(),
		Items:    []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}

	resp, err := g.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query: %v", models.ErrSourceUnavailable, err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, nil
	}

	var out []models.BusyInterval
	for _, p := range cal.Busy {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			g.logger.Warn().Str("value", p.Start).Msg("skipping busy period with bad start")
			continue
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			g.logger.Warn().Str("value", p.End).Msg("skipping busy period with bad end")
			continue
		}
		out = append(out, models.BusyInterval{Start: start.In(dr.Loc), End: end.In(dr.Loc)})
	}

	g.logger.Debug().
		Str("resource", resource.Key()).
		Int("busy", len(out)).
		Msg("freebusy fetched")
	return out, nil
}
