package api

import (
	"encoding/json"
	"net/http"
	"time"

	"blockdates/internal/events"
	"blockdates/internal/models"
)

// invalidateRequest is the body of POST /api/v1/invalidate. Resource is
// optional; without it the invalidation is global.
type invalidateRequest struct {
	Event     string `json:"event"`
	StaffID   int64  `json:"staff_id"`
	MeetingID int64  `json:"meeting_id"`
}

var knownEvents = map[string]bool{
	events.TypeBookingCreated: true,
	events.TypeBookingUpdated: true,
	events.TypeBookingDeleted: true,
	events.TypeCalendarSynced: true,
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	s.metrics.IncHTTP("invalidate")

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if !knownEvents[req.Event] {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown event type")
		return
	}

	event := events.Event{Type: req.Event}
	if req.StaffID > 0 && req.MeetingID > 0 {
		event.Resource = &models.Resource{StaffID: req.StaffID, MeetingID: req.MeetingID}
	}
	s.bus.Publish(event)

	s.logger.Info().
		Str("event", req.Event).
		Bool("global", event.Resource == nil).
		Msg("cache invalidation requested")
	writeData(w, map[string]string{"status": "invalidated"})
}

// handleCalendarWebhook accepts Google Calendar push notifications. The
// initial "sync" message confirms channel setup and carries no change, so it
// is acknowledged without invalidating anything. The channel token carries
// the resource key set at watch time; without one the invalidation is global.
func (s *Server) handleCalendarWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	s.metrics.IncHTTP("calendar_webhook")

	state := r.Header.Get("X-Goog-Resource-State")
	if state == "sync" {
		w.WriteHeader(http.StatusOK)
		return
	}

	event := events.Event{Type: events.TypeCalendarSynced, CreatedAt: time.Now()}
	if resource, ok := models.ParseResourceKey(r.Header.Get("X-Goog-Channel-Token")); ok {
		event.Resource = &resource
	}
	s.bus.Publish(event)

	s.logger.Info().
		Str("state", state).
		Str("channel", r.Header.Get("X-Goog-Channel-Id")).
		Bool("global", event.Resource == nil).
		Msg("calendar change notification")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.metrics.IncHTTP("cache_stats")
	writeData(w, s.cache.Snapshot())
}
