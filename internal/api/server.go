// Package api exposes the blocked-dates query endpoint, the invalidation
// triggers and the cache stats surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blockdates/internal/cache"
	"blockdates/internal/events"
	"blockdates/internal/metrics"
	"blockdates/internal/models"
)

// Resolver is the query orchestrator as seen by the HTTP layer.
type Resolver interface {
	Resolve(ctx context.Context, resource models.Resource, dr models.DateRange, forcedTier *models.CacheTier) ([]models.BlockedDate, models.Metadata, error)
}

// Server routes API requests. Callers must not depend on internal cache key
// structure; everything they need is in the response metadata.
type Server struct {
	resolver Resolver
	cache    *cache.Manager
	bus      *events.Bus
	loc      *time.Location
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
}

// NewServer wires the handler set.
func NewServer(resolver Resolver, cm *cache.Manager, bus *events.Bus, loc *time.Location, logger *zerolog.Logger, m *metrics.Metrics) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		resolver: resolver,
		cache:    cm,
		bus:      bus,
		loc:      loc,
		logger:   logger,
		metrics:  m,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/blocked-dates", s.handleBlockedDates)
	mux.HandleFunc("/api/v1/blocked-dates/export", s.handleExport)
	mux.HandleFunc("/api/v1/invalidate", s.handleInvalidate)
	mux.HandleFunc("/api/v1/webhooks/calendar", s.handleCalendarWebhook)
	mux.HandleFunc("/api/v1/cache/stats", s.handleCacheStats)
	return s.withRequestLog(mux)
}

// withRequestLog tags each request with an id and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		started := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(started)).
			Msg("request served")
	})
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiResponse{Success: false, Error: &apiError{Code: code, Message: message}})
}
