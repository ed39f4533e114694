package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"blockdates/internal/models"
	"blockdates/internal/report"
)

// blockedDatesQuery holds the parsed and validated query parameters.
// Both id parameters accept comma-separated lists; a single value on one
// side is paired with every value on the other.
type blockedDatesQuery struct {
	resources []models.Resource
	dr        models.DateRange
	tier      *models.CacheTier
}

func parseIDList(name, raw string) ([]int64, error) {
	if raw == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%s must be positive integers", name)
		}
		out = append(out, id)
	}
	return out, nil
}

// pairResources zips the staff and meeting id lists into resources. Unequal
// lengths are allowed only when one side has a single value.
func pairResources(staffIDs, meetingIDs []int64) ([]models.Resource, error) {
	if len(staffIDs) != len(meetingIDs) && len(staffIDs) != 1 && len(meetingIDs) != 1 {
		return nil, fmt.Errorf("staff_id and meeting_id lists must have matching lengths")
	}

	n := len(staffIDs)
	if len(meetingIDs) > n {
		n = len(meetingIDs)
	}
	pick := func(ids []int64, i int) int64 {
		if len(ids) == 1 {
			return ids[0]
		}
		return ids[i]
	}

	out := make([]models.Resource, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		r := models.Resource{StaffID: pick(staffIDs, i), MeetingID: pick(meetingIDs, i)}
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out, nil
}

func (s *Server) parseQuery(r *http.Request) (blockedDatesQuery, error) {
	q := r.URL.Query()

	staffIDs, err := parseIDList("staff_id", q.Get("staff_id"))
	if err != nil {
		return blockedDatesQuery{}, err
	}
	meetingIDs, err := parseIDList("meeting_id", q.Get("meeting_id"))
	if err != nil {
		return blockedDatesQuery{}, err
	}
	resources, err := pairResources(staffIDs, meetingIDs)
	if err != nil {
		return blockedDatesQuery{}, err
	}

	loc := s.loc
	if tz := q.Get("timezone"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return blockedDatesQuery{}, fmt.Errorf("unknown timezone %q", tz)
		}
	}

	start, err := time.ParseInLocation(models.DateLayout, q.Get("start_date"), loc)
	if err != nil {
		return blockedDatesQuery{}, fmt.Errorf("start_date must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(models.DateLayout, q.Get("end_date"), loc)
	if err != nil {
		return blockedDatesQuery{}, fmt.Errorf("end_date must be YYYY-MM-DD")
	}

	parsed := blockedDatesQuery{
		resources: resources,
		dr:        models.NewDateRange(start, end, loc),
	}

	if t := q.Get("tier"); t != "" && t != "auto" {
		tier, ok := models.ParseTier(t)
		if !ok {
			return blockedDatesQuery{}, fmt.Errorf("tier must be hot, warm, cold or auto")
		}
		parsed.tier = &tier
	}
	return parsed, nil
}

type cacheInfo struct {
	Tier      string                `json:"tier"`
	CachedAt  *time.Time            `json:"cached_at,omitempty"`
	Source    string                `json:"source"`
	SubRanges []models.SubRangeInfo `json:"sub_ranges"`
	Degraded  bool                  `json:"degraded,omitempty"`
}

// blockedDatesData is the query response body. blocked_dates stays a plain
// sorted date-string array for date-picker consumers; per-date reasons ride
// alongside in blocked_date_details.
type blockedDatesData struct {
	BlockedDates       []string             `json:"blocked_dates"`
	BlockedDateDetails []models.BlockedDate `json:"blocked_date_details"`
	CacheInfo          cacheInfo            `json:"cache_info"`
}

// buildCacheInfo flattens the resolve metadata into the response shape.
// Source is "cache" if every sub-range was a hit, "computed" if none was,
// and "mixed" otherwise. CachedAt is the oldest sub-range timestamp, the
// conservative bound on how fresh the data is.
func buildCacheInfo(meta models.Metadata, forced *models.CacheTier) cacheInfo {
	info := cacheInfo{
		Tier:      "auto",
		SubRanges: meta.SubRanges,
		Degraded:  meta.Degraded,
	}
	if forced != nil {
		info.Tier = string(*forced)
	}

	hits, computed := 0, 0
	for _, sr := range meta.SubRanges {
		if sr.Source == "cache" {
			hits++
		} else {
			computed++
		}
		if !sr.CachedAt.IsZero() && (info.CachedAt == nil || sr.CachedAt.Before(*info.CachedAt)) {
			at := sr.CachedAt
			info.CachedAt = &at
		}
	}
	switch {
	case computed == 0 && hits > 0:
		info.Source = "cache"
	case hits == 0:
		info.Source = "computed"
	default:
		info.Source = "mixed"
	}
	return info
}

// resolveUnion resolves every requested resource and unions the blocked
// dates. A date blocked for any resource stays blocked; reason conflicts
// settle by precedence. Sub-range metadata is concatenated across resources.
func (s *Server) resolveUnion(r *http.Request, query blockedDatesQuery) ([]models.BlockedDate, models.Metadata, error) {
	byDate := make(map[string]models.BlockReason)
	var combined models.Metadata

	for _, resource := range query.resources {
		blocked, meta, err := s.resolver.Resolve(r.Context(), resource, query.dr, query.tier)
		if err != nil {
			return nil, models.Metadata{}, err
		}
		for _, bd := range blocked {
			if existing, ok := byDate[bd.Date]; !ok || bd.Reason.Wins(existing) {
				byDate[bd.Date] = bd.Reason
			}
		}
		combined.SubRanges = append(combined.SubRanges, meta.SubRanges...)
		combined.Degraded = combined.Degraded || meta.Degraded
	}

	out := make([]models.BlockedDate, 0, len(byDate))
	for date, reason := range byDate {
		out = append(out, models.BlockedDate{Date: date, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, combined, nil
}

func (s *Server) handleBlockedDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.metrics.IncHTTP("blocked_dates")

	query, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	blocked, meta, err := s.resolveUnion(r, query)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("resolve failed")
		writeError(w, http.StatusInternalServerError, "internal", "failed to resolve blocked dates")
		return
	}

	dates := make([]string, len(blocked))
	for i, bd := range blocked {
		dates[i] = bd.Date
	}

	writeData(w, blockedDatesData{
		BlockedDates:       dates,
		BlockedDateDetails: blocked,
		CacheInfo:          buildCacheInfo(meta, query.tier),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.metrics.IncHTTP("export")

	query, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(query.resources) != 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "export accepts a single resource")
		return
	}
	resource := query.resources[0]

	blocked, _, err := s.resolver.Resolve(r.Context(), resource, query.dr, query.tier)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
			return
		}
		s.logger.Error().Err(err).Str("resource", resource.Key()).Msg("export resolve failed")
		writeError(w, http.StatusInternalServerError, "internal", "failed to resolve blocked dates")
		return
	}

	filename := fmt.Sprintf("blocked-dates-%s-%s.xlsx",
		query.dr.Start.Format(models.DateLayout), query.dr.End.Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if err := report.WriteExcel(w, resource, query.dr, blocked); err != nil {
		s.logger.Error().Err(err).Msg("excel export failed")
	}
}
