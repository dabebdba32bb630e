package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/mc-connect-core/internal/audit"
)

// handleListEvents returns the device event log, newest first.
//
// Query parameters: device_id, title, outcome, limit, offset.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event log is not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID: q.Get("device_id"),
		Title:    q.Get("title"),
		Outcome:  q.Get("outcome"),
	}

	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.events.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing events failed", "error", err)
		writeInternalError(w, "listing events failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
