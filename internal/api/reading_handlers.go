package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// updateReadingRequest is the sensor push body.
type updateReadingRequest struct {
	Reading float64 `json:"reading"`
}

// readingResponse is the shape returned by GET /get-current-reading.
type readingResponse struct {
	Reading      float64    `json:"reading"`
	Tier         string     `json:"tier"`
	IsSafe       bool       `json:"is_safe"`
	Message      string     `json:"message"`
	LastUpdateAt *time.Time `json:"last_update_at,omitempty"`
}

// handleUpdateReading ingests one sensor reading. The sensor only needs an
// acknowledgment; the alert flag is returned so firmware can log it.
func (s *Server) handleUpdateReading(w http.ResponseWriter, r *http.Request) {
	var req updateReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading payload")
		return
	}
	if req.Reading < 0 {
		writeError(w, http.StatusBadRequest, "reading must not be negative")
		return
	}

	s.deps.Store.PushReading(req.Reading)
	snap := s.deps.Store.Snapshot()

	s.logger.Info("sensor reading updated",
		"reading", req.Reading,
		"tier", s.thresholds.Classify(req.Reading),
		"alert_active", snap.Reading.AlertActive,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"reading":      req.Reading,
		"alert_active": snap.Reading.AlertActive,
	})
}

// handleGetCurrentReading reports the latest reading with its tier, using
// the same thresholds the voice agent's live-reading tool uses.
func (s *Server) handleGetCurrentReading(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()
	v := snap.Reading.CurrentReading

	resp := readingResponse{
		Reading: v,
		Tier:    string(s.thresholds.Classify(v)),
		IsSafe:  s.thresholds.IsSafe(v),
		Message: s.thresholds.Describe(v),
	}
	if !snap.Reading.LastUpdateAt.IsZero() {
		t := snap.Reading.LastUpdateAt
		resp.LastUpdateAt = &t
	}

	writeJSON(w, http.StatusOK, resp)
}
