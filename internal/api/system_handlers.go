package api

import (
	"net/http"
	"time"
)

// handleHealthz reports liveness and basic uptime.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"started_at": s.startedAt.UTC().Format(time.RFC3339),
		"uptime_sec": int64(time.Since(s.startedAt).Seconds()),
	})
}
