package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Responses are flat JSON objects rather than an envelope: the sensor
// firmware and the provider webhooks both expect top-level fields like
// {"status": "ignored", "reason": "..."}.

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}

// writeError writes a flat JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  msg,
	})
}

// writeTwiML writes a TwiML document for the telephony provider.
func writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		slog.Error("failed to write twiml response", "error", err)
	}
}
