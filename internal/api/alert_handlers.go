package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gasguard/gasguard/internal/telephony"
)

// handleTriggerAlert runs the alert gate and, when allowed, places the
// outbound alert call. A denied trigger is a normal outcome, not an error:
// the sensor retries on its own schedule and the gate's cooldown is the
// retry policy.
func (s *Server) handleTriggerAlert(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()

	decision := s.gate.MayCall(snap, time.Now())
	if !decision.Allow {
		s.logger.Info("alert trigger ignored", "reason", decision.Reason)
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": string(decision.Reason),
		})
		return
	}

	customer := r.URL.Query().Get("customer_name")
	if customer == "" {
		customer = s.cfg.DefaultCustomerName
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	cc := telephony.CallContext{
		CustomerName: customer,
		Language:     language,
		Reading:      strconv.FormatFloat(snap.Reading.CurrentReading, 'f', -1, 64),
	}

	sid, err := s.deps.Initiator.Initiate(r.Context(), s.cfg.TargetNumber, cc)
	if err != nil {
		if errors.Is(err, telephony.ErrInvalidTarget) {
			writeError(w, http.StatusBadRequest, "target number is invalid")
			return
		}
		s.logger.Error("alert call dispatch failed", "error", err)
		writeError(w, http.StatusBadGateway, "call dispatch failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "initiated",
		"call_sid": sid,
	})
}

// handleCheckCallStatus reports whether the alert call slot is occupied.
// Sensor firmware polls this to decide whether to keep triggering.
func (s *Server) handleCheckCallStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Store.Snapshot()

	resp := map[string]any{"active": snap.Call.Active}
	if !snap.Call.LastCallAttemptAt.IsZero() {
		resp["last_call_attempt_at"] = snap.Call.LastCallAttemptAt
	}
	if !snap.Call.LastSuccessAt.IsZero() {
		resp["last_success_at"] = snap.Call.LastSuccessAt
	}

	writeJSON(w, http.StatusOK, resp)
}
