package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gasguard/gasguard/internal/telephony"
)

// handleInboundCall answers the provider's redirect once the alert call is
// picked up. The response TwiML connects the call to this server's
// media-stream WebSocket, with the call-setup context encoded in the path so
// the bridge can recover it without a shared side-channel.
func (s *Server) handleInboundCall(w http.ResponseWriter, r *http.Request) {
	customer := r.FormValue("CustomerName")
	if customer == "" {
		customer = s.cfg.DefaultCustomerName
	}
	language := r.FormValue("Language")
	if language == "" {
		language = s.cfg.DefaultLanguage
	}
	reading := r.FormValue("Reading")
	if reading == "" {
		reading = "unknown"
	}

	s.logger.Info("inbound call answered",
		"call_sid", r.FormValue("CallSid"),
		"from", r.FormValue("From"),
		"customer", customer,
		"language", language,
		"reading", reading,
	)

	streamURL := fmt.Sprintf("wss://%s/media-stream/%s/%s/%s",
		s.cfg.PublicHost,
		url.PathEscape(customer),
		url.PathEscape(language),
		url.PathEscape(reading),
	)
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Response><Connect><Stream url="%s"/></Connect></Response>`,
		xmlAttrEscape(streamURL))

	writeTwiML(w, doc)
}

// handleCallStatus folds the provider's delivery-status webhook into the
// call state. Non-terminal and unknown statuses are acknowledged and
// ignored; the provider retries on non-2xx, and there is nothing useful to
// retry here.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("CallStatus")

	status, ok := telephony.ParseStatus(raw)
	if !ok {
		s.logger.Debug("ignoring non-terminal call status",
			"call_sid", r.FormValue("CallSid"), "status", raw)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.logger.Info("call status received",
		"call_sid", r.FormValue("CallSid"), "status", raw)
	s.deps.Reducer.OnStatusEvent(status)
	w.WriteHeader(http.StatusNoContent)
}

// handleEndCall ends any in-progress call at the provider and releases the
// local call slot. Used by operators and by external automations.
func (s *Server) handleEndCall(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := s.deps.Ender.EndInProgressCalls(ctx)
	if err != nil {
		s.logger.Error("ending calls failed", "error", err)
		writeError(w, http.StatusBadGateway, "ending calls failed")
		return
	}

	s.deps.Store.ClearActive()
	s.logger.Info("calls ended by request", "calls_ended", n)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ended",
		"calls_ended": n,
	})
}

// xmlAttrEscape escapes the characters that matter inside an XML attribute.
func xmlAttrEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
