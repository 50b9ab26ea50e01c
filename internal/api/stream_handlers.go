package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/gasguard/gasguard/internal/bridge"
	"github.com/gasguard/gasguard/internal/convai"
)

// handleMediaStream upgrades the provider's media-stream connection, opens
// an engine session for the call, and runs the bridge until the call ends.
// The call-setup context rides in the path, placed there by the inbound-call
// TwiML.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	customer := pathParam(r, "customer")
	language := pathParam(r, "language")
	reading := pathParam(r, "reading")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("media stream upgrade failed", "error", err)
		return
	}

	engine, err := s.deps.DialEngine(r.Context(), convai.Config{
		APIKey:       s.cfg.ElevenLabsAPIKey,
		AgentID:      s.cfg.ElevenLabsAgentID,
		Prompt:       agentPrompt(customer, reading),
		FirstMessage: agentFirstMessage(customer, reading),
		Language:     language,
		OutputFormat: "ulaw_8000",
	})
	if err != nil {
		s.logger.Error("engine session dial failed", "error", err)
		conn.Close()
		return
	}

	sess := bridge.NewSession(conn, engine, s.deps.Store, s.thresholds, s.deps.Ender,
		bridge.CallInfo{
			CustomerName:   customer,
			Language:       language,
			InitialReading: reading,
		}, s.logger)

	release := s.deps.Registry.Add(sess)
	defer release()

	// Run owns both connections and blocks until the session is closed.
	sess.Run(r.Context())
}

// handleActiveSessions lists the live bridge sessions.
func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.deps.Registry.Summaries()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// pathParam returns a chi URL parameter with percent-encoding undone.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// agentPrompt is the per-call system prompt override. The agent's baseline
// persona lives in its dashboard configuration; this adds the call context.
func agentPrompt(customer, reading string) string {
	return fmt.Sprintf("You are a gas safety assistant on an urgent phone call with %s. "+
		"A home gas sensor reported a reading of %s, which is above the safe limit. "+
		"Stay calm and direct. Tell them to avoid flames and electrical switches, "+
		"ventilate the area, and leave the building if the level is critical. "+
		"Use the getCurrentGasReading tool to check the live level when asked, and "+
		"the terminateCall tool once they confirm they are safe and have no more questions.",
		customer, reading)
}

// agentFirstMessage is spoken as soon as the session starts.
func agentFirstMessage(customer, reading string) string {
	return fmt.Sprintf("Hello %s, this is an automated safety call from your gas monitoring system. "+
		"Your sensor has detected an elevated gas level of %s. Are you somewhere safe right now?",
		customer, reading)
}
