// Package api exposes the HTTP surface: sensor ingestion, alert triggering,
// telephony provider webhooks, the media-stream WebSocket, and the operator
// endpoints. All decisions live in the inner packages; handlers translate
// HTTP to and from them.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/gasguard/gasguard/internal/alert"
	"github.com/gasguard/gasguard/internal/api/middleware"
	"github.com/gasguard/gasguard/internal/bridge"
	"github.com/gasguard/gasguard/internal/config"
	"github.com/gasguard/gasguard/internal/convai"
	"github.com/gasguard/gasguard/internal/state"
	"github.com/gasguard/gasguard/internal/telephony"
)

// CallInitiator places an outbound alert call. *telephony.Initiator
// satisfies it.
type CallInitiator interface {
	Initiate(ctx context.Context, target string, cc telephony.CallContext) (string, error)
}

// CallEnder hangs up in-progress calls at the provider. *telephony.Client
// satisfies it.
type CallEnder interface {
	EndInProgressCalls(ctx context.Context) (int, error)
}

// EngineDialer opens a conversational-engine session for one call.
type EngineDialer func(ctx context.Context, cfg convai.Config) (bridge.EngineSession, error)

// Deps carries everything the HTTP surface delegates to.
type Deps struct {
	Store      *state.Store
	Initiator  CallInitiator
	Ender      CallEnder
	Reducer    *telephony.StatusReducer
	Registry   *bridge.Registry
	DialEngine EngineDialer
	Metrics    http.Handler // mounted at /metrics when non-nil
	Logger     *slog.Logger
}

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	deps   Deps

	thresholds state.Thresholds
	gate       alert.Gate
	upgrader   websocket.Upgrader
	limiter    *middleware.IPRateLimiter
	startedAt  time.Time
	logger     *slog.Logger
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		deps:   deps,
		thresholds: state.Thresholds{
			Safe:     cfg.ThresholdSafe,
			Alert:    cfg.ThresholdAlert,
			Critical: cfg.ThresholdCritical,
		},
		gate: alert.Gate{
			AckWindow:     cfg.AckWindow,
			RetryCooldown: cfg.RetryCooldown,
		},
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		limiter:   middleware.NewIPRateLimiter(middleware.SensorRateLimitConfig()),
		startedAt: time.Now(),
		logger:    deps.Logger.With("subsystem", "api"),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-owned background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

// routes configures all middleware and mounts all routes.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)

	// Sensor surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter))
		r.Post("/update-reading", s.handleUpdateReading)
	})
	r.Get("/get-current-reading", s.handleGetCurrentReading)
	r.Get("/trigger-gas-alert", s.handleTriggerAlert)
	r.Get("/check-call-status", s.handleCheckCallStatus)

	// Telephony provider surface.
	r.Post("/twilio/inbound-call", s.handleInboundCall)
	r.Post("/twilio/call-status", s.handleCallStatus)
	r.Get("/media-stream/{customer}/{language}/{reading}", s.handleMediaStream)

	// Operator surface.
	r.Get("/end-call", s.handleEndCall)
	r.Get("/sessions/active", s.handleActiveSessions)
	r.Get("/healthz", s.handleHealthz)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
}
