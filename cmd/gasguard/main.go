package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gasguard/gasguard/internal/api"
	"github.com/gasguard/gasguard/internal/bridge"
	"github.com/gasguard/gasguard/internal/config"
	"github.com/gasguard/gasguard/internal/convai"
	"github.com/gasguard/gasguard/internal/metrics"
	"github.com/gasguard/gasguard/internal/state"
	"github.com/gasguard/gasguard/internal/telephony"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting gasguard",
		"http_port", cfg.HTTPPort,
		"public_host", cfg.PublicHost,
		"alert_threshold", cfg.ThresholdAlert,
		"ack_window", cfg.AckWindow,
		"retry_cooldown", cfg.RetryCooldown,
	)

	startTime := time.Now()

	// Shared call and reading state.
	store := state.NewStore(cfg.ThresholdAlert)

	// Telephony provider client and the components built on it.
	twilio := telephony.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	initiator := telephony.NewInitiator(twilio, store, cfg.PublicHost, logger)
	reducer := telephony.NewStatusReducer(store, logger)

	// Live bridge session registry.
	registry := bridge.NewRegistry()

	// Conversational engine dialer; each accepted media stream gets its own
	// session.
	dialEngine := func(ctx context.Context, sc convai.Config) (bridge.EngineSession, error) {
		return convai.Dial(ctx, sc, logger)
	}

	// Prometheus collector over live state.
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(
		readingProvider{store},
		callSlotProvider{store},
		registry,
		reducer,
		startTime,
	)
	reg.MustRegister(collector)

	handler := api.NewServer(cfg, api.Deps{
		Store:      store,
		Initiator:  initiator,
		Ender:      twilio,
		Reducer:    reducer,
		Registry:   registry,
		DialEngine: dialEngine,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:     logger,
	})
	defer handler.Close()

	// Media-stream connections are long-lived WebSockets, so only the header
	// read and idle keep-alive are bounded here.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout. Live bridge sessions are closed by
	// their connections going away; the bridge bounds its own teardown.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown", "error", err)
		srv.Close()
	}

	slog.Info("gasguard stopped")
}

// readingProvider adapts the state store to the metrics collector.
type readingProvider struct{ store *state.Store }

func (p readingProvider) CurrentReading() (float64, bool) {
	snap := p.store.Snapshot()
	return snap.Reading.CurrentReading, snap.Reading.AlertActive
}

// callSlotProvider adapts the state store to the metrics collector.
type callSlotProvider struct{ store *state.Store }

func (p callSlotProvider) CallActive() bool {
	return p.store.Snapshot().Call.Active
}
