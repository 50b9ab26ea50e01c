package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the GasGuard server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	HTTPPort   int
	PublicHost string // publicly reachable hostname (e.g., "gasguard.example.com" or an ngrok domain)

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string // caller ID for outbound alert calls
	TargetNumber     string // destination number dialed on alerts

	ElevenLabsAPIKey  string
	ElevenLabsAgentID string

	AckWindow     time.Duration // suppress alerts after a completed call
	RetryCooldown time.Duration // minimum gap between call attempts

	// Reading tier bounds. A reading below ThresholdSafe is very safe,
	// below ThresholdAlert is safe, below ThresholdCritical is a warning,
	// and anything at or above ThresholdCritical is critical. ThresholdAlert
	// doubles as the alert threshold: readings at or above it mark the
	// alert active.
	ThresholdSafe     float64
	ThresholdAlert    float64
	ThresholdCritical float64

	DefaultCustomerName string // customer name used when the alert trigger carries none
	DefaultLanguage     string // conversation language for the voice agent

	LogLevel  string
	LogFormat string // log output format: "text" or "json"
}

// defaults
const (
	defaultHTTPPort      = 8080
	defaultAckWindow     = 15 * time.Minute
	defaultRetryCooldown = 30 * time.Second
	defaultSafeBound     = 50
	defaultAlertBound    = 100
	defaultCriticalBound = 200
	defaultCustomerName  = "resident"
	defaultLanguage      = "en"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
)

// envPrefix is the prefix for all GasGuard environment variables.
const envPrefix = "GASGUARD_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("gasguard", flag.ContinueOnError)

	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.PublicHost, "public-host", "", "publicly reachable hostname for provider callbacks and media streams")
	fs.StringVar(&cfg.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID")
	fs.StringVar(&cfg.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token")
	fs.StringVar(&cfg.TwilioFromNumber, "twilio-from-number", "", "Twilio number used as caller ID for outbound calls")
	fs.StringVar(&cfg.TargetNumber, "target-number", "", "phone number dialed when a gas alert fires")
	fs.StringVar(&cfg.ElevenLabsAPIKey, "elevenlabs-api-key", "", "ElevenLabs API key")
	fs.StringVar(&cfg.ElevenLabsAgentID, "elevenlabs-agent-id", "", "ElevenLabs conversational agent ID")
	fs.DurationVar(&cfg.AckWindow, "ack-window", defaultAckWindow, "suppress new alerts for this long after a completed call")
	fs.DurationVar(&cfg.RetryCooldown, "retry-cooldown", defaultRetryCooldown, "minimum time between call attempts")
	fs.Float64Var(&cfg.ThresholdSafe, "threshold-safe", defaultSafeBound, "readings below this are very safe")
	fs.Float64Var(&cfg.ThresholdAlert, "threshold-alert", defaultAlertBound, "readings at or above this trigger the alert state")
	fs.Float64Var(&cfg.ThresholdCritical, "threshold-critical", defaultCriticalBound, "readings at or above this are critical")
	fs.StringVar(&cfg.DefaultCustomerName, "customer-name", defaultCustomerName, "customer name the voice agent addresses")
	fs.StringVar(&cfg.DefaultLanguage, "language", defaultLanguage, "conversation language for the voice agent")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the command line.
	// CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	// Track which flags were explicitly set via CLI.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	// Map of flag name to env var name.
	envMap := map[string]string{
		"http-port":           envPrefix + "HTTP_PORT",
		"public-host":         envPrefix + "PUBLIC_HOST",
		"twilio-account-sid":  envPrefix + "TWILIO_ACCOUNT_SID",
		"twilio-auth-token":   envPrefix + "TWILIO_AUTH_TOKEN",
		"twilio-from-number":  envPrefix + "TWILIO_FROM_NUMBER",
		"target-number":       envPrefix + "TARGET_NUMBER",
		"elevenlabs-api-key":  envPrefix + "ELEVENLABS_API_KEY",
		"elevenlabs-agent-id": envPrefix + "ELEVENLABS_AGENT_ID",
		"ack-window":          envPrefix + "ACK_WINDOW",
		"retry-cooldown":      envPrefix + "RETRY_COOLDOWN",
		"threshold-safe":      envPrefix + "THRESHOLD_SAFE",
		"threshold-alert":     envPrefix + "THRESHOLD_ALERT",
		"threshold-critical":  envPrefix + "THRESHOLD_CRITICAL",
		"customer-name":       envPrefix + "CUSTOMER_NAME",
		"language":            envPrefix + "LANGUAGE",
		"log-level":           envPrefix + "LOG_LEVEL",
		"log-format":          envPrefix + "LOG_FORMAT",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "public-host":
			cfg.PublicHost = val
		case "twilio-account-sid":
			cfg.TwilioAccountSID = val
		case "twilio-auth-token":
			cfg.TwilioAuthToken = val
		case "twilio-from-number":
			cfg.TwilioFromNumber = val
		case "target-number":
			cfg.TargetNumber = val
		case "elevenlabs-api-key":
			cfg.ElevenLabsAPIKey = val
		case "elevenlabs-agent-id":
			cfg.ElevenLabsAgentID = val
		case "ack-window":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.AckWindow = v
			}
		case "retry-cooldown":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.RetryCooldown = v
			}
		case "threshold-safe":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.ThresholdSafe = v
			}
		case "threshold-alert":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.ThresholdAlert = v
			}
		case "threshold-critical":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.ThresholdCritical = v
			}
		case "customer-name":
			cfg.DefaultCustomerName = val
		case "language":
			cfg.DefaultLanguage = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		}
	}
}

// validate checks that the config values are sane. Missing provider
// credentials or an unset public host are fatal: the server refuses to
// start rather than failing on the first call attempt.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.PublicHost == "" {
		return fmt.Errorf("public-host is required (provider callbacks need a reachable address)")
	}
	if strings.Contains(c.PublicHost, "://") {
		return fmt.Errorf("public-host must be a bare hostname, not a URL: %q", c.PublicHost)
	}
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
		return fmt.Errorf("twilio-account-sid and twilio-auth-token are required")
	}
	if c.TwilioFromNumber == "" {
		return fmt.Errorf("twilio-from-number is required")
	}
	if c.TargetNumber == "" {
		return fmt.Errorf("target-number is required")
	}
	if c.ElevenLabsAPIKey == "" || c.ElevenLabsAgentID == "" {
		return fmt.Errorf("elevenlabs-api-key and elevenlabs-agent-id are required")
	}
	if c.AckWindow < 0 {
		return fmt.Errorf("ack-window must not be negative, got %v", c.AckWindow)
	}
	if c.RetryCooldown < 0 {
		return fmt.Errorf("retry-cooldown must not be negative, got %v", c.RetryCooldown)
	}
	if !(c.ThresholdSafe < c.ThresholdAlert && c.ThresholdAlert < c.ThresholdCritical) {
		return fmt.Errorf("thresholds must be strictly increasing: safe %v < alert %v < critical %v",
			c.ThresholdSafe, c.ThresholdAlert, c.ThresholdCritical)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
