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

// Config holds all runtime configuration for the dialbridge server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	HTTPPort    int
	LogLevel    string
	LogFormat   string // log output format: "text" or "json"
	CORSOrigins string

	// Media/SIP provider settings.
	LiveKitURL string // media server URL handed to clients (ws:// or wss://)
	APIKey     string // provider API key, used as the JWT issuer
	APISecret  string // provider API secret, used for HS256 signing
	SIPTrunkID string // outbound SIP trunk; required only when dialing a number

	// Call behaviour.
	TokenTTL          time.Duration // lifetime of issued room credentials
	DialTimeout       time.Duration // ceiling on a single dial-out provider call
	AnswerTimeout     time.Duration // abandon a call with no signaling progress
	DialWaitForAnswer bool          // block dial-out until the far end answers
}

// defaults
const (
	defaultHTTPPort      = 8080
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultTokenTTL      = 15 * time.Minute
	defaultDialTimeout   = 2 * time.Minute
	defaultAnswerTimeout = 90 * time.Second
)

// envPrefix is the prefix for all dialbridge environment variables.
const envPrefix = "DIALBRIDGE_"

// MissingError reports a configuration setting that is required for the
// requested operation but absent. It is fatal and never retried.
type MissingError struct {
	Setting string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("dialbridge", flag.ContinueOnError)

	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.CORSOrigins, "cors-origins", "", "comma-separated list of allowed CORS origins (use * for all)")
	fs.StringVar(&cfg.LiveKitURL, "livekit-url", "", "media server URL returned to clients (e.g. wss://media.example.com)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "media provider API key")
	fs.StringVar(&cfg.APISecret, "api-secret", "", "media provider API secret")
	fs.StringVar(&cfg.SIPTrunkID, "sip-trunk-id", "", "outbound SIP trunk identifier")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", defaultTokenTTL, "lifetime of issued room credentials")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", defaultDialTimeout, "ceiling on a single dial-out provider call")
	fs.DurationVar(&cfg.AnswerTimeout, "answer-timeout", defaultAnswerTimeout, "abandon a dialed call with no signaling progress after this long (0 disables)")
	fs.BoolVar(&cfg.DialWaitForAnswer, "dial-wait-for-answer", true, "block dial-out until the far end answers")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the command
	// line. CLI flags take precedence over env vars.
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
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"http-port":            envPrefix + "HTTP_PORT",
		"log-level":            envPrefix + "LOG_LEVEL",
		"log-format":           envPrefix + "LOG_FORMAT",
		"cors-origins":         envPrefix + "CORS_ORIGINS",
		"livekit-url":          envPrefix + "LIVEKIT_URL",
		"api-key":              envPrefix + "API_KEY",
		"api-secret":           envPrefix + "API_SECRET",
		"sip-trunk-id":         envPrefix + "SIP_TRUNK_ID",
		"token-ttl":            envPrefix + "TOKEN_TTL",
		"dial-timeout":         envPrefix + "DIAL_TIMEOUT",
		"answer-timeout":       envPrefix + "ANSWER_TIMEOUT",
		"dial-wait-for-answer": envPrefix + "DIAL_WAIT_FOR_ANSWER",
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
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "cors-origins":
			cfg.CORSOrigins = val
		case "livekit-url":
			cfg.LiveKitURL = val
		case "api-key":
			cfg.APIKey = val
		case "api-secret":
			cfg.APISecret = val
		case "sip-trunk-id":
			cfg.SIPTrunkID = val
		case "token-ttl":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.TokenTTL = v
			}
		case "dial-timeout":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.DialTimeout = v
			}
		case "answer-timeout":
			if v, err := time.ParseDuration(val); err == nil {
				cfg.AnswerTimeout = v
			}
		case "dial-wait-for-answer":
			if v, err := strconv.ParseBool(val); err == nil {
				cfg.DialWaitForAnswer = v
			}
		}
	}
}

// validate checks that the config values are sane. Provider settings are not
// required at boot; they are checked per-operation by ValidateProvider and
// RequireTrunk so their absence surfaces as a request failure, not a crash.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
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

	if c.TokenTTL <= 0 {
		return fmt.Errorf("token-ttl must be positive, got %s", c.TokenTTL)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial-timeout must be positive, got %s", c.DialTimeout)
	}
	if c.AnswerTimeout < 0 {
		return fmt.Errorf("answer-timeout must not be negative, got %s", c.AnswerTimeout)
	}

	return nil
}

// ValidateProvider checks the three provider settings required to issue any
// room credential. The first missing one is reported.
func (c *Config) ValidateProvider() error {
	if c.LiveKitURL == "" {
		return &MissingError{Setting: "livekit-url"}
	}
	if c.APIKey == "" {
		return &MissingError{Setting: "api-key"}
	}
	if c.APISecret == "" {
		return &MissingError{Setting: "api-secret"}
	}
	return nil
}

// RequireTrunk checks the SIP trunk identifier, which is required only when a
// phone number is being dialed.
func (c *Config) RequireTrunk() error {
	if c.SIPTrunkID == "" {
		return &MissingError{Setting: "sip-trunk-id"}
	}
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
