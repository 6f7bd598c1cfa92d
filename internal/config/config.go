package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEngine is the embedded backend used when no engine is requested.
const DefaultEngine = "sqlite"

type Config struct {
	// Engine selection.
	Engine      string
	DatabaseURL string // required for the postgres engine

	QueryTimeout time.Duration

	// Logging.
	LogLevel slog.Level

	// Observability.
	OTelEnabled bool

	// CLI-only fields (not settable via env vars).
	RangesFile string // path to custom numeric ranges YAML
	AuditLog   string // path to NDJSON audit trail file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	Engine       *string
	DatabaseURL  *string
	QueryTimeout *time.Duration
	LogLevel     *string
	OTelEnabled  bool
	RangesFile   string
	AuditLog     string
}

// Load builds a Config from environment variables, then applies CLI
// overrides, then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Engine:       DefaultEngine,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		QueryTimeout: 30 * time.Second,
	}
}

func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("TABAUDIT_ENGINE"); v != "" {
		cfg.Engine = v
	}

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return nil
}

func applyOverrides(cfg *Config, o Overrides) error {
	if o.Engine != nil {
		cfg.Engine = *o.Engine
	}
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled
	cfg.RangesFile = o.RangesFile
	cfg.AuditLog = o.AuditLog

	return nil
}

// validate checks cross-field constraints. Engine-name validity is the
// registry's concern; only requirements the config layer can see are
// enforced here.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Engine) == "" {
		return fmt.Errorf("engine must not be empty")
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive, got %s", cfg.QueryTimeout)
	}
	if strings.EqualFold(cfg.Engine, "postgres") && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres engine (set via env var or --database-url flag)")
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
