package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, applies TOLLGATE_* environment
// overrides on top, and validates the result.
//
// Precedence, later wins:
//
//  1. Defaults (defaults.go)
//  2. YAML file
//  3. Environment variables
//
// A missing file is not an error; defaults plus environment then apply,
// which keeps container deployments config-file free.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies TOLLGATE_SECTION_FIELD environment variables.
// Environment always takes precedence over file values.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString("TOLLGATE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setString("TOLLGATE_SERVER_UPSTREAM_URL", &cfg.Server.UpstreamURL)
	setString("TOLLGATE_SERVER_TENANT_HEADER", &cfg.Server.TenantHeader)
	setBool("TOLLGATE_SERVER_TRUST_FORWARDED_FOR", &cfg.Server.TrustForwardedFor)
	setDuration("TOLLGATE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("TOLLGATE_STORE_BACKEND", &cfg.Store.Backend)
	setString("TOLLGATE_STORE_REDIS_ADDR", &cfg.Store.Redis.Addr)
	setString("TOLLGATE_STORE_REDIS_PASSWORD", &cfg.Store.Redis.Password)
	setInt("TOLLGATE_STORE_REDIS_DB", &cfg.Store.Redis.DB)
	setDuration("TOLLGATE_STORE_REDIS_OP_TIMEOUT", &cfg.Store.Redis.OpTimeout)
	setString("TOLLGATE_STORE_SQLITE_PATH", &cfg.Store.SQLite.Path)
	setString("TOLLGATE_STORE_SWEEP_SCHEDULE", &cfg.Store.SweepSchedule)

	setString("TOLLGATE_LIMITS_DEFINITIONS_FILE", &cfg.Limits.DefinitionsFile)
	setBool("TOLLGATE_LIMITS_WATCH", &cfg.Limits.Watch)

	setString("TOLLGATE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("TOLLGATE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
}
