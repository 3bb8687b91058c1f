package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values that would fail at runtime.
// It fails fast with the first problem found.
func (c *Config) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address must not be empty")
	}
	if c.Server.TenantHeader == "" {
		return fmt.Errorf("server.tenant_header must not be empty")
	}
	if c.Server.UpstreamURL != "" {
		u, err := url.Parse(c.Server.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.upstream_url %q is not an absolute URL", c.Server.UpstreamURL)
		}
	}

	switch strings.ToLower(c.Store.Backend) {
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr must not be empty for the redis backend")
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path must not be empty for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be one of redis, sqlite, memory; got %q", c.Store.Backend)
	}

	if c.Limits.DefinitionsFile == "" {
		return fmt.Errorf("limits.definitions_file must be set")
	}

	switch c.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q", c.Telemetry.Logging.Level)
	}
	switch c.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text; got %q", c.Telemetry.Logging.Format)
	}
	if c.Telemetry.Metrics.Enabled && !strings.HasPrefix(c.Telemetry.Metrics.Path, "/") {
		return fmt.Errorf("telemetry.metrics.path must start with '/'")
	}

	return nil
}
