package config

import "time"

// Config is the root configuration structure for Tollgate.
type Config struct {
	// Server contains HTTP gateway configuration including listen address,
	// timeouts, and tenant extraction.
	Server ServerConfig `yaml:"server"`

	// Store contains shared class store and quota ledger configuration.
	Store StoreConfig `yaml:"store"`

	// Limits contains the limit definitions source configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP gateway server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port".
	// Default: "127.0.0.1:8484"
	ListenAddress string `yaml:"listen_address"`

	// UpstreamURL is the base URL requests are proxied to after passing the
	// limiter. Empty disables proxying; the gateway then only serves its own
	// endpoints, which suits tests and dry runs.
	UpstreamURL string `yaml:"upstream_url"`

	// TenantHeader is the request header carrying the already-resolved
	// tenant identifier. Requests without it bypass limiting.
	// Default: "X-Tenant-ID"
	TenantHeader string `yaml:"tenant_header"`

	// TrustForwardedFor controls whether the first X-Forwarded-For entry is
	// used as the remote address for tenant_addr-dimensioned definitions.
	// Only enable behind a trusted proxy.
	// Default: false
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the shared store backend.
type StoreConfig struct {
	// Backend selects the store implementation: "redis", "sqlite" or
	// "memory". Redis is the only backend that shares state across
	// instances.
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Redis configures the Redis backend.
	Redis RedisConfig `yaml:"redis"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SweepSchedule is a cron expression for cleaning expired buckets out of
	// backends that retain them (memory, sqlite). Empty disables sweeping.
	// Default: "*/5 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Addr is the Redis host:port.
	// Default: "127.0.0.1:6379"
	Addr string `yaml:"addr"`

	// Password authenticates the connection. Empty for none.
	Password string `yaml:"password"`

	// DB is the Redis logical database number.
	// Default: 0
	DB int `yaml:"db"`

	// KeyPrefix prefixes quota bucket keys.
	// Default: "bucket"
	KeyPrefix string `yaml:"key_prefix"`

	// OpTimeout bounds each store call; a call exceeding it fails the
	// request rather than hanging it.
	// Default: 2s
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "tollgate.db"
	Path string `yaml:"path"`
}

// LimitsConfig configures the limit definitions source.
type LimitsConfig struct {
	// DefinitionsFile is the path of the YAML limit definitions document.
	DefinitionsFile string `yaml:"definitions_file"`

	// Watch reloads the definitions file on change.
	// Default: true
	Watch bool `yaml:"watch"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
