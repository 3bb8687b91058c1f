package config

import "time"

// DefaultConfig returns a Config populated with default values. Loading
// applies these first, then the YAML file, then environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   "127.0.0.1:8484",
			TenantHeader:    "X-Tenant-ID",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:      "127.0.0.1:6379",
				KeyPrefix: "bucket",
				OpTimeout: 2 * time.Second,
			},
			SQLite: SQLiteConfig{
				Path: "tollgate.db",
			},
			SweepSchedule: "*/5 * * * *",
		},
		Limits: LimitsConfig{
			Watch: true,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
