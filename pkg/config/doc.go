// Package config provides configuration management for Tollgate.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. Environment variables follow the naming convention
// TOLLGATE_SECTION_FIELD, for example:
//
//   - TOLLGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - TOLLGATE_STORE_REDIS_ADDR overrides store.redis.addr
//   - TOLLGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Values are applied in order: defaults, YAML file, environment, then
// validation (which fails fast if the result is unusable).
package config
