package config

import (
	"os"
	"time"
)

// parseEnv overlays Config fields from environment variables. Environment
// has the last word so that containerized deployments can override both
// the JSON file and the flags baked into a unit file.
//
//	ADDRESS           HTTP bind address
//	DATA_DIR          data directory root
//	CORS_ORIGIN       CORS allowed origin
//	SHUTDOWN_TIMEOUT  duration string, e.g. "5s"
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("ADDRESS"); ok {
		config.Addr = v
	}
	if v, ok := os.LookupEnv("DATA_DIR"); ok {
		config.DataDir = v
	}
	if v, ok := os.LookupEnv("CORS_ORIGIN"); ok {
		config.CORSOrigin = v
	}
	if v, ok := os.LookupEnv("SHUTDOWN_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.ShutdownTimeout = d
		}
	}
}
