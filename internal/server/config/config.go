// Package config handles configuration for the server component,
// including defaults, JSON overlay, command-line flags, and environment
// variables.
package config

import "time"

// Config holds runtime settings for the dreamhouse server.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - DataDir: root directory of the on-disk store (projects/, versions/,
//     users.json, tokens.json live beneath it).
//   - CORSOrigin: value for Access-Control-Allow-Origin.
//   - ShutdownTimeout: grace period for in-flight requests on shutdown.
//   - DefaultPageSize / MaxPageSize: project listing page bounds.
type Config struct {
	Addr            string
	DataDir         string
	CORSOrigin      string
	ShutdownTimeout time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8000"
	c.DataDir = "data"
	c.CORSOrigin = "*"
	c.ShutdownTimeout = 5 * time.Second
	c.DefaultPageSize = 20
	c.MaxPageSize = 100
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, command-line flags, and finally environment
// variables.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
