package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dstepanenko/dreamhouse/internal/flagx"
	"github.com/dstepanenko/dreamhouse/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for interval fields, which
// accepts both string values such as "5s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	Addr            string         `json:"addr"`
	DataDir         string         `json:"data_dir"`
	CORSOrigin      string         `json:"cors_origin"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	DefaultPageSize int            `json:"default_page_size"`
	MaxPageSize     int            `json:"max_page_size"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. When no file is named,
// nothing is loaded. An unreadable or invalid file panics: a config the
// operator pointed at explicitly must not be half-applied.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Addr != "" {
		config.Addr = c.Addr
	}
	if c.DataDir != "" {
		config.DataDir = c.DataDir
	}
	if c.CORSOrigin != "" {
		config.CORSOrigin = c.CORSOrigin
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = time.Duration(c.ShutdownTimeout.Duration)
	}
	if c.DefaultPageSize != 0 {
		config.DefaultPageSize = c.DefaultPageSize
	}
	if c.MaxPageSize != 0 {
		config.MaxPageSize = c.MaxPageSize
	}
}
