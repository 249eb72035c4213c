package config

import (
	"github.com/dmitrijs2005/shiftdesk/internal/flagx"
	"github.com/dmitrijs2005/shiftdesk/internal/timex"
)

// FileConfig is a DTO used exclusively for decoding JSON or YAML config
// files. Intervals use timex.Duration so they may be written as "30s" or as
// integer nanoseconds.
type FileConfig struct {
	ServerBaseURL     string         `json:"server_base_url" yaml:"server_base_url"`
	ServerGRPCAddr    string         `json:"server_grpc_addr" yaml:"server_grpc_addr"`
	DatabasePath      string         `json:"database_path" yaml:"database_path"`
	HeartbeatInterval timex.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	StepTimeout       timex.Duration `json:"step_timeout" yaml:"step_timeout"`
}

// parseFile overlays cfg with values from the file named by -c/-config.
// Empty fields keep their current value. Read or decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeConfigFile(path, &fc); err != nil {
		panic(err)
	}

	if fc.ServerBaseURL != "" {
		cfg.ServerBaseURL = fc.ServerBaseURL
	}
	if fc.ServerGRPCAddr != "" {
		cfg.ServerGRPCAddr = fc.ServerGRPCAddr
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.HeartbeatInterval.Duration > 0 {
		cfg.HeartbeatInterval = fc.HeartbeatInterval.Duration
	}
	if fc.StepTimeout.Duration > 0 {
		cfg.StepTimeout = fc.StepTimeout.Duration
	}
}
