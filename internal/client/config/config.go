package config

import "time"

// Config holds runtime settings for the ShiftDesk CLI.
//
// Units: HeartbeatInterval and StepTimeout are time.Duration values.
type Config struct {
	ServerBaseURL     string
	ServerGRPCAddr    string
	DatabasePath      string
	HeartbeatInterval time.Duration
	StepTimeout       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.ServerGRPCAddr = "127.0.0.1:50051"
	c.DatabasePath = "shiftdesk.db"
	c.HeartbeatInterval = 30 * time.Second
	c.StepTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
