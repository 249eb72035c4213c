package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-u", "http://10.0.0.1:8080", "-a", "10.0.0.1:9090", "-db", "/tmp/s.db", "-i", "10", "-timeout", "4"},
			expected: &Config{
				ServerBaseURL:     "http://10.0.0.1:8080",
				ServerGRPCAddr:    "10.0.0.1:9090",
				DatabasePath:      "/tmp/s.db",
				HeartbeatInterval: 10 * time.Second,
				StepTimeout:       4 * time.Second,
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"cmd", "-x", "y", "-i", "5"},
			expected: &Config{HeartbeatInterval: 5 * time.Second},
		},
		{name: "incorrect heartbeat interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
