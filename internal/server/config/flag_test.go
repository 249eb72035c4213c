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
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", "127.0.0.1:9091", "-d", "db", "-r", "redis:6379", "-s", "secret",
				"-t", "1", "-rt", "3", "-pin-attempts", "7", "-uniform-pin-errors", "-allow-plaintext-pin=false",
				"-pin-hasher", "bcrypt",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				EndpointAddrGRPC:             "127.0.0.1:9091",
				DatabaseDSN:                  "db",
				RedisAddr:                    "redis:6379",
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				PinMaxAttempts:               7,
				UniformPinErrors:             true,
				AllowPlaintextPin:            false,
				PinHasher:                    "bcrypt",
			},
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{AllowPlaintextPin: true}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
