package config

import (
	"github.com/dmitrijs2005/shiftdesk/internal/flagx"
	"github.com/dmitrijs2005/shiftdesk/internal/timex"
)

// FileConfig mirrors Config for decoding JSON or YAML files. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from an explicit false or zero.
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	LoginTokenValidityDuration   timex.Duration `json:"login_token_validity_duration" yaml:"login_token_validity_duration"`
	PinMaxAttempts               int            `json:"pin_max_attempts" yaml:"pin_max_attempts"`
	PinAttemptWindow             timex.Duration `json:"pin_attempt_window" yaml:"pin_attempt_window"`
	UniformPinErrors             *bool          `json:"uniform_pin_errors" yaml:"uniform_pin_errors"`
	AllowPlaintextPin            *bool          `json:"allow_plaintext_pin" yaml:"allow_plaintext_pin"`
	ActiveUsersLimit             int            `json:"active_users_limit" yaml:"active_users_limit"`
	PinHasher                    string         `json:"pin_hasher" yaml:"pin_hasher"`
}

// parseFile overlays values from the file named by -c/-config onto config.
// Zero values in the file leave the current setting untouched. An unreadable
// or malformed file panics, like a bad flag.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	c := &FileConfig{}
	if err := flagx.DecodeConfigFile(path, c); err != nil {
		panic(err)
	}
	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.PinHasher, c.PinHasher)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.LoginTokenValidityDuration.Duration > 0 {
		config.LoginTokenValidityDuration = c.LoginTokenValidityDuration.Duration
	}
	if c.PinAttemptWindow.Duration > 0 {
		config.PinAttemptWindow = c.PinAttemptWindow.Duration
	}
	if c.PinMaxAttempts > 0 {
		config.PinMaxAttempts = c.PinMaxAttempts
	}
	if c.ActiveUsersLimit > 0 {
		config.ActiveUsersLimit = c.ActiveUsersLimit
	}
	if c.UniformPinErrors != nil {
		config.UniformPinErrors = *c.UniformPinErrors
	}
	if c.AllowPlaintextPin != nil {
		config.AllowPlaintextPin = *c.AllowPlaintextPin
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
