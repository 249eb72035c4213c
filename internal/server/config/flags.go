package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-r string   Redis address for PIN attempt limits
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-rt int     refresh token validity, minutes
//	-pin-attempts int          failed PIN attempts per window
//	-uniform-pin-errors bool   hide NotFound/PinNotSet on PIN login
//	-allow-plaintext-pin bool  degrade to plaintext when hash_pin is missing
//	-pin-hasher string         "postgres" or "bcrypt"
//
// Durations are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-r", "-s", "-t", "-rt",
		"-pin-attempts", "-uniform-pin-errors", "-allow-plaintext-pin",
		"-pin-hasher",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC presence service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address (empty disables PIN attempt limits)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("rt", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.IntVar(&config.PinMaxAttempts, "pin-attempts", config.PinMaxAttempts, "failed PIN attempts allowed per window")
	fs.BoolVar(&config.UniformPinErrors, "uniform-pin-errors", config.UniformPinErrors, "answer unknown email and missing PIN like a wrong PIN")
	fs.BoolVar(&config.AllowPlaintextPin, "allow-plaintext-pin", config.AllowPlaintextPin, "store flagged plaintext PINs when hash_pin is unavailable")

	fs.StringVar(&config.PinHasher, "pin-hasher", config.PinHasher, "PIN hasher: postgres (hash_pin in the database) or bcrypt (in process)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
