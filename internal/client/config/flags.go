package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-u string    base URL of the HTTP API
//	-a string    address and port of the presence gRPC endpoint
//	-db string   path of the local session database
//	-i int       heartbeat interval (seconds)
//	-timeout int per-step network timeout (seconds)
//
// Only the flags above are taken from os.Args, so the -c/-config flag and
// anything else on the command line is left alone.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-a", "-db", "-i", "-timeout"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "u", cfg.ServerBaseURL, "base URL of the HTTP API")
	fs.StringVar(&cfg.ServerGRPCAddr, "a", cfg.ServerGRPCAddr, "address and port of the presence service")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "local session database path")
	heartbeat := fs.Int("i", int(cfg.HeartbeatInterval.Seconds()), "heartbeat interval (in seconds)")
	timeout := fs.Int("timeout", int(cfg.StepTimeout.Seconds()), "per-step network timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.HeartbeatInterval = time.Duration(*heartbeat) * time.Second
	cfg.StepTimeout = time.Duration(*timeout) * time.Second
}
