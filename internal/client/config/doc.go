// Package config loads runtime configuration for the ShiftDesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file (see parseFile) selected with -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-u string     base URL of the HTTP API
//	-a string     address:port of the presence gRPC endpoint
//	-db string    local session database path
//	-i int        heartbeat interval (seconds)
//	-timeout int  per-step network timeout (seconds)
//
// # File schema
//
// Durations may be strings like "30s" or integer nanoseconds:
//
//	server_base_url: "http://127.0.0.1:8080"
//	server_grpc_addr: "127.0.0.1:50051"
//	database_path: "shiftdesk.db"
//	heartbeat_interval: "30s"
//	step_timeout: "10s"
//
// This package does not read environment variables.
package config
