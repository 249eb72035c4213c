// Package client contains the CLI's transports and local storage bootstrap.
//
// # Overview
//
//  1. HTTPClient implements API, the JSON/HTTP surface: sign-in, session
//     activation, PIN management and verification, user listings and
//     presence writes.
//  2. GRPCClient implements PresenceChannel: Ping, Heartbeat and
//     SetPresence over the presence gRPC service. The access token travels
//     in outgoing metadata.
//  3. InitDatabase and RunMigrations open the local SQLite database and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Server responses are mapped back onto the sentinel errors in
// internal/common, so callers match them with errors.Is exactly as the
// server does. A request cut short by its context deadline yields
// common.ErrTimeout. Network failures and unexpected 5xx responses yield
// ErrUnavailable.
//
// Both clients are safe for concurrent use.
package client
