package client

import (
	"context"
	"time"
)

// User is an account as listed by the server.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsOnline bool   `json:"is_online"`
}

// Tokens is an access/refresh pair. ExpiresAt is the access token expiry.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Session is the result of every call that signs an account in.
type Session struct {
	Tokens
	User User
}

// PinStatus mirrors GET /api/auth/pin.
type PinStatus struct {
	QuickSwitchEnabled bool `json:"quickSwitchEnabled"`
	Degraded           bool `json:"degraded"`
}

// PinLogin is the one-time login artifact returned by a PIN verification.
type PinLogin struct {
	TokenHash string
	Email     string
}

// API is the HTTP surface of the server. Methods that need a signed-in
// caller take its access token explicitly, so one API value serves every
// stored account.
type API interface {
	Health(ctx context.Context) error

	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	ActivateSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error

	PinStatus(ctx context.Context, accessToken string) (*PinStatus, error)
	SetPin(ctx context.Context, accessToken, pin string) (degraded bool, err error)
	ClearPin(ctx context.Context, accessToken string) error
	VerifyPin(ctx context.Context, email, pin string) (*PinLogin, error)
	VerifyPassword(ctx context.Context, accessToken, password string) error

	ActiveUsers(ctx context.Context, accessToken string) ([]User, error)
	UsersByPresence(ctx context.Context, accessToken string) (online, offline []User, err error)
	SetPresence(ctx context.Context, accessToken string, online bool) error
}

// PresenceChannel is the gRPC presence service used for liveness and the
// heartbeat.
type PresenceChannel interface {
	Ping(ctx context.Context) error
	Heartbeat(ctx context.Context, accessToken string) error
	SetPresence(ctx context.Context, accessToken string, online bool) error
	Close() error
}
