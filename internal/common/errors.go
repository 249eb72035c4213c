// Package common defines shared constants and sentinel errors used across
// client and server layers of ShiftDesk. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Quick-switch taxonomy.
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrPinNotSet         = errors.New("pin not set")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoStoredSession   = errors.New("no stored session")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrHasherUnavailable = errors.New("credential hasher unavailable")
	ErrTimeout           = errors.New("timeout")

	// Attempt budget for PIN verification exhausted.
	ErrRateLimited = errors.New("too many attempts")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
