package client

import "errors"

var (
	// ErrUnavailable means the server could not be reached or failed with a
	// 5xx status that has no more specific meaning.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is returned for an authentication failure that does
	// not map onto a more specific taxonomy error.
	ErrUnauthorized = errors.New("unauthorized")
)
