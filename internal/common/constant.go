// Package common contains shared constants and sentinel errors used across
// ShiftDesk server and client components.
package common

import "time"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultSessionValidity is applied to a stored session when the identity
// provider did not report an absolute expiry.
const DefaultSessionValidity = time.Hour
