// Package sessionstore keeps the device-local list of signed-in accounts and
// the pointer to the one currently active.
//
// Both live in the metadata table under two keys: SessionsKey holds a JSON
// array of StoredSession and ActiveKey holds the active account id. Every
// mutation rewrites the whole array inside one transaction. Reads never touch
// the network. A value that cannot be decoded is treated as an empty table.
package sessionstore

import (
	"time"
)

const (
	SessionsKey = "quick_switch.sessions"
	ActiveKey   = "quick_switch.active_account"
)

// StoredSession is the credential material kept for one account.
// ExpiresAt is an absolute time in Unix milliseconds.
type StoredSession struct {
	AccountID    string `json:"account_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the session has reached its expiry at now.
func (s StoredSession) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UnixMilli()
}

// Label is what the CLI shows for the session.
func (s StoredSession) Label() string {
	if s.DisplayName == "" {
		return s.Email
	}
	return s.DisplayName + " <" + s.Email + ">"
}
