package models

import "time"

type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// LoginToken is a one-time login artifact. Only its digest is stored.
type LoginToken struct {
	Digest  string
	UserID  string
	Expires time.Time
}
