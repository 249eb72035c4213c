// Package models holds the server-side records of ShiftDesk.
package models

import "time"

// Account is an identity owned by the server. Accounts are created by
// provisioning and never deleted by the quick-switch flows.
type Account struct {
	ID                 string
	Email              string
	FullName           string
	Role               string
	PasswordHash       string
	QuickSwitchEnabled bool
	Pin                PinSecret
	IsOnline           bool
	CreatedAt          time.Time
}

// UserSummary is the listing projection of an Account.
type UserSummary struct {
	ID       string
	Email    string
	FullName string
	Role     string
	IsOnline bool
}

// Summary projects a onto the fields safe to list.
func (a *Account) Summary() UserSummary {
	return UserSummary{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role, IsOnline: a.IsOnline}
}
