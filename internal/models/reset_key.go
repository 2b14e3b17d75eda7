package models

import "time"

// PasswordResetKey is a single-use key that lets the owner of Email set a new password.
type PasswordResetKey struct {
	Email     string
	Key       string
	CreatedAt time.Time
}
