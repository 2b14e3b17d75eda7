package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account in the system.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"` // Never expose this to the client
	CreatedAt          time.Time  `json:"created_at"`
	IsActive           bool       `json:"is_active"`
	ReferringUserID    *uuid.UUID `json:"referring_user_id"`
	ReferralCode       *string    `json:"referral_code"`
	ReferralCodeExpiry *time.Time `json:"referral_code_expiry"`
}

// HasActiveReferralCode reports whether the user holds a referral code that
// has not expired at the given instant.
func (u User) HasActiveReferralCode(now time.Time) bool {
	return u.ReferralCode != nil && u.ReferralCodeExpiry != nil && u.ReferralCodeExpiry.After(now)
}

// Registration carries the data needed to create a new user.
type Registration struct {
	Username     string
	Email        string
	Password     string
	ReferralCode string
}

// ProfileUpdate carries the fields overwritten by a profile update.
type ProfileUpdate struct {
	Username string
	Email    string
	Password string
}

// AccessToken is returned by a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ReferralCodeGrant describes a freshly issued referral code.
type ReferralCodeGrant struct {
	Username     string    `json:"username"`
	ReferralCode string    `json:"referral_code"`
	Expiry       time.Time `json:"expiry"`
}

// ReferralCodeInfo is the public view of a referrer's code.
type ReferralCodeInfo struct {
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
}

// UserInfo is the public view of a user, served to anonymous callers.
type UserInfo struct {
	ID                 uuid.UUID  `json:"id"`
	Username           string     `json:"username"`
	CreatedAt          time.Time  `json:"created_at"`
	IsActive           bool       `json:"is_active"`
	ReferralCode       *string    `json:"referral_code"`
	ReferralCodeExpiry *time.Time `json:"referral_code_expiry"`
}

// Info returns the public view of u.
func (u User) Info() UserInfo {
	return UserInfo{
		ID:                 u.ID,
		Username:           u.Username,
		CreatedAt:          u.CreatedAt,
		IsActive:           u.IsActive,
		ReferralCode:       u.ReferralCode,
		ReferralCodeExpiry: u.ReferralCodeExpiry,
	}
}
