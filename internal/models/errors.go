package models

import "errors"

var (
	ErrConflict           = errors.New("conflict")
	ErrInvalidReferral    = errors.New("user with referral code not found or referral code expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidKey         = errors.New("email or key not found or invalid")
	ErrAlreadyHasCode     = errors.New("referral code already exists")
	ErrUnavailable        = errors.New("service unavailable")
)

// DetailError attaches a client-facing message to one of the sentinel errors.
type DetailError struct {
	Kind   error
	Detail string
}

func (e *DetailError) Error() string { return e.Detail }

func (e *DetailError) Unwrap() error { return e.Kind }

// NewError returns an error matching kind whose message is detail.
func NewError(kind error, detail string) error {
	return &DetailError{Kind: kind, Detail: detail}
}
