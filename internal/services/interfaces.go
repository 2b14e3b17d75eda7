package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/models"
)

// UserStore is the durable source of truth for users.
type UserStore interface {
	CreateUser(ctx context.Context, reg models.Registration) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
	ListReferredBy(ctx context.Context, referrerID uuid.UUID) ([]models.User, error)
	UpdateProfile(ctx context.Context, user models.User, update models.ProfileUpdate) (models.User, error)
	Deactivate(ctx context.Context, user models.User) error
	IssueReferralCode(ctx context.Context, user models.User, ttlDays int) (models.User, error)
	RevokeReferralCode(ctx context.Context, user models.User) (models.User, error)
	CreateResetKey(ctx context.Context, email string) (models.PasswordResetKey, error)
	ConsumeResetKey(ctx context.Context, email, key, newPassword string) (models.User, error)
}

// UserCache is a best-effort accelerator in front of UserStore.
type UserCache interface {
	SetUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, username string) (models.User, bool, error)
	DeleteUser(ctx context.Context, username string) error
	SetEmailUser(ctx context.Context, user models.User) error
	GetEmailUser(ctx context.Context, email string) (models.User, bool, error)
	DeleteEmailUser(ctx context.Context, email string) error
	SetReferrals(ctx context.Context, referrerID uuid.UUID, users []models.User) error
	GetReferrals(ctx context.Context, referrerID uuid.UUID) ([]models.User, bool, error)
	DeleteReferrals(ctx context.Context, referrerID uuid.UUID) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(user models.User) (string, error)
}

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// PasswordVerifier checks a plaintext password against a stored digest.
type PasswordVerifier interface {
	Verify(password, digest string) bool
}

// Mailer delivers password-reset keys.
type Mailer interface {
	SendResetKey(ctx context.Context, email, key string) error
}

// EmailChecker verifies that an address can receive mail.
type EmailChecker interface {
	Verify(ctx context.Context, email string) (map[string]any, error)
}
