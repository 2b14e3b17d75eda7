package services

import (
	"context"
	"errors"

	"github.com/isdelr/referral-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TokenTypeBearer is the token_type reported by Login.
const TokenTypeBearer = "Bearer"

// AccountServiceProvider defines the interface for account operations.
type AccountServiceProvider interface {
	Register(ctx context.Context, reg models.Registration) (models.User, error)
	Login(ctx context.Context, username, password string) (models.AccessToken, error)
	UpdateProfile(ctx context.Context, user models.User, update models.ProfileUpdate) (models.User, error)
	Deactivate(ctx context.Context, user models.User) error
	IssueReferralCode(ctx context.Context, user models.User, ttlDays int) (models.ReferralCodeGrant, error)
	RevokeReferralCode(ctx context.Context, user models.User) error
	MyReferrals(ctx context.Context, user models.User) ([]models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, email, key, newPassword string) error
}

// AccountService implements registration, login and self-service account
// management. The store is written synchronously; cache maintenance and
// mail delivery run as detached tasks.
type AccountService struct {
	store     UserStore
	cache     UserCache
	tokens    TokenIssuer
	passwords PasswordVerifier
	mailer    Mailer
	tasks     *TaskRunner
}

// NewAccountService creates a new AccountService.
func NewAccountService(store UserStore, cache UserCache, tokens TokenIssuer, passwords PasswordVerifier, mailer Mailer, tasks *TaskRunner) *AccountService {
	return &AccountService{
		store:     store,
		cache:     cache,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		tasks:     tasks,
	}
}

// Register creates a new user, optionally under another user's referral code.
func (s *AccountService) Register(ctx context.Context, reg models.Registration) (models.User, error) {
	user, err := s.store.CreateUser(ctx, reg)
	if err != nil {
		return models.User{}, err
	}

	s.tasks.Go(ctx, "cache registered user", func(ctx context.Context) error {
		err := s.cache.SetUser(ctx, user)
		if user.ReferringUserID != nil {
			err = errors.Join(err, s.cache.DeleteReferrals(ctx, *user.ReferringUserID))
		}
		return err
	})
	return user, nil
}

// Login checks credentials against the store and issues an access token.
func (s *AccountService) Login(ctx context.Context, username, password string) (models.AccessToken, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return models.AccessToken{}, models.NewError(models.ErrInvalidCredentials, "invalid username")
	}
	if err != nil {
		return models.AccessToken{}, err
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		return models.AccessToken{}, models.NewError(models.ErrInvalidCredentials, "invalid password")
	}
	if !user.IsActive {
		return models.AccessToken{}, models.NewError(models.ErrNotFound, "inactive user")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return models.AccessToken{}, err
	}

	s.tasks.Go(ctx, "cache logged in user", func(ctx context.Context) error {
		return s.cache.SetUser(ctx, user)
	})
	return models.AccessToken{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

// UpdateProfile overwrites the username, email and password of user. The
// cache entry under the old username is dropped before the store is written
// so no reader can resolve a stale record afterwards.
func (s *AccountService) UpdateProfile(ctx context.Context, user models.User, update models.ProfileUpdate) (models.User, error) {
	if err := s.cache.DeleteUser(ctx, user.Username); err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("Failed to evict user before update")
	}

	updated, err := s.store.UpdateProfile(ctx, user, update)
	if err != nil {
		return models.User{}, err
	}

	s.tasks.Go(ctx, "refresh updated user", func(ctx context.Context) error {
		return errors.Join(
			s.cache.DeleteUser(ctx, user.Username),
			s.cache.DeleteEmailUser(ctx, user.Email),
			s.cache.SetUser(ctx, updated),
		)
	})
	return updated, nil
}

// Deactivate disables user permanently.
func (s *AccountService) Deactivate(ctx context.Context, user models.User) error {
	if err := s.store.Deactivate(ctx, user); err != nil {
		return err
	}

	if err := errors.Join(
		s.cache.DeleteUser(ctx, user.Username),
		s.cache.DeleteEmailUser(ctx, user.Email),
	); err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("Failed to evict deactivated user")
	}
	return nil
}

// IssueReferralCode gives user a referral code valid for ttlDays.
func (s *AccountService) IssueReferralCode(ctx context.Context, user models.User, ttlDays int) (models.ReferralCodeGrant, error) {
	updated, err := s.store.IssueReferralCode(ctx, user, ttlDays)
	if err != nil {
		return models.ReferralCodeGrant{}, err
	}

	s.tasks.Go(ctx, "refresh user with referral code", func(ctx context.Context) error {
		return errors.Join(
			s.cache.SetUser(ctx, updated),
			s.cache.DeleteEmailUser(ctx, updated.Email),
		)
	})

	return models.ReferralCodeGrant{
		Username:     updated.Username,
		ReferralCode: *updated.ReferralCode,
		Expiry:       *updated.ReferralCodeExpiry,
	}, nil
}

// RevokeReferralCode removes user's referral code.
func (s *AccountService) RevokeReferralCode(ctx context.Context, user models.User) error {
	updated, err := s.store.RevokeReferralCode(ctx, user)
	if err != nil {
		return err
	}

	s.tasks.Go(ctx, "refresh user without referral code", func(ctx context.Context) error {
		return errors.Join(
			s.cache.DeleteEmailUser(ctx, user.Email),
			s.cache.SetUser(ctx, updated),
		)
	})
	return nil
}

// MyReferrals lists the users registered with user's referral codes.
func (s *AccountService) MyReferrals(ctx context.Context, user models.User) ([]models.User, error) {
	return referralsOf(ctx, s.store, s.cache, s.tasks, user.ID)
}

// RequestPasswordReset creates a reset key for email and mails it. Delivery
// failures are logged only.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	key, err := s.store.CreateResetKey(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewError(models.ErrNotFound, "user with this email not found")
	}
	if err != nil {
		return err
	}

	s.tasks.Go(ctx, "send reset key", func(ctx context.Context) error {
		return s.mailer.SendResetKey(ctx, key.Email, key.Key)
	})
	return nil
}

// CompletePasswordReset sets a new password using a key from RequestPasswordReset.
func (s *AccountService) CompletePasswordReset(ctx context.Context, email, key, newPassword string) error {
	user, err := s.store.ConsumeResetKey(ctx, email, key, newPassword)
	if err != nil {
		return err
	}

	s.tasks.Go(ctx, "evict user after password reset", func(ctx context.Context) error {
		return s.cache.DeleteUser(ctx, user.Username)
	})
	return nil
}
