package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/referral-be/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionService resolves bearer tokens to the live user record.
type SessionService struct {
	tokens TokenVerifier
	store  UserStore
	cache  UserCache
}

// NewSessionService creates a new SessionService.
func NewSessionService(tokens TokenVerifier, store UserStore, cache UserCache) *SessionService {
	return &SessionService{tokens: tokens, store: store, cache: cache}
}

// Resolve returns the user a token was issued to. The user is looked up by
// the username claim, so renaming an account invalidates its older tokens.
func (s *SessionService) Resolve(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return models.User{}, err
	}
	if claims.Username == "" {
		return models.User{}, fmt.Errorf("%w: missing username", models.ErrInvalidToken)
	}

	user, found, err := s.cache.GetUser(ctx, claims.Username)
	if err != nil {
		log.Warn().Err(err).Str("username", claims.Username).Msg("Cache lookup failed")
	}

	if !found {
		user, err = s.store.FindByUsername(ctx, claims.Username)
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, fmt.Errorf("%w: unknown user", models.ErrInvalidToken)
		}
		if err != nil {
			return models.User{}, err
		}

		// Synchronous: a mutation later in the same request must evict this entry.
		if err := s.cache.SetUser(ctx, user); err != nil {
			log.Warn().Err(err).Str("username", user.Username).Msg("Failed to cache user")
		}
	}

	// A username freed by a rename may since belong to someone else.
	if user.ID.String() != claims.Subject {
		return models.User{}, fmt.Errorf("%w: subject mismatch", models.ErrInvalidToken)
	}
	return user, nil
}

// ResolveActive is Resolve for endpoints that require an active account.
// Deactivated users yield models.ErrNotFound.
func (s *SessionService) ResolveActive(ctx context.Context, token string) (models.User, error) {
	user, err := s.Resolve(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, models.NewError(models.ErrNotFound, "inactive user")
	}
	return user, nil
}
