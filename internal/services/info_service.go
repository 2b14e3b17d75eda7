package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/rs/zerolog/log"
)

// InfoServiceProvider defines the interface for public referral lookups.
type InfoServiceProvider interface {
	ReferralCodeByEmail(ctx context.Context, email string) (models.ReferralCodeInfo, error)
	ReferralsOf(ctx context.Context, referrerID uuid.UUID) ([]models.UserInfo, error)
	CheckEmail(ctx context.Context, email string) (map[string]any, error)
}

// InfoService answers anonymous questions about referrers.
type InfoService struct {
	store   UserStore
	cache   UserCache
	checker EmailChecker
	tasks   *TaskRunner
	now     func() time.Time
}

// NewInfoService creates a new InfoService. checker may be nil, in which
// case CheckEmail reports models.ErrUnavailable.
func NewInfoService(store UserStore, cache UserCache, checker EmailChecker, tasks *TaskRunner) *InfoService {
	return &InfoService{
		store:   store,
		cache:   cache,
		checker: checker,
		tasks:   tasks,
		now:     time.Now,
	}
}

// ReferralCodeByEmail returns the active referral code of the user with email.
func (s *InfoService) ReferralCodeByEmail(ctx context.Context, email string) (models.ReferralCodeInfo, error) {
	user, found, err := s.cache.GetEmailUser(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Cache lookup failed")
	}

	if !found {
		user, err = s.store.FindByEmail(ctx, email)
		if errors.Is(err, models.ErrNotFound) {
			return models.ReferralCodeInfo{}, models.NewError(models.ErrNotFound, "referral with email not found")
		}
		if err != nil {
			return models.ReferralCodeInfo{}, err
		}
		if user.IsActive {
			cached := user
			s.tasks.Go(ctx, "cache user by email", func(ctx context.Context) error {
				return s.cache.SetEmailUser(ctx, cached)
			})
		}
	}

	if !user.IsActive {
		return models.ReferralCodeInfo{}, models.NewError(models.ErrNotFound, "referral with email not found")
	}
	// Cached snapshots may outlive the code, so expiry is checked on every read.
	if !user.HasActiveReferralCode(s.now()) {
		return models.ReferralCodeInfo{}, models.NewError(models.ErrNotFound, "referral code not activated or expired")
	}

	return models.ReferralCodeInfo{Email: user.Email, ReferralCode: *user.ReferralCode}, nil
}

// ReferralsOf lists the public profiles of users referred by referrerID.
func (s *InfoService) ReferralsOf(ctx context.Context, referrerID uuid.UUID) ([]models.UserInfo, error) {
	users, err := referralsOf(ctx, s.store, s.cache, s.tasks, referrerID)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, models.NewError(models.ErrNotFound, "referrals not found")
	}

	infos := make([]models.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, u.Info())
	}
	return infos, nil
}

// CheckEmail asks the configured verifier about email.
func (s *InfoService) CheckEmail(ctx context.Context, email string) (map[string]any, error) {
	if s.checker == nil {
		return nil, models.NewError(models.ErrUnavailable, "email verification is not configured")
	}
	return s.checker.Verify(ctx, email)
}

// referralsOf is a read-through lookup of the users referred by referrerID.
// Empty lists are not cached.
func referralsOf(ctx context.Context, store UserStore, cache UserCache, tasks *TaskRunner, referrerID uuid.UUID) ([]models.User, error) {
	users, found, err := cache.GetReferrals(ctx, referrerID)
	if err != nil {
		log.Warn().Err(err).Stringer("referrer_id", referrerID).Msg("Cache lookup failed")
	}
	if found && len(users) > 0 {
		return users, nil
	}

	users, err = store.ListReferredBy(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	if len(users) > 0 {
		tasks.Go(ctx, "cache referrals", func(ctx context.Context) error {
			return cache.SetReferrals(ctx, referrerID, users)
		})
	}
	return users, nil
}
