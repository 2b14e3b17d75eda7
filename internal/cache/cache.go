// Package cache is a Redis-backed read-through accelerator for user records.
// Entries are JSON snapshots and are never authoritative.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	userPrefix      = "user:"
	emailPrefix     = "email:"
	referralsPrefix = "referrals:"

	// EmailTTL is the lifetime of entries keyed by email.
	EmailTTL = 300 * time.Second
	// ReferralsTTL is the lifetime of cached referral lists.
	ReferralsTTL = 300 * time.Second
)

// Cache wraps a shared Redis client.
type Cache struct {
	rdb     *redis.Client
	userTTL time.Duration
}

// New creates a Cache. userTTL applies to entries keyed by username.
func New(rdb *redis.Client, userTTL time.Duration) *Cache {
	return &Cache{rdb: rdb, userTTL: userTTL}
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Put stores value as JSON under key for ttl.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Get decodes the entry under key into dest. It reports false when the key
// is absent or expired.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// SetUser caches user under its username for the configured user ttl.
func (c *Cache) SetUser(ctx context.Context, user models.User) error {
	return c.Put(ctx, userPrefix+user.Username, user, c.userTTL)
}

// GetUser returns the user cached under username.
func (c *Cache) GetUser(ctx context.Context, username string) (models.User, bool, error) {
	var user models.User
	found, err := c.Get(ctx, userPrefix+username, &user)
	return user, found, err
}

// DeleteUser evicts the entry for username.
func (c *Cache) DeleteUser(ctx context.Context, username string) error {
	return c.Delete(ctx, userPrefix+username)
}

// SetEmailUser caches user under its email for EmailTTL.
func (c *Cache) SetEmailUser(ctx context.Context, user models.User) error {
	return c.Put(ctx, emailPrefix+user.Email, user, EmailTTL)
}

// GetEmailUser returns the user cached under email.
func (c *Cache) GetEmailUser(ctx context.Context, email string) (models.User, bool, error) {
	var user models.User
	found, err := c.Get(ctx, emailPrefix+email, &user)
	return user, found, err
}

// DeleteEmailUser evicts the entry for email.
func (c *Cache) DeleteEmailUser(ctx context.Context, email string) error {
	return c.Delete(ctx, emailPrefix+email)
}

// SetReferrals caches the users referred by referrerID for ReferralsTTL.
func (c *Cache) SetReferrals(ctx context.Context, referrerID uuid.UUID, users []models.User) error {
	return c.Put(ctx, referralsPrefix+referrerID.String(), users, ReferralsTTL)
}

// GetReferrals returns the cached referrals of referrerID.
func (c *Cache) GetReferrals(ctx context.Context, referrerID uuid.UUID) ([]models.User, bool, error) {
	var users []models.User
	found, err := c.Get(ctx, referralsPrefix+referrerID.String(), &users)
	return users, found, err
}

// DeleteReferrals evicts the referral list of referrerID.
func (c *Cache) DeleteReferrals(ctx context.Context, referrerID uuid.UUID) error {
	return c.Delete(ctx, referralsPrefix+referrerID.String())
}
