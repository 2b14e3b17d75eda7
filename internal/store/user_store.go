// Package store persists users and password-reset keys in a relational
// database. Queries are written with '?' placeholders and rebound for the
// configured driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/database"
	"github.com/isdelr/referral-be/internal/models"
)

const referralCodeAttempts = 3

const userColumns = `id, username, email, password_hash, is_active, referring_user_id, referral_code, referral_code_expiry, created_at`

// Hasher hashes plaintext passwords.
type Hasher interface {
	Hash(password string) (string, error)
}

// UserStore is the source of truth for user records.
type UserStore struct {
	db          *sql.DB
	driver      string
	hasher      Hasher
	resetKeyTTL time.Duration
	now         func() time.Time
	newCode     func() (string, error)
}

// NewUserStore creates a UserStore. Reset keys older than resetKeyTTL are
// rejected; a zero ttl disables the check.
func NewUserStore(db *sql.DB, driver string, hasher Hasher, resetKeyTTL time.Duration) *UserStore {
	return &UserStore{
		db:          db,
		driver:      driver,
		hasher:      hasher,
		resetKeyTTL: resetKeyTTL,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newCode:     auth.GenerateReferralCode,
	}
}

// Ping checks that the database is reachable.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser registers a new user. A non-empty referral code must belong to
// an active user whose code has not expired.
func (s *UserStore) CreateUser(ctx context.Context, reg models.Registration) (models.User, error) {
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	user := models.User{
		ID:           uuid.New(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		IsActive:     true,
	}

	err = database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		if reg.ReferralCode != "" {
			referrer, err := s.findOne(ctx, tx, "referral_code = ?", reg.ReferralCode)
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrInvalidReferral
			}
			if err != nil {
				return err
			}
			if !referrer.IsActive || !referrer.HasActiveReferralCode(now) {
				return models.ErrInvalidReferral
			}
			user.ReferringUserID = &referrer.ID
		}

		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO users (id, username, email, password_hash, is_active, referring_user_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			user.ID, user.Username, user.Email, user.PasswordHash, user.IsActive, nullUUID(user.ReferringUserID), user.CreatedAt,
		)
		return translateError(err)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// FindByUsername returns the user with the given username or models.ErrNotFound.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findOne(ctx, s.db, "username = ?", username)
}

// FindByEmail returns the user with the given email or models.ErrNotFound.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, s.db, "email = ?", email)
}

// FindByID returns the user with the given id or models.ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.findOne(ctx, s.db, "id = ?", id)
}

// FindByReferralCode returns the owner of code or models.ErrNotFound.
// Expiry is not checked.
func (s *UserStore) FindByReferralCode(ctx context.Context, code string) (models.User, error) {
	return s.findOne(ctx, s.db, "referral_code = ?", code)
}

// ListReferredBy returns the users registered with referrerID's code, oldest first.
func (s *UserStore) ListReferredBy(ctx context.Context, referrerID uuid.UUID) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE referring_user_id = ?
		ORDER BY created_at, id`), referrerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return users, nil
}

// UpdateProfile overwrites the username, email and password of user.
func (s *UserStore) UpdateProfile(ctx context.Context, user models.User, update models.ProfileUpdate) (models.User, error) {
	hash, err := s.hasher.Hash(update.Password)
	if err != nil {
		return models.User{}, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE users SET username = ?, email = ?, password_hash = ?
		WHERE id = ?`),
		update.Username, update.Email, hash, user.ID,
	)
	if err != nil {
		return models.User{}, translateError(err)
	}
	if err := expectOneRow(res); err != nil {
		return models.User{}, err
	}
	return s.FindByID(ctx, user.ID)
}

// Deactivate marks user inactive. Deactivation is permanent.
func (s *UserStore) Deactivate(ctx context.Context, user models.User) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET is_active = ? WHERE id = ?`), false, user.ID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return expectOneRow(res)
}

// IssueReferralCode gives user a fresh code valid for ttlDays. It fails with
// models.ErrAlreadyHasCode when the stored code has not expired yet.
func (s *UserStore) IssueReferralCode(ctx context.Context, user models.User, ttlDays int) (models.User, error) {
	if ttlDays < 1 {
		return models.User{}, fmt.Errorf("referral code lifetime must be at least one day, got %d", ttlDays)
	}

	now := s.now()
	expiry := now.Add(time.Duration(ttlDays) * 24 * time.Hour)

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return models.User{}, err
		}

		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE users SET referral_code = ?, referral_code_expiry = ?
			WHERE id = ? AND (referral_code IS NULL OR referral_code_expiry <= ?)`),
			code, expiry, user.ID, now,
		)
		if err != nil {
			err = translateError(err)
			if errors.Is(err, models.ErrConflict) {
				// Another user already holds this code; draw again.
				continue
			}
			return models.User{}, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return models.User{}, err
		}
		if n == 0 {
			current, err := s.FindByID(ctx, user.ID)
			if err != nil {
				return models.User{}, err
			}
			if current.ReferralCode != nil {
				return models.User{}, fmt.Errorf("%w: your code: '%s'", models.ErrAlreadyHasCode, *current.ReferralCode)
			}
			return models.User{}, models.ErrAlreadyHasCode
		}
		return s.FindByID(ctx, user.ID)
	}

	return models.User{}, models.NewError(models.ErrConflict, "could not allocate a unique referral code")
}

// RevokeReferralCode clears user's referral code and expiry.
func (s *UserStore) RevokeReferralCode(ctx context.Context, user models.User) (models.User, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE users SET referral_code = NULL, referral_code_expiry = NULL
		WHERE id = ?`), user.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to revoke referral code: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return models.User{}, err
	}
	return s.FindByID(ctx, user.ID)
}

// CreateResetKey stores a new password-reset key for email, replacing any
// earlier one, and returns it.
func (s *UserStore) CreateResetKey(ctx context.Context, email string) (models.PasswordResetKey, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return models.PasswordResetKey{}, err
	}

	key := models.PasswordResetKey{
		Email:     user.Email,
		Key:       uuid.NewString(),
		CreatedAt: s.now(),
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO password_reset_keys (email, reset_key, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET reset_key = excluded.reset_key, created_at = excluded.created_at`),
		key.Email, key.Key, key.CreatedAt,
	)
	if err != nil {
		return models.PasswordResetKey{}, fmt.Errorf("failed to store reset key: %w", err)
	}
	return key, nil
}

// ConsumeResetKey sets a new password for email if key matches its
// outstanding reset key. The key is deleted in the same transaction, so it
// works at most once.
func (s *UserStore) ConsumeResetKey(ctx context.Context, email, key, newPassword string) (models.User, error) {
	cutoff := time.Time{}
	if s.resetKeyTTL > 0 {
		cutoff = s.now().Add(-s.resetKeyTTL)
	}

	err := database.WithTx(ctx, s.db, func(tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM password_reset_keys
			WHERE email = ? AND reset_key = ? AND created_at >= ?`),
			email, key, cutoff.UTC(),
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return models.ErrInvalidKey
		}

		// Hashing waits until the key is known to be valid.
		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE users SET password_hash = ? WHERE email = ?`), hash, email)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return s.FindByEmail(ctx, email)
}

// PurgeResetKeys deletes reset keys created before olderThan and reports how
// many were removed.
func (s *UserStore) PurgeResetKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM password_reset_keys WHERE created_at < ?`), olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset keys: %w", err)
	}
	return res.RowsAffected()
}

func (s *UserStore) rebind(query string) string {
	return database.Rebind(s.driver, query)
}

func (s *UserStore) findOne(ctx context.Context, q database.DBTX, where string, arg any) (models.User, error) {
	row := q.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE `+where), arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	return user, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var (
		user      models.User
		referrer  uuid.NullUUID
		code      sql.NullString
		codeUntil sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive,
		&referrer, &code, &codeUntil, &user.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	if referrer.Valid {
		user.ReferringUserID = &referrer.UUID
	}
	if code.Valid {
		user.ReferralCode = &code.String
	}
	if codeUntil.Valid {
		expiry := codeUntil.Time.UTC()
		user.ReferralCodeExpiry = &expiry
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
