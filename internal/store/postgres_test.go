package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/database"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/isdelr/referral-be/internal/testutil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*UserStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserStore(db, database.DriverPostgres, testutil.NewHasher(t), time.Hour), mock
}

func TestCreateUser_PostgresUniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"users_username_key", "username"},
		{"users_email_key", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			s, mock := newStoreWithMock(t)

			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO users .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})
			mock.ExpectRollback()

			_, err := s.CreateUser(context.Background(), models.Registration{Username: "alice", Email: "alice@example.com", Password: "pw"})
			require.ErrorIs(t, err, models.ErrConflict)
			assert.Contains(t, err.Error(), tt.field)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIssueReferralCode_PostgresCollisionRetries(t *testing.T) {
	s, mock := newStoreWithMock(t)
	user := models.User{ID: uuid.New()}

	collision := &pgconn.PgError{Code: "23505", ConstraintName: "users_referral_code_key"}
	for i := 0; i < referralCodeAttempts; i++ {
		mock.ExpectExec(`UPDATE users SET referral_code = \$1, referral_code_expiry = \$2`).
			WillReturnError(collision)
	}

	_, err := s.IssueReferralCode(context.Background(), user, 30)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsername_PostgresPlaceholders(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "is_active",
		"referring_user_id", "referral_code", "referral_code_expiry", "created_at",
	}).AddRow(id.String(), "alice", "alice@example.com", "hash", true, nil, "ABCDE12345", now, now)

	mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := s.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Nil(t, user.ReferringUserID)
	require.NotNil(t, user.ReferralCode)
	assert.Equal(t, "ABCDE12345", *user.ReferralCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail_NoRows(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTranslateError(t *testing.T) {
	plain := errors.New("connection reset")

	assert.Nil(t, translateError(nil))
	assert.Same(t, plain, translateError(plain))

	err := translateError(&pgconn.PgError{Code: "23503", ConstraintName: "users_referring_user_id_fkey"})
	assert.False(t, errors.Is(err, models.ErrConflict))

	err = translateError(&pgconn.PgError{Code: "23505", Detail: "Key (email)=(a@example.com) already exists."})
	require.ErrorIs(t, err, models.ErrConflict)
	assert.Contains(t, err.Error(), "email")

	err = translateError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", Detail: "Key (email)=(username@example.com) already exists."})
	assert.EqualError(t, err, "email already exists")
}
