// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// NewSQLiteDB returns a migrated in-memory database private to the test.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", uuid.NewString())
	db, err := database.New(context.Background(), database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	return db
}

// NewRedis starts a miniredis server and returns it with a connected client.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// NewHasher returns a fast bcrypt hasher.
func NewHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()

	h, err := auth.NewPasswordHasher(auth.HasherConfig{Algorithm: auth.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	return h
}

// NewTokenCodec returns a codec backed by a freshly generated key pair.
func NewTokenCodec(t *testing.T, ttl time.Duration) *auth.TokenCodec {
	t.Helper()

	priv, pub, err := auth.GenerateKeyPair(2048)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec(priv, pub, ttl)
	require.NoError(t, err)
	return codec
}
