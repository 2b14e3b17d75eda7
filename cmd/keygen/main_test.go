package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteKeyPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	require.NoError(t, writeKeyPair(dir, 2048, false))

	codec, err := auth.LoadTokenCodec(filepath.Join(dir, privateKeyFile), filepath.Join(dir, publicKeyFile), time.Minute)
	require.NoError(t, err)

	token, err := codec.Issue(models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestWriteKeyPair_KeepsExistingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeKeyPair(dir, 2048, false))

	assert.Error(t, writeKeyPair(dir, 2048, false))
	assert.NoError(t, writeKeyPair(dir, 2048, true))
}
