package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	priv, pub, err := GenerateKeyPair(2048)
	require.NoError(t, err)
	codec, err := NewTokenCodec(priv, pub, 30*time.Minute)
	require.NoError(t, err)
	return codec
}

func testUser() models.User {
	return models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	user := testUser()

	token, err := codec.Issue(user)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenCodec_Expired(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.IssueWithTTL(testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenCodec_WrongKey(t *testing.T) {
	token, err := newTestCodec(t).Issue(testUser())
	require.NoError(t, err)

	_, err = newTestCodec(t).Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newTestCodec(t)

	claims := &Claims{
		Username: "alice",
		Email:    "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenCodec_MissingClaims(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue(models.User{ID: uuid.New(), Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenCodec_Malformed(t *testing.T) {
	_, err := newTestCodec(t).Verify("not-a-token")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenCodec_VerifyOnly(t *testing.T) {
	_, pub, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	codec, err := NewTokenCodec(nil, pub, time.Minute)
	require.NoError(t, err)

	_, err = codec.Issue(testUser())
	assert.Error(t, err)
}

func TestNewTokenCodec_BadInput(t *testing.T) {
	priv, pub, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	_, err = NewTokenCodec(priv, pub, 0)
	assert.Error(t, err)

	_, err = NewTokenCodec([]byte("garbage"), pub, time.Minute)
	assert.Error(t, err)

	_, err = NewTokenCodec(priv, []byte("garbage"), time.Minute)
	assert.Error(t, err)
}
