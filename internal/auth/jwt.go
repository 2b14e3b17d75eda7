package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/referral-be/internal/models"
)

// Claims defines the JWT claims structure. The subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies RS256-signed access tokens.
type TokenCodec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
}

// NewTokenCodec parses PEM-encoded RSA keys. privatePEM may be nil for a
// verify-only codec.
func NewTokenCodec(privatePEM, publicPEM []byte, ttl time.Duration) (*TokenCodec, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}

	c := &TokenCodec{ttl: ttl}
	if len(privatePEM) > 0 {
		key, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		c.privateKey = key
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	c.publicKey = key
	return c, nil
}

// LoadTokenCodec reads the key pair from disk.
func LoadTokenCodec(privateKeyPath, publicKeyPath string, ttl time.Duration) (*TokenCodec, error) {
	privatePEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return NewTokenCodec(privatePEM, publicPEM, ttl)
}

// Issue creates an access token for user with the configured ttl.
func (c *TokenCodec) Issue(user models.User) (string, error) {
	return c.IssueWithTTL(user, c.ttl)
}

// IssueWithTTL creates an access token for user expiring after ttl.
func (c *TokenCodec) IssueWithTTL(user models.User, ttl time.Duration) (string, error) {
	if c.privateKey == nil {
		return "", fmt.Errorf("token codec has no signing key")
	}

	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Every failure wraps
// models.ErrInvalidToken.
func (c *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return c.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, models.ErrInvalidToken
	}
	if claims.Subject == "" || claims.Username == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing required claims", models.ErrInvalidToken)
	}
	return claims, nil
}
