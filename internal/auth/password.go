package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Password hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

const (
	argon2SaltLength = 16
	argon2KeyLength  = 32
)

// HasherConfig selects the algorithm used for new hashes.
type HasherConfig struct {
	Algorithm     string
	BcryptCost    int
	Argon2Memory  uint32
	Argon2Time    uint32
	Argon2Threads uint8
}

// PasswordHasher hashes passwords and verifies them against stored digests.
// Digests are self-describing, so verification works for every supported
// algorithm regardless of the one configured for new hashes.
type PasswordHasher struct {
	config HasherConfig
}

// NewPasswordHasher validates cfg and returns a hasher.
func NewPasswordHasher(cfg HasherConfig) (*PasswordHasher, error) {
	switch cfg.Algorithm {
	case "", AlgorithmBcrypt:
		cfg.Algorithm = AlgorithmBcrypt
		if cfg.BcryptCost == 0 {
			cfg.BcryptCost = bcrypt.DefaultCost
		}
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("invalid bcrypt cost %d", cfg.BcryptCost)
		}
	case AlgorithmArgon2id:
		if cfg.Argon2Memory < 8*1024 || cfg.Argon2Time < 1 || cfg.Argon2Threads < 1 {
			return nil, fmt.Errorf("invalid argon2id parameters")
		}
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
	return &PasswordHasher{config: cfg}, nil
}

// Hash returns a salted digest of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.config.Algorithm == AlgorithmArgon2id {
		return h.hashArgon2id(password)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.config.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches digest. Malformed digests never match.
func (h *PasswordHasher) Verify(password, digest string) bool {
	if strings.HasPrefix(digest, "$"+AlgorithmArgon2id+"$") {
		return verifyArgon2id(password, digest)
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

func (h *PasswordHasher) hashArgon2id(password string) (string, error) {
	salt := make([]byte, argon2SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Argon2Time, h.config.Argon2Memory, h.config.Argon2Threads, argon2KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		AlgorithmArgon2id,
		argon2.Version,
		h.config.Argon2Memory,
		h.config.Argon2Time,
		h.config.Argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(password, digest string) bool {
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
