package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ReferralCodeLength is the fixed length of generated referral codes.
const ReferralCodeLength = 10

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateReferralCode returns a random alphanumeric code. Uniqueness is
// enforced by the store, not here.
func GenerateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralAlphabet)))
	code := make([]byte, ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = referralAlphabet[n.Int64()]
	}
	return string(code), nil
}
