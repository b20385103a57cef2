package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ResetTokenBytes is the entropy of a password reset token (256 bits).
const ResetTokenBytes = 32

// GenerateResetToken returns a random hex token and its digest. Only the
// digest may be persisted.
func GenerateResetToken() (token, digest string, err error) {
	raw := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	token = hex.EncodeToString(raw)
	return token, HashResetToken(token), nil
}

// HashResetToken is a deterministic SHA-256 digest. The token is single-use
// and high-entropy, so no salt or work factor is applied.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
