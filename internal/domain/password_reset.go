package domain

import "time"

// PasswordReset is the outcome of generating a reset token. Token is the
// plaintext handed to the mailer and is never persisted; only TokenHash and
// ExpiresAt reach the store.
type PasswordReset struct {
	Token     string
	TokenHash string
	ExpiresAt time.Time
}
