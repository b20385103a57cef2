package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a freshly issued session token together with the user it was
// minted for. Nothing about a session is persisted server-side.
type Session struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	User      *User
}

// TokenClaims is what a verified session token asserts.
type TokenClaims struct {
	SubjectID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}
