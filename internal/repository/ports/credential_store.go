package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/tours-auth-api/internal/domain"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

// CredentialStore persists user accounts. Every finder only sees active
// accounts and every password argument is already a digest.
type CredentialStore interface {
	Create(ctx context.Context, user domain.NewUser) (*domain.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)

	SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error
	// ConsumePasswordResetToken swaps in the new password and clears the
	// reset pair in one indivisible update. It returns ErrNotFound when no
	// active account holds tokenHash with an expiry strictly after now.
	ConsumePasswordResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*domain.User, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
	UpgradePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context, limit, offset int) ([]domain.User, error)
	DeleteAll(ctx context.Context) (int64, error)
}
