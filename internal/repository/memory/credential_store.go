// Package memory is an in-process CredentialStore used by tests and by
// `serve --memory` for local development without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
)

type CredentialStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	now   func() time.Time
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		users: make(map[uuid.UUID]*domain.User),
		now:   time.Now,
	}
}

func (s *CredentialStore) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailInUseLocked(email, uuid.Nil) {
		return nil, ports.ErrEmailTaken
	}
	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Photo:        domain.DefaultPhoto,
		Role:         role,
		PasswordHash: in.PasswordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return clone(user), nil
}

func (s *CredentialStore) FindActiveByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || !user.Active {
		return nil, ports.ErrNotFound
	}
	return clone(user), nil
}

func (s *CredentialStore) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Active && user.Email == email {
			return clone(user), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (s *CredentialStore) SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return s.mutate(id, func(u *domain.User) {
		hash := tokenHash
		expires := expiresAt.UTC()
		u.PasswordResetToken = &hash
		u.PasswordResetExpires = &expires
	})
}

func (s *CredentialStore) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error {
	return s.mutate(id, func(u *domain.User) {
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
	})
}

func (s *CredentialStore) ConsumePasswordResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if !user.Active || user.PasswordResetToken == nil || *user.PasswordResetToken != tokenHash {
			continue
		}
		if !user.HasPendingReset(now) {
			return nil, ports.ErrNotFound
		}
		changed := changedAt.UTC()
		user.PasswordHash = passwordHash
		user.PasswordChangedAt = &changed
		user.PasswordResetToken = nil
		user.PasswordResetExpires = nil
		user.UpdatedAt = s.now().UTC()
		return clone(user), nil
	}
	return nil, ports.ErrNotFound
}

func (s *CredentialStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return s.mutate(id, func(u *domain.User) {
		changed := changedAt.UTC()
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changed
	})
}

func (s *CredentialStore) UpgradePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.mutate(id, func(u *domain.User) {
		u.PasswordHash = passwordHash
	})
}

func (s *CredentialStore) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || !user.Active {
		return nil, ports.ErrNotFound
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if s.emailInUseLocked(email, id) {
			return nil, ports.ErrEmailTaken
		}
		user.Email = email
	}
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Photo != nil {
		user.Photo = *update.Photo
	}
	user.UpdatedAt = s.now().UTC()
	return clone(user), nil
}

func (s *CredentialStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.mutate(id, func(u *domain.User) {
		u.Active = false
	})
}

func (s *CredentialStore) ListActive(ctx context.Context, limit, offset int) ([]domain.User, error) {
	s.mu.Lock()
	active := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if user.Active {
			active = append(active, *clone(user))
		}
	}
	s.mu.Unlock()

	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID.String() < active[j].ID.String()
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	if offset >= len(active) {
		return []domain.User{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(active) {
		end = len(active)
	}
	return active[offset:end], nil
}

func (s *CredentialStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.users))
	s.users = make(map[uuid.UUID]*domain.User)
	return n, nil
}

func (s *CredentialStore) mutate(id uuid.UUID, apply func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || !user.Active {
		return ports.ErrNotFound
	}
	apply(user)
	user.UpdatedAt = s.now().UTC()
	return nil
}

func (s *CredentialStore) emailInUseLocked(email string, except uuid.UUID) bool {
	for id, user := range s.users {
		if id != except && user.Email == email {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func clone(u *domain.User) *domain.User {
	out := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		out.PasswordChangedAt = &t
	}
	if u.PasswordResetToken != nil {
		s := *u.PasswordResetToken
		out.PasswordResetToken = &s
	}
	if u.PasswordResetExpires != nil {
		t := *u.PasswordResetExpires
		out.PasswordResetExpires = &t
	}
	return &out
}
