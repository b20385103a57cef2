package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
	"github.com/njprem/tours-auth-api/internal/util"
)

// SeedUser is one account in a development data file. Password may be
// plaintext or an existing argon2id/bcrypt digest.
type SeedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type SeedResult struct {
	Created int
	Skipped int
}

type SeedService struct {
	users  ports.CredentialStore
	hasher util.PasswordHasher
	logger *slog.Logger
}

func NewSeedService(users ports.CredentialStore, hasher util.PasswordHasher, logger *slog.Logger) *SeedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeedService{users: users, hasher: hasher, logger: logger}
}

// ParseSeedFile accepts a YAML or JSON array of users.
func ParseSeedFile(data []byte) ([]SeedUser, error) {
	var users []SeedUser
	if err := yaml.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return users, nil
}

// Import creates every user in order. Accounts whose email already exists are
// skipped; any other failure stops the import.
func (s *SeedService) Import(ctx context.Context, users []SeedUser) (SeedResult, error) {
	var result SeedResult
	for i, in := range users {
		newUser, err := s.prepare(in)
		if err != nil {
			return result, fmt.Errorf("seed entry %d (%s): %w", i+1, in.Email, err)
		}
		if _, err := s.users.Create(ctx, newUser); err != nil {
			if errors.Is(err, ports.ErrEmailTaken) {
				result.Skipped++
				continue
			}
			return result, internalFault("SEED_CREATE_FAILED", err, "entry", i+1)
		}
		result.Created++
	}
	s.logger.InfoContext(ctx, "seed import finished", "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

func (s *SeedService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.users.DeleteAll(ctx)
	if err != nil {
		return 0, internalFault("SEED_DELETE_FAILED", err)
	}
	s.logger.InfoContext(ctx, "seed data deleted", "users", n)
	return n, nil
}

func (s *SeedService) prepare(in SeedUser) (domain.NewUser, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.NewUser{}, invalid("name", "name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.NewUser{}, err
	}
	role := domain.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		if role, err = domain.ParseRole(in.Role); err != nil {
			return domain.NewUser{}, invalid("role", "%s", err.Error())
		}
	}

	digest := in.Password
	if !isPasswordDigest(digest) {
		if err := util.ValidatePassword(in.Password); err != nil {
			return domain.NewUser{}, invalid("password", "%s", err.Error())
		}
		if digest, err = s.hasher.Hash(in.Password); err != nil {
			return domain.NewUser{}, internalFault("PASSWORD_HASH_FAILED", err)
		}
	}
	return domain.NewUser{Name: name, Email: email, PasswordHash: digest, Role: role}, nil
}

func isPasswordDigest(value string) bool {
	for _, prefix := range []string{"$argon2id$", "$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
