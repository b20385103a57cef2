package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/metrics"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
	"github.com/njprem/tours-auth-api/internal/util"
)

// passwordChangeSkew backdates passwordChangedAt so that a token minted in the
// same second as the password write is not treated as stale.
const passwordChangeSkew = time.Second

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

type UpdatePasswordInput struct {
	CurrentPassword string
	Password        string
	PasswordConfirm string
}

type AuthService struct {
	users   ports.CredentialStore
	hasher  util.PasswordHasher
	tokens  *util.JWTManager
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(users ports.CredentialStore, hasher util.PasswordHasher, tokens *util.JWTManager, logger *slog.Logger, m *metrics.Metrics) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (session *domain.Session, err error) {
	defer func() { s.metrics.AuthEvent("signup", err) }()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "Please tell us your name!")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internalFault("PASSWORD_HASH_FAILED", err)
	}
	user, err := s.users.Create(ctx, domain.NewUser{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, ports.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, internalFault("USER_CREATE_FAILED", err)
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return s.IssueSession(user)
}

// Login never reveals whether the email or the password was wrong. When the
// account does not exist a dummy digest is still verified so both paths cost
// about the same.
func (s *AuthService) Login(ctx context.Context, email, password string) (session *domain.Session, err error) {
	defer func() { s.metrics.AuthEvent("login", err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("email", "Please provide email and password!")
	}

	user, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			s.hasher.Verify(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, internalFault("USER_LOOKUP_FAILED", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeDigest(ctx, user, password)
	}
	return s.IssueSession(user)
}

// Authenticate resolves a session token to an active account. Every failure
// wraps ErrUnauthenticated; only ErrNotLoggedIn is distinguishable.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotLoggedIn
	}
	claims, err := s.tokens.Verify(token, s.now())
	if err != nil {
		reason := "malformed"
		switch {
		case errors.Is(err, util.ErrTokenExpired):
			reason = "expired"
		case errors.Is(err, util.ErrTokenSignatureInvalid):
			reason = "signature"
		}
		s.metrics.TokenRejected(reason)
		return nil, unauthenticated(err.Error())
	}

	user, err := s.users.FindActiveByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			s.metrics.TokenRejected("subject_gone")
			return nil, unauthenticated("token subject no longer exists")
		}
		return nil, internalFault("USER_LOOKUP_FAILED", err, "user_id", claims.SubjectID)
	}
	if user.ChangedPasswordAfter(claims.IssuedAt) {
		s.metrics.TokenRejected("stale")
		return nil, unauthenticated("password changed after token was issued")
	}
	return user, nil
}

// Authorize is the role gate applied after Authenticate.
func (s *AuthService) Authorize(user *domain.User, allowed domain.RoleSet) error {
	if user == nil {
		return ErrNotLoggedIn
	}
	if !allowed.Allows(user.Role) {
		return ErrForbidden
	}
	return nil
}

// UpdatePassword changes the password of an authenticated user and returns a
// fresh session. Tokens issued before the change stop authenticating.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uuid.UUID, in UpdatePasswordInput) (session *domain.Session, err error) {
	defer func() { s.metrics.AuthEvent("update_password", err) }()

	if in.CurrentPassword == "" {
		return nil, invalid("passwordCurrent", "Please provide your current password")
	}
	user, err := s.users.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalFault("USER_LOOKUP_FAILED", err, "user_id", userID)
	}
	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return nil, ErrInvalidCurrentPassword
	}
	if err := validateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internalFault("PASSWORD_HASH_FAILED", err)
	}
	now := s.now()
	changedAt := now.Add(-passwordChangeSkew)
	if err := s.users.UpdatePassword(ctx, user.ID, digest, changedAt); err != nil {
		return nil, internalFault("PASSWORD_UPDATE_FAILED", err, "user_id", user.ID)
	}
	user.PasswordHash = digest
	user.PasswordChangedAt = &changedAt
	s.logger.InfoContext(ctx, "password updated", "user_id", user.ID)
	return s.issueAt(user, now)
}

// IssueSession mints a token for user. The transport renders the same token
// into both the cookie and the response body.
func (s *AuthService) IssueSession(user *domain.User) (*domain.Session, error) {
	return s.issueAt(user, s.now())
}

func (s *AuthService) issueAt(user *domain.User, now time.Time) (*domain.Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return nil, internalFault("TOKEN_ISSUE_FAILED", err, "user_id", user.ID)
	}
	return &domain.Session{
		Token:     token,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
		User:      user,
	}, nil
}

func (s *AuthService) upgradeDigest(ctx context.Context, user *domain.User, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password digest upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpgradePasswordHash(ctx, user.ID, digest); err != nil {
		s.logger.WarnContext(ctx, "password digest upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = digest
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("timing-equalizer-password")
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", invalid("email", "Please provide your email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "Please provide a valid email")
	}
	return email, nil
}

func validateNewPassword(password, confirm string) error {
	if err := util.ValidatePassword(password); err != nil {
		return invalid("password", "%s", capitalize(err.Error()))
	}
	if password != confirm {
		return invalid("passwordConfirm", "Passwords are not the same!")
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
