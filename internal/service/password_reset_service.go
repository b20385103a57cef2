package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/logging"
	"github.com/njprem/tours-auth-api/internal/metrics"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
	"github.com/njprem/tours-auth-api/internal/util"
)

const DefaultPasswordResetTTL = 10 * time.Minute

// ResetURLFunc renders the link mailed to the user for a plaintext token.
type ResetURLFunc func(token string) string

type PasswordResetService struct {
	users   ports.CredentialStore
	hasher  util.PasswordHasher
	auth    *AuthService
	mailer  ports.PasswordResetMailer
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPasswordResetService(users ports.CredentialStore, hasher util.PasswordHasher, auth *AuthService, mailer ports.PasswordResetMailer, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *PasswordResetService {
	if ttl <= 0 {
		ttl = DefaultPasswordResetTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordResetService{
		users:   users,
		hasher:  hasher,
		auth:    auth,
		mailer:  mailer,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Generate mints a reset token for user. Only the digest and expiry are meant
// to be stored; the plaintext goes out in the email and nowhere else.
func (s *PasswordResetService) Generate(user *domain.User, now time.Time) (domain.PasswordReset, error) {
	token, digest, err := util.GenerateResetToken()
	if err != nil {
		return domain.PasswordReset{}, internalFault("RESET_TOKEN_GENERATE_FAILED", err, "user_id", user.ID)
	}
	return domain.PasswordReset{
		Token:     token,
		TokenHash: digest,
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

// Consume exchanges a live reset token for a new password digest. The store
// performs the swap as one update, so a token succeeds at most once.
func (s *PasswordResetService) Consume(ctx context.Context, token, passwordHash string, now time.Time) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrResetTokenInvalid
	}
	user, err := s.users.ConsumePasswordResetToken(ctx, util.HashResetToken(token), now, passwordHash, now.Add(-passwordChangeSkew))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, internalFault("RESET_CONSUME_FAILED", err)
	}
	return user, nil
}

// ForgotPassword stores a fresh reset token for email and mails it. When the
// email cannot be delivered the stored token is cleared before returning.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string, resetURL ResetURLFunc) (err error) {
	defer func() { s.metrics.AuthEvent("forgot_password", err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("email", "Please provide your email")
	}
	user, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ErrUserNotFound
		}
		return internalFault("USER_LOOKUP_FAILED", err)
	}

	reset, err := s.Generate(user, s.now())
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordResetToken(ctx, user.ID, reset.TokenHash, reset.ExpiresAt); err != nil {
		return internalFault("RESET_STORE_FAILED", err, "user_id", user.ID)
	}

	sendErr := s.send(ctx, user.Email, resetURL(reset.Token))
	s.metrics.ResetDelivery(sendErr)
	if sendErr == nil {
		s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID)
		return nil
	}

	if clearErr := s.users.ClearPasswordResetToken(context.WithoutCancel(ctx), user.ID); clearErr != nil {
		logging.LogError(s.logger, "reset token rollback failed", internalFault("RESET_ROLLBACK_FAILED", clearErr, "user_id", user.ID))
	}
	return internalFault("RESET_DELIVERY_FAILED", fmt.Errorf("%w: %w", ErrDeliveryFailed, sendErr), "user_id", user.ID)
}

// ResetPassword validates the new password, consumes token and starts a new
// session for the account it belonged to.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, password, confirm string) (session *domain.Session, err error) {
	defer func() { s.metrics.AuthEvent("reset_password", err) }()

	if strings.TrimSpace(token) == "" {
		return nil, ErrResetTokenInvalid
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalFault("PASSWORD_HASH_FAILED", err)
	}
	now := s.now()
	user, err := s.Consume(ctx, token, digest, now)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return s.auth.issueAt(user, now)
}

func (s *PasswordResetService) send(ctx context.Context, email, url string) error {
	if s.mailer == nil {
		return errors.New("no mailer configured")
	}
	return s.mailer.SendPasswordReset(ctx, email, url)
}
