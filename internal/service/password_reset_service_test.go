package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/util"
)

func tokenAsURL(token string) string { return token }

func requestReset(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	require.NoError(t, env.resets.ForgotPassword(context.Background(), email, tokenAsURL))
	require.NotEmpty(t, env.mailer.sent)
	return env.mailer.sent[len(env.mailer.sent)-1].url
}

func TestGenerateResetToken(t *testing.T) {
	env := newTestEnv(t)
	now := env.clock.Now()

	reset, err := env.resets.Generate(&domain.User{}, now)
	require.NoError(t, err)

	assert.Len(t, reset.Token, 2*util.ResetTokenBytes)
	assert.Equal(t, util.HashResetToken(reset.Token), reset.TokenHash)
	assert.NotEqual(t, reset.Token, reset.TokenHash)
	assert.True(t, reset.ExpiresAt.Equal(now.Add(10*time.Minute)))
}

func TestForgotPasswordStoresOnlyDigest(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "forgot@example.com", "pass1234")

	token := requestReset(t, env, " Forgot@Example.com")
	assert.Equal(t, "forgot@example.com", env.mailer.sent[0].email)

	stored, err := env.store.FindActiveByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetToken)
	require.NotNil(t, stored.PasswordResetExpires)
	assert.NotEqual(t, token, *stored.PasswordResetToken)
	assert.Equal(t, util.HashResetToken(token), *stored.PasswordResetToken)
	assert.True(t, stored.PasswordResetExpires.Equal(env.clock.Now().Add(DefaultPasswordResetTTL)))
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	err := env.resets.ForgotPassword(context.Background(), "ghost@example.com", tokenAsURL)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, env.mailer.sent)

	err = env.resets.ForgotPassword(context.Background(), " ", tokenAsURL)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestForgotPasswordDeliveryFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "undelivered@example.com", "pass1234")
	env.mailer.err = errors.New("smtp: 421 service not available")

	err := env.resets.ForgotPassword(context.Background(), "undelivered@example.com", tokenAsURL)
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 1, env.store.clearCalls)

	stored, err := env.store.FindActiveByID(context.Background(), session.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)

	_, err = env.resets.ResetPassword(context.Background(), env.mailer.sent[0].url, "newpass1234", "newpass1234")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestForgotPasswordRollbackFailureStillReportsDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "undelivered@example.com", "pass1234")
	env.mailer.err = errors.New("smtp down")
	env.store.clearErr = errors.New("db down")

	err := env.resets.ForgotPassword(context.Background(), "undelivered@example.com", tokenAsURL)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestResetPasswordIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	old := env.signup(t, "reset@example.com", "pass1234")
	token := requestReset(t, env, "reset@example.com")

	env.clock.Advance(5 * time.Minute)
	session, err := env.resets.ResetPassword(ctx, token, "newpass1234", "newpass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, old.User.ID, session.User.ID)

	stored, err := env.store.FindActiveByID(ctx, old.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
	require.NotNil(t, stored.PasswordChangedAt)

	_, err = env.resets.ResetPassword(ctx, token, "otherpass1234", "otherpass1234")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)

	_, err = env.auth.Login(ctx, "reset@example.com", "pass1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, "reset@example.com", "newpass1234")
	assert.NoError(t, err)

	_, err = env.auth.Authenticate(ctx, old.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated, "sessions from before the reset must be rejected")
	_, err = env.auth.Authenticate(ctx, session.Token)
	assert.NoError(t, err)
}

func TestResetPasswordExpiryIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "expiry@example.com", "pass1234")
	token := requestReset(t, env, "expiry@example.com")

	env.clock.Advance(DefaultPasswordResetTTL)
	_, err := env.resets.ResetPassword(context.Background(), token, "newpass1234", "newpass1234")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPasswordJustBeforeExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "edge@example.com", "pass1234")
	token := requestReset(t, env, "edge@example.com")

	env.clock.Advance(DefaultPasswordResetTTL - time.Millisecond)
	_, err := env.resets.ResetPassword(context.Background(), token, "newpass1234", "newpass1234")
	assert.NoError(t, err)
}

func TestResetPasswordValidationKeepsTokenLive(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "mismatch@example.com", "pass1234")
	token := requestReset(t, env, "mismatch@example.com")

	_, err := env.resets.ResetPassword(context.Background(), token, "newpass1234", "nope")
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.resets.ResetPassword(context.Background(), token, "newpass1234", "newpass1234")
	assert.NoError(t, err)
}

func TestResetPasswordRejectsUnknownTokens(t *testing.T) {
	env := newTestEnv(t)
	for _, token := range []string{"", "   ", "deadbeef"} {
		_, err := env.resets.ResetPassword(context.Background(), token, "newpass1234", "newpass1234")
		assert.ErrorIs(t, err, ErrResetTokenInvalid, "token %q", token)
	}
}

func TestNewRequestReplacesPreviousToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "twice@example.com", "pass1234")
	first := requestReset(t, env, "twice@example.com")
	second := requestReset(t, env, "twice@example.com")

	_, err := env.resets.ResetPassword(context.Background(), first, "newpass1234", "newpass1234")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	_, err = env.resets.ResetPassword(context.Background(), second, "newpass1234", "newpass1234")
	assert.NoError(t, err)
}
