package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
	defaultResetTTL   = 10 * time.Minute
)

var ErrNotConfigured = errors.New("mailer missing configuration")

type sendFunc func(ctx context.Context, addr, from, to string, msg []byte) error

type PasswordResetMailer struct {
	host       string
	port       string
	username   string
	password   string
	from       string
	timeout    time.Duration
	maxRetries uint64
	retryDelay time.Duration
	resetTTL   time.Duration
	send       sendFunc
}

type Config struct {
	Host       string
	Port       string
	Username   string
	Password   string
	From       string
	Timeout    time.Duration
	MaxRetries uint64
	// ResetTTL is how long the mailed link stays valid. It only feeds the
	// subject line.
	ResetTTL time.Duration
}

func NewPasswordResetMailer(cfg Config) *PasswordResetMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	resetTTL := cfg.ResetTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTTL
	}
	m := &PasswordResetMailer{
		host:       strings.TrimSpace(cfg.Host),
		port:       strings.TrimSpace(cfg.Port),
		username:   cfg.Username,
		password:   cfg.Password,
		from:       strings.TrimSpace(cfg.From),
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: defaultRetryDelay,
		resetTTL:   resetTTL,
	}
	m.send = m.sendSMTP
	return m
}

// SendPasswordReset delivers the reset link. Each attempt is bounded by the
// configured timeout; transient failures are retried with exponential backoff.
func (m *PasswordResetMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return ErrNotConfigured
	}

	msg := buildMessage(m.from, email, resetURL, m.resetTTL)
	addr := net.JoinHostPort(m.host, m.port)

	backoff := retry.WithMaxRetries(m.maxRetries, retry.NewExponential(m.retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		err := m.send(attemptCtx, addr, m.from, email, msg)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func buildMessage(from, to, resetURL string, ttl time.Duration) []byte {
	subject := fmt.Sprintf("Your password reset token (valid for %s)", formatTTL(ttl))
	body := fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\n\nIf you didn't forget your password, please ignore this email.", resetURL)

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", to))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	message.WriteString(body)
	message.WriteString("\r\n")
	return []byte(message.String())
}

func formatTTL(ttl time.Duration) string {
	switch {
	case ttl >= time.Hour && ttl%time.Hour == 0:
		return fmt.Sprintf("%d h", ttl/time.Hour)
	case ttl >= time.Minute && ttl%time.Minute == 0:
		return fmt.Sprintf("%d min", ttl/time.Minute)
	default:
		return ttl.String()
	}
}

// isTransient treats permanent SMTP replies (5xx) as final and everything
// else, including network errors and timeouts, as worth another attempt.
func isTransient(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code < 500
	}
	return !errors.Is(err, context.Canceled)
}

func (m *PasswordResetMailer) sendSMTP(ctx context.Context, addr, from, to string, msg []byte) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}
	if m.username != "" || m.password != "" {
		if err := client.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
