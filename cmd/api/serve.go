package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/njprem/tours-auth-api/internal/config"
	"github.com/njprem/tours-auth-api/internal/logging"
	"github.com/njprem/tours-auth-api/internal/metrics"
	"github.com/njprem/tours-auth-api/internal/repository/memory"
	miniorepo "github.com/njprem/tours-auth-api/internal/repository/minio"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
	"github.com/njprem/tours-auth-api/internal/repository/postgres"
	"github.com/njprem/tours-auth-api/internal/service"
	httpx "github.com/njprem/tours-auth-api/internal/transport/http"
	"github.com/njprem/tours-auth-api/internal/transport/mail"
	"github.com/njprem/tours-auth-api/internal/util"
)

const defaultShutdownTimeout = 10 * time.Second

type serveConfig struct {
	memory          bool
	docsDir         string
	shutdownTimeout time.Duration
}

func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Pending migrations are applied at startup unless
--memory is given, in which case accounts live only for the life of the process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.memory, "memory", false, "keep accounts in memory instead of Postgres")
	cmd.Flags().StringVar(&cfg.docsDir, "docs", "docs", "directory holding swagger.yaml")
	cmd.Flags().DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "grace period for in-flight requests")

	return cmd
}

func runServe(cmd *cobra.Command, sc *serveConfig) error {
	cfg := config.FromEnv()

	logger, sink, err := logging.New(logging.Config{Level: cfg.LogLevel, LogstashTCPAddr: cfg.LogstashTCPAddr})
	if err != nil {
		return oops.Code("LOGGER_INIT_FAILED").Wrap(err)
	}
	defer sink.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openStore(ctx, cfg, sc.memory, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	e, err := newServer(ctx, cfg, users, sc.docsDir, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddress(), "env", cfg.Env)
		errCh <- e.Start(cfg.HTTPAddress())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return oops.Code("HTTP_SERVER_FAILED").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, inMemory bool, logger *slog.Logger) (ports.CredentialStore, func(), error) {
	if inMemory {
		logger.Warn("using in-memory credential store; accounts are lost on exit")
		return memory.NewCredentialStore(), func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return postgres.NewCredentialStore(db), func() { db.Close() }, nil
}

// newServer wires every service onto a router. Photo storage is optional;
// without MinIO settings profile photo uploads are refused.
func newServer(ctx context.Context, cfg config.Config, users ports.CredentialStore, docsDir string, logger *slog.Logger) (*echo.Echo, error) {
	if cfg.SMTPHost != "" && cfg.PublicBaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("PUBLIC_BASE_URL is required when SMTP_HOST is set")
	}

	m := metrics.New()
	hasher := util.NewArgon2Hasher()
	tokens := util.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn)

	mailer := mail.NewPasswordResetMailer(mail.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		Timeout:    cfg.MailTimeout,
		MaxRetries: cfg.MailMaxRetries,
		ResetTTL:   cfg.PasswordResetTTL,
	})
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set; password reset emails will fail")
	}

	var storage ports.ObjectStorage
	if cfg.PhotoStorageEnabled() {
		client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			return nil, oops.Code("STORAGE_INIT_FAILED").Wrap(err)
		}
		s := miniorepo.NewStorage(client, cfg.MinIOPublicURL)
		if err := s.EnsureBucket(ctx, cfg.MinIOBucketPhotos); err != nil {
			return nil, oops.Code("STORAGE_INIT_FAILED").With("bucket", cfg.MinIOBucketPhotos).Wrap(err)
		}
		storage = s
	} else {
		logger.Info("MinIO not configured; photo uploads disabled")
	}

	auth := service.NewAuthService(users, hasher, tokens, logger, m)
	resets := service.NewPasswordResetService(users, hasher, auth, mailer, cfg.PasswordResetTTL, logger, m)
	profiles := service.NewUserService(users, storage, service.UserServiceConfig{
		Bucket:        cfg.MinIOBucketPhotos,
		MaxPhotoBytes: cfg.PhotoMaxBytes,
	}, logger)

	e := httpx.NewRouter(httpx.RouterConfig{AllowOrigins: cfg.AllowOrigins, Logger: logger, Metrics: m})
	httpx.RegisterAuth(e, auth, resets, httpx.AuthConfig{
		Session: httpx.SessionConfig{
			CookieTTL:    cfg.JWTCookieExpiresIn,
			CookieSecure: cfg.CookieSecure,
		},
		PublicBaseURL: cfg.PublicBaseURL,
		TrustedHosts:  trustedHosts(cfg.AllowOrigins),
	}, logger)
	httpx.RegisterUsers(e, auth, profiles, logger)
	httpx.RegisterSwagger(e, docsDir)
	return e, nil
}

// trustedHosts extracts the host[:port] of each allowed origin. Wildcards and
// unparsable entries are skipped.
func trustedHosts(origins []string) []string {
	var hosts []string
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" || strings.Contains(u.Host, "*") {
			continue
		}
		hosts = append(hosts, strings.ToLower(u.Host))
	}
	return hosts
}
