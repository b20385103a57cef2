package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                string
	Port               string
	DatabaseURL        string
	JWTSecret          string
	JWTExpiresIn       time.Duration
	JWTCookieExpiresIn time.Duration
	CookieSecure       bool
	AllowOrigins       []string
	LogLevel           string
	LogstashTCPAddr    string
	PublicBaseURL      string
	PasswordResetTTL   time.Duration
	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	SMTPFrom           string
	MailTimeout        time.Duration
	MailMaxRetries     uint64
	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinIOBucketPhotos  string
	MinIOPublicURL     string
	PhotoMaxBytes      int64
}

// LoadDotEnv merges a local .env file into the environment. Variables that
// are already set win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
}

// FromEnv reads the environment once. The returned value is never mutated by
// the rest of the process.
func FromEnv() Config {
	env := getenv("APP_ENV", "development")
	return Config{
		Env:                env,
		Port:               getenv("PORT", "3000"),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		JWTSecret:          mustSecret("JWT_SECRET"),
		JWTExpiresIn:       mustDuration("JWT_EXPIRES_IN", "90d"),
		JWTCookieExpiresIn: time.Duration(mustInt("JWT_COOKIE_EXPIRES_IN", "90")) * 24 * time.Hour,
		CookieSecure:       getenv("COOKIE_SECURE", strconv.FormatBool(env == "production")) == "true",
		AllowOrigins:       splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogstashTCPAddr:    getenv("LOGSTASH_TCP_ADDR", ""),
		PublicBaseURL:      strings.TrimRight(getenv("PUBLIC_BASE_URL", ""), "/"),
		PasswordResetTTL:   mustDuration("PASSWORD_RESET_TTL", "10m"),
		SMTPHost:           getenv("SMTP_HOST", ""),
		SMTPPort:           getenv("SMTP_PORT", "587"),
		SMTPUsername:       getenv("SMTP_USERNAME", ""),
		SMTPPassword:       getenv("SMTP_PASSWORD", ""),
		SMTPFrom:           getenv("SMTP_FROM", ""),
		MailTimeout:        mustDuration("MAIL_TIMEOUT", "10s"),
		MailMaxRetries:     uint64(mustInt("MAIL_MAX_RETRIES", "3")),
		MinIOEndpoint:      getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketPhotos:  getenv("MINIO_BUCKET_PHOTOS", "user-photos"),
		MinIOPublicURL:     strings.TrimRight(getenv("MINIO_PUBLIC_URL", ""), "/"),
		PhotoMaxBytes:      int64(mustInt("PHOTO_MAX_BYTES", "5242880")),
	}
}

func (c Config) HTTPAddress() string {
	return ":" + c.Port
}

func (c Config) PhotoStorageEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

// ParseDuration accepts Go durations plus a whole-day suffix ("90d").
func ParseDuration(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(trimmed, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", value)
	}
	return d, nil
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func mustSecret(k string) string {
	v := must(k)
	if len(v) < 32 {
		panic(k + " must be at least 32 characters")
	}
	return v
}

func mustDuration(k, d string) time.Duration {
	v, err := ParseDuration(getenv(k, d))
	if err != nil {
		panic(fmt.Sprintf("invalid env %s: %v", k, err))
	}
	return v
}

func mustInt(k, d string) int {
	v, err := strconv.Atoi(getenv(k, d))
	if err != nil || v < 0 {
		panic(fmt.Sprintf("invalid env %s: %q", k, getenv(k, d)))
	}
	return v
}
