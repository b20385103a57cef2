// Package logging builds the process logger. Records are JSON lines on
// stdout, optionally mirrored to Logstash.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
)

type Config struct {
	Level           string
	LogstashTCPAddr string
}

// New returns the process logger and a closer for the Logstash sink. The
// closer is a no-op when no sink is configured.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(cfg.LogstashTCPAddr) != "" {
		sink, err := NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, sink)
		closer = sink
	}
	return NewWithWriter(out, cfg.Level), closer, nil
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogError logs err, expanding oops code and context attributes.
func LogError(logger *slog.Logger, msg string, err error, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, append([]any{"error", err}, args...)...)
		return
	}
	attrs := append([]any{"error", oopsErr.Error()}, args...)
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
