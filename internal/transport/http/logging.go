package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/njprem/tours-auth-api/internal/metrics"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
	redacted           = "redacted"
)

// sensitiveKeys never reach the log, at any nesting depth.
var sensitiveKeys = []string{"password", "token", "jwt", "secret"}

func registerLogging(e *echo.Echo, logger *slog.Logger, m *metrics.Metrics) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURIPath:  true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(v.Method, route, strconv.Itoa(v.Status), v.Latency)

			userID := "anonymous"
			if user, ok := CurrentUser(c); ok {
				userID = user.ID.String()
			}
			attrs := []slog.Attr{
				slog.String("user_id", userID),
				slog.Int64("latency_ms", v.Latency.Milliseconds()),
				slog.Group("request",
					slog.String("method", v.Method),
					slog.String("path", redactPath(v.URIPath)),
					slog.Any("body", c.Get(requestBodyLogKey)),
				),
				slog.Group("response",
					slog.Int("status", v.Status),
					slog.Any("body", c.Get(responseBodyLogKey)),
				),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			if v.Status >= 500 {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if summary := sanitizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
			c.Set(requestBodyLogKey, summary)
		}
		if summary := sanitizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
			c.Set(responseBodyLogKey, summary)
		}
	}))
}

// redactPath hides the reset token carried in the resetPassword path.
func redactPath(path string) string {
	if strings.HasPrefix(path, resetPasswordPath) && len(path) > len(resetPasswordPath) {
		return resetPasswordPath + redacted
	}
	return path
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func sanitizeBody(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}

	trimmedType := strings.TrimSpace(contentType)
	loweredType := strings.ToLower(trimmedType)

	if strings.HasPrefix(loweredType, echo.MIMEMultipartForm) {
		return sanitizeMultipart(body, trimmedType)
	}

	if strings.HasPrefix(loweredType, echo.MIMEApplicationJSON) || json.Valid(body) {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			return limitJSONSize(sanitizeJSON(data, ""))
		}
	}

	if strings.HasPrefix(loweredType, echo.MIMEApplicationForm) {
		if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 {
			sanitized := make(map[string]any, len(values))
			for key, vals := range values {
				if isSensitiveKey(key) {
					sanitized[key] = redacted
					continue
				}
				items := make([]any, 0, len(vals))
				for _, v := range vals {
					items = append(items, sanitizeStringValue(v, key))
				}
				if len(items) == 1 {
					sanitized[key] = items[0]
				} else {
					sanitized[key] = items
				}
			}
			return limitJSONSize(sanitized)
		}
	}

	if containsBinaryBytes(body) {
		return "binary"
	}
	text := string(body)
	if isSensitiveKey(text) {
		return redacted
	}
	return clampString(text)
}

func limitJSONSize(value any) any {
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	return map[string]any{"_truncated": true, "_bytes": len(buf)}
}

func sanitizeJSON(value any, keyHint string) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if isSensitiveKey(key) {
				result[key] = redacted
				continue
			}
			result[key] = sanitizeJSON(val, key)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = sanitizeJSON(item, keyHint)
		}
		return result
	case string:
		return sanitizeStringValue(v, keyHint)
	default:
		return v
	}
}

func sanitizeStringValue(value string, keyHint string) string {
	if keyHint != "" && isSensitiveKey(keyHint) {
		return redacted
	}
	if containsBinaryBytes([]byte(value)) {
		return "binary"
	}
	return clampString(value)
}

func sanitizeMultipart(body []byte, contentType string) any {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return "binary"
	}

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	fields := make(map[string]any)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "binary"
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}

		var value any = "binary"
		if part.FileName() == "" {
			if data, err := io.ReadAll(part); err == nil {
				value = sanitizeStringValue(string(data), name)
			}
		}
		_ = part.Close()
		addFormField(fields, name, value)
	}
	if len(fields) == 0 {
		return "binary"
	}
	return limitJSONSize(fields)
}

func containsBinaryBytes(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return true
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
		data = data[size:]
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	truncated := value[:maxLoggedBody]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "...(truncated)"
}

func addFormField(fields map[string]any, key string, value any) {
	if existing, ok := fields[key]; ok {
		switch items := existing.(type) {
		case []any:
			fields[key] = append(items, value)
		default:
			fields[key] = []any{items, value}
		}
		return
	}
	fields[key] = value
}
