package http

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/service"
)

const contextUserKey = "auth.user"

// Authenticate resolves the caller from the Authorization header, falling
// back to the session cookie when no header is sent, and stores the user on
// the context.
func Authenticate(auth *service.AuthService, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := auth.Authenticate(c.Request().Context(), sessionToken(c))
			if err != nil {
				return writeError(c, logger, err)
			}
			c.Set(contextUserKey, user)
			return next(c)
		}
	}
}

// Authorize admits only callers whose role is in roles. The set is fixed
// when the route is registered. It must run after Authenticate.
func Authorize(auth *service.AuthService, logger *slog.Logger, roles ...domain.Role) echo.MiddlewareFunc {
	allowed := domain.NewRoleSet(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, _ := CurrentUser(c)
			if err := auth.Authorize(user, allowed); err != nil {
				return writeError(c, logger, err)
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(contextUserKey).(*domain.User)
	return user, ok && user != nil
}

// sessionToken returns "" when the request carries no usable token. A
// header that is not a bearer credential is not replaced by the cookie.
func sessionToken(c echo.Context) string {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
