package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/util"
)

const sessionCookieName = "jwt"

// SessionConfig controls how issued sessions are rendered to the client.
type SessionConfig struct {
	CookieTTL    time.Duration
	CookieSecure bool
}

// sendSession renders one issued session into both channels: an httpOnly
// cookie for browsers and the body token for everyone else.
func sendSession(c echo.Context, cfg SessionConfig, status int, session *domain.Session) error {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.IssuedAt.Add(cfg.CookieTTL),
		HttpOnly: true,
		Secure:   cfg.CookieSecure || c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
	resp := SessionResponse{Status: util.StatusSuccess, Token: session.Token}
	resp.Data.User = toUserResponse(session.User)
	return c.JSON(status, resp)
}
