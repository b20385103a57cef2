package http

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/tours-auth-api/internal/service"
	"github.com/njprem/tours-auth-api/internal/util"
)

const (
	usersBasePath     = "/api/v1/users"
	resetPasswordPath = usersBasePath + "/resetPassword/"
)

// AuthConfig carries the transport-level settings of the auth routes.
type AuthConfig struct {
	Session SessionConfig
	// PublicBaseURL prefixes reset links.
	PublicBaseURL string
	// TrustedHosts lists the Host values a reset link may be built from when
	// PublicBaseURL is empty. Requests with any other Host are refused.
	TrustedHosts []string
}

type AuthHandler struct {
	auth   *service.AuthService
	resets *service.PasswordResetService
	cfg    AuthConfig
	logger *slog.Logger
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService, resets *service.PasswordResetService, cfg AuthConfig, logger *slog.Logger) {
	h := &AuthHandler{auth: auth, resets: resets, cfg: cfg, logger: logger}

	g := e.Group(usersBasePath)
	g.POST("/signup", h.signup)
	g.POST("/login", h.login)
	g.POST("/forgotPassword", h.forgotPassword)
	g.PATCH("/resetPassword/:token", h.resetPassword)
	g.PATCH("/updatePassword", h.updatePassword, Authenticate(auth, logger))
}

func (h *AuthHandler) signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	session, err := h.auth.Signup(c.Request().Context(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return sendSession(c, h.cfg.Session, http.StatusCreated, session)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return sendSession(c, h.cfg.Session, http.StatusOK, session)
}

func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	resetURL, err := h.resetURL(c)
	if err != nil {
		h.logger.WarnContext(c.Request().Context(), "reset link refused for untrusted host", "host", c.Request().Host)
		return c.JSON(http.StatusBadRequest, util.Fail(msgUntrustedHost))
	}
	if err := h.resets.ForgotPassword(c.Request().Context(), req.Email, resetURL); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"status":  util.StatusSuccess,
		"message": "Token sent to email!",
	})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	session, err := h.resets.ResetPassword(c.Request().Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return sendSession(c, h.cfg.Session, http.StatusOK, session)
}

func (h *AuthHandler) updatePassword(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return writeError(c, h.logger, service.ErrNotLoggedIn)
	}
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	session, err := h.auth.UpdatePassword(c.Request().Context(), user.ID, service.UpdatePasswordInput{
		CurrentPassword: req.PasswordCurrent,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return sendSession(c, h.cfg.Session, http.StatusOK, session)
}

var errUntrustedHost = errors.New("request host is not trusted for reset links")

// resetURL picks the origin reset links point at. The request's Host is
// client-controlled, so it is only used when explicitly trusted.
func (h *AuthHandler) resetURL(c echo.Context) (service.ResetURLFunc, error) {
	base := strings.TrimRight(h.cfg.PublicBaseURL, "/")
	if base == "" {
		host := strings.ToLower(c.Request().Host)
		if !slices.Contains(h.cfg.TrustedHosts, host) {
			return nil, errUntrustedHost
		}
		base = c.Scheme() + "://" + host
	}
	return func(token string) string {
		return base + resetPasswordPath + token
	}, nil
}
