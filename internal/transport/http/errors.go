package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/njprem/tours-auth-api/internal/logging"
	"github.com/njprem/tours-auth-api/internal/service"
	"github.com/njprem/tours-auth-api/internal/util"
)

const (
	msgNotLoggedIn        = "You are not logged in! Please log in to get access."
	msgInvalidToken       = "Invalid token. Please log in again."
	msgBadCredentials     = "Incorrect email or password"
	msgWrongCurrent       = "Your current password is wrong."
	msgForbidden          = "You do not have permission to perform this action"
	msgUserNotFound       = "There is no user with that email address."
	msgEmailTaken         = "Email already in use. Please use another email!"
	msgResetTokenInvalid  = "Token is invalid or has expired"
	msgDeliveryFailed     = "There was an error sending the email. Try again later!"
	msgInternal           = "Something went wrong!"
	msgPasswordNotAllowed = "This route is not for password updates. Please use /updatePassword."
	msgUntrustedHost      = "Password reset is not available for this host."
)

// writeError renders err in the response envelope. Only the mapped client
// messages ever leave the process; internal detail is logged.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		message := "Invalid input data"
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			message = ve.Message
		}
		return c.JSON(http.StatusBadRequest, util.Fail(message))
	case errors.Is(err, service.ErrNotLoggedIn):
		return c.JSON(http.StatusUnauthorized, util.Fail(msgNotLoggedIn))
	case errors.Is(err, service.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, util.Fail(msgInvalidToken))
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, util.Fail(msgBadCredentials))
	case errors.Is(err, service.ErrInvalidCurrentPassword):
		return c.JSON(http.StatusUnauthorized, util.Fail(msgWrongCurrent))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, util.Fail(msgForbidden))
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, util.Fail(msgUserNotFound))
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusBadRequest, util.Fail(msgEmailTaken))
	case errors.Is(err, service.ErrResetTokenInvalid):
		return c.JSON(http.StatusBadRequest, util.Fail(msgResetTokenInvalid))
	case errors.Is(err, service.ErrDeliveryFailed):
		logging.LogError(logger, "password reset delivery failed", err)
		return c.JSON(http.StatusInternalServerError, util.Error(msgDeliveryFailed))
	default:
		logging.LogError(logger, "request failed", err, "method", c.Request().Method, "path", c.Path())
		return c.JSON(http.StatusInternalServerError, util.Error(msgInternal))
	}
}

// httpErrorHandler renders framework errors (unknown route, bad method,
// oversized body) in the same envelope as handler errors.
func httpErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			_ = writeError(c, logger, err)
			return
		}
		var body util.Envelope
		switch {
		case he.Code == http.StatusNotFound:
			body = util.Fail("Can't find " + c.Request().URL.Path + " on this server")
		case he.Code >= http.StatusInternalServerError:
			logging.LogError(logger, "request failed", err)
			body = util.Error(msgInternal)
		default:
			body = util.Fail(http.StatusText(he.Code))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, body)
	}
}
