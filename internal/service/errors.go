package service

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidCredentials     = errors.New("incorrect email or password")
	ErrInvalidCurrentPassword = errors.New("current password is wrong")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrForbidden              = errors.New("role not permitted")
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailTaken             = errors.New("email already in use")
	ErrResetTokenInvalid      = errors.New("reset token is invalid or has expired")
	ErrDeliveryFailed         = errors.New("password reset email could not be sent")
)

// ErrNotLoggedIn is the unauthenticated case where no token was presented at
// all. Every other unauthenticated cause is reported the same way.
var ErrNotLoggedIn = fmt.Errorf("%w: no session token", ErrUnauthenticated)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func unauthenticated(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, reason)
}

// internalFault wraps err with an oops code so operators get context while
// clients only ever see a generic server error.
func internalFault(code string, err error, kv ...any) error {
	return oops.Code(code).With(kv...).Wrap(err)
}
