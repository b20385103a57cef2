package ports

import (
	"context"
	"io"
)

// ObjectStorage stores an object and returns its public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error)
}

type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}
