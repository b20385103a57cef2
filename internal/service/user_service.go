package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/media"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
)

const (
	DefaultListLimit     = 50
	MaxListLimit         = 200
	defaultMaxPhotoBytes = int64(5 * 1024 * 1024)
)

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

type PhotoUpload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type UpdateMeInput struct {
	Name  *string
	Email *string
	Photo *PhotoUpload
}

type UserServiceConfig struct {
	Bucket        string
	MaxPhotoBytes int64
	Processor     media.Processor
}

type UserService struct {
	users     ports.CredentialStore
	storage   ports.ObjectStorage
	processor media.Processor
	bucket    string
	maxPhoto  int64
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService builds the profile service. storage may be nil, in which
// case photo uploads are rejected.
func NewUserService(users ports.CredentialStore, storage ports.ObjectStorage, cfg UserServiceConfig, logger *slog.Logger) *UserService {
	maxPhoto := cfg.MaxPhotoBytes
	if maxPhoto <= 0 {
		maxPhoto = defaultMaxPhotoBytes
	}
	processor := cfg.Processor
	if processor == nil {
		processor = media.NewAvatarProcessor(media.DefaultAvatarSize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:     users,
		storage:   storage,
		processor: processor,
		bucket:    strings.TrimSpace(cfg.Bucket),
		maxPhoto:  maxPhoto,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *UserService) GetMe(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalFault("USER_LOOKUP_FAILED", err, "user_id", id)
	}
	return user, nil
}

// UpdateMe applies the whitelisted profile fields. Password, role and status
// are never reachable from here.
func (s *UserService) UpdateMe(ctx context.Context, id uuid.UUID, in UpdateMeInput) (*domain.User, error) {
	var update domain.ProfileUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "Please tell us your name!")
		}
		update.Name = &name
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		update.Email = &email
	}
	if in.Photo != nil {
		url, err := s.storePhoto(ctx, id, *in.Photo)
		if err != nil {
			return nil, err
		}
		update.Photo = &url
	}
	if update.Empty() {
		return s.GetMe(ctx, id)
	}

	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, ports.ErrEmailTaken):
			return nil, ErrEmailTaken
		}
		return nil, internalFault("PROFILE_UPDATE_FAILED", err, "user_id", id)
	}
	return user, nil
}

// DeleteMe soft-deletes the account; it disappears from every lookup.
func (s *UserService) DeleteMe(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ErrUserNotFound
		}
		return internalFault("USER_DEACTIVATE_FAILED", err, "user_id", id)
	}
	s.logger.InfoContext(ctx, "user deactivated", "user_id", id)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, int, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, 0, 0, internalFault("USER_LIST_FAILED", err)
	}
	return users, limit, offset, nil
}

func (s *UserService) storePhoto(ctx context.Context, id uuid.UUID, photo PhotoUpload) (string, error) {
	if s.storage == nil || s.bucket == "" {
		return "", invalid("photo", "Photo uploads are not available")
	}
	if photo.Reader == nil || photo.Size <= 0 {
		return "", invalid("photo", "Photo is empty")
	}
	if photo.Size > s.maxPhoto {
		return "", invalid("photo", "Photo exceeds size limit (%d bytes)", s.maxPhoto)
	}
	contentType := strings.ToLower(strings.TrimSpace(photo.ContentType))
	if _, ok := allowedPhotoTypes[contentType]; !ok {
		return "", invalid("photo", "Not an image! Please upload only images.")
	}

	result, err := s.processor.Process(ctx, media.Upload{
		Reader:      io.LimitReader(photo.Reader, s.maxPhoto),
		Size:        photo.Size,
		FileName:    photo.FileName,
		ContentType: contentType,
	})
	if err != nil {
		if errors.Is(err, media.ErrImageTooLarge) {
			return "", invalid("photo", "Photo dimensions are too large (max %d pixels)", media.MaxPixels)
		}
		return "", invalid("photo", "Photo could not be processed")
	}

	objectKey := fmt.Sprintf("users/%s/%s.jpeg", id.String(), s.now().UTC().Format("20060102T150405Z0700"))
	url, err := s.storage.Upload(ctx, s.bucket, objectKey, result.ContentType, bytes.NewReader(result.Bytes), int64(len(result.Bytes)))
	if err != nil {
		return "", internalFault("PHOTO_UPLOAD_FAILED", err, "user_id", id, "object", objectKey)
	}
	return url, nil
}
