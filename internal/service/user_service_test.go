package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/njprem/tours-auth-api/internal/media"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
)

type uploadCall struct {
	bucket      string
	objectName  string
	contentType string
	size        int64
	data        []byte
}

type fakeStorage struct {
	uploads []uploadCall
	err     error
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	data, _ := io.ReadAll(reader)
	f.uploads = append(f.uploads, uploadCall{bucket: bucket, objectName: objectName, contentType: contentType, size: size, data: data})
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + bucket + "/" + objectName, nil
}

var _ ports.ObjectStorage = (*fakeStorage)(nil)

func pngPhoto(t *testing.T) PhotoUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return PhotoUpload{Reader: &buf, Size: int64(buf.Len()), FileName: "me.png", ContentType: "image/png"}
}

func strPtr(s string) *string { return &s }

func TestUpdateMeWhitelistedFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.signup(t, "me@example.com", "pass1234")

	updated, err := env.users.UpdateMe(ctx, session.User.ID, UpdateMeInput{
		Name:  strPtr("  New Name "),
		Email: strPtr("New@Example.com"),
	})
	if err != nil {
		t.Fatalf("update me: %v", err)
	}
	if updated.Name != "New Name" || updated.Email != "new@example.com" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if updated.PasswordHash != session.User.PasswordHash || updated.Role != session.User.Role {
		t.Fatal("password and role must be untouched")
	}
}

func TestUpdateMeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.signup(t, "me@example.com", "pass1234")
	env.signup(t, "taken@example.com", "pass1234")

	if _, err := env.users.UpdateMe(ctx, session.User.ID, UpdateMeInput{Name: strPtr("  ")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
	if _, err := env.users.UpdateMe(ctx, session.User.ID, UpdateMeInput{Email: strPtr("nope")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad email, got %v", err)
	}
	if _, err := env.users.UpdateMe(ctx, session.User.ID, UpdateMeInput{Email: strPtr("taken@example.com")}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	photo := pngPhoto(t)
	if _, err := env.users.UpdateMe(ctx, session.User.ID, UpdateMeInput{Photo: &photo}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation when storage is disabled, got %v", err)
	}
}

func TestUpdateMeEmptyReturnsCurrentProfile(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "me@example.com", "pass1234")

	user, err := env.users.UpdateMe(context.Background(), session.User.ID, UpdateMeInput{})
	if err != nil {
		t.Fatalf("update me: %v", err)
	}
	if user.ID != session.User.ID {
		t.Fatalf("unexpected user %s", user.ID)
	}
}

func TestUpdateMeUploadsProcessedPhoto(t *testing.T) {
	env := newTestEnv(t)
	storage := &fakeStorage{}
	env.users = NewUserService(env.store, storage, UserServiceConfig{
		Bucket:    "user-photos",
		Processor: media.NewAvatarProcessor(32),
	}, nil)
	env.users.now = env.clock.Now
	session := env.signup(t, "photo@example.com", "pass1234")

	photo := pngPhoto(t)
	user, err := env.users.UpdateMe(context.Background(), session.User.ID, UpdateMeInput{Photo: &photo})
	if err != nil {
		t.Fatalf("update me: %v", err)
	}
	if len(storage.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(storage.uploads))
	}
	call := storage.uploads[0]
	if call.bucket != "user-photos" || call.contentType != "image/jpeg" {
		t.Fatalf("unexpected upload %+v", call)
	}
	if !strings.HasPrefix(call.objectName, "users/"+session.User.ID.String()+"/") || !strings.HasSuffix(call.objectName, ".jpeg") {
		t.Fatalf("unexpected object name %s", call.objectName)
	}
	if int64(len(call.data)) != call.size {
		t.Fatalf("size %d does not match payload %d", call.size, len(call.data))
	}
	if user.Photo != "https://cdn.example.com/user-photos/"+call.objectName {
		t.Fatalf("photo url not stored, got %q", user.Photo)
	}
}

func TestUpdateMeRejectsBadPhotos(t *testing.T) {
	env := newTestEnv(t)
	storage := &fakeStorage{}
	env.users = NewUserService(env.store, storage, UserServiceConfig{Bucket: "user-photos", MaxPhotoBytes: 1 << 20}, nil)
	session := env.signup(t, "photo@example.com", "pass1234")
	ctx := context.Background()

	cases := map[string]PhotoUpload{
		"wrong type":    {Reader: strings.NewReader("%PDF"), Size: 4, ContentType: "application/pdf"},
		"too large":     {Reader: strings.NewReader("x"), Size: 2 << 20, ContentType: "image/png"},
		"empty":         {Reader: strings.NewReader(""), Size: 0, ContentType: "image/png"},
		"not decodable": {Reader: strings.NewReader("garbage"), Size: 7, ContentType: "image/png"},
	}
	for name, photo := range cases {
		photo := photo
		if _, err := env.users.UpdateMe(ctx, session.User.ID, UpdateMeInput{Photo: &photo}); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", name, err)
		}
	}
	if len(storage.uploads) != 0 {
		t.Fatalf("expected no uploads, got %d", len(storage.uploads))
	}
}

func TestUpdateMeRejectsDecompressionBomb(t *testing.T) {
	env := newTestEnv(t)
	storage := &fakeStorage{}
	env.users = NewUserService(env.store, storage, UserServiceConfig{Bucket: "user-photos"}, nil)
	session := env.signup(t, "bomb@example.com", "pass1234")

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8000, 8000))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	photo := PhotoUpload{Reader: &buf, Size: int64(buf.Len()), FileName: "big.png", ContentType: "image/png"}

	_, err := env.users.UpdateMe(context.Background(), session.User.ID, UpdateMeInput{Photo: &photo})
	var ve *ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "too large") {
		t.Fatalf("expected dimension validation error, got %v", err)
	}
	if len(storage.uploads) != 0 {
		t.Fatalf("expected no uploads, got %d", len(storage.uploads))
	}
}

func TestDeleteMeDeactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.signup(t, "bye@example.com", "pass1234")

	if err := env.users.DeleteMe(ctx, session.User.ID); err != nil {
		t.Fatalf("delete me: %v", err)
	}
	if _, err := env.users.GetMe(ctx, session.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := env.users.DeleteMe(ctx, session.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on repeat, got %v", err)
	}
	if err := env.users.DeleteMe(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown id, got %v", err)
	}
}

func TestListUsersClampsPaging(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "one@example.com", "pass1234")

	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultListLimit, 0},
		{500, -3, MaxListLimit, 0},
		{10, 5, 10, 5},
	}
	for _, tc := range cases {
		_, limit, offset, err := env.users.ListUsers(context.Background(), tc.limit, tc.offset)
		if err != nil {
			t.Fatalf("list users: %v", err)
		}
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Fatalf("ListUsers(%d, %d) paged as (%d, %d)", tc.limit, tc.offset, limit, offset)
		}
	}
}
