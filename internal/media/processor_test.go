package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

// encodeBlankGray builds a large single-colour image, which PNG compresses
// to a tiny file.
func encodeBlankGray(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &buf
}

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &buf
}

func TestAvatarProcessorRendersSquareJPEG(t *testing.T) {
	p := NewAvatarProcessor(64)
	res, err := p.Process(context.Background(), Upload{Reader: encodePNG(t, 120, 80), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %s", res.ContentType)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Bytes))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if format != "jpeg" || cfg.Width != 64 || cfg.Height != 64 {
		t.Fatalf("expected 64x64 jpeg, got %s %dx%d", format, cfg.Width, cfg.Height)
	}
	if _, err := jpeg.Decode(bytes.NewReader(res.Bytes)); err != nil {
		t.Fatalf("result is not a valid jpeg: %v", err)
	}
}

func TestAvatarProcessorRejectsGarbage(t *testing.T) {
	p := NewAvatarProcessor(0)
	if p.size != DefaultAvatarSize {
		t.Fatalf("expected default size, got %d", p.size)
	}
	if _, err := p.Process(context.Background(), Upload{Reader: strings.NewReader("not an image")}); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := p.Process(context.Background(), Upload{}); err == nil {
		t.Fatal("expected error for nil reader")
	}
}

func TestCenterSquare(t *testing.T) {
	cases := []struct {
		in   image.Rectangle
		want image.Rectangle
	}{
		{image.Rect(0, 0, 10, 10), image.Rect(0, 0, 10, 10)},
		{image.Rect(0, 0, 20, 10), image.Rect(5, 0, 15, 10)},
		{image.Rect(0, 0, 10, 30), image.Rect(0, 10, 10, 20)},
	}
	for _, tc := range cases {
		if got := centerSquare(tc.in); got != tc.want {
			t.Fatalf("centerSquare(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAvatarProcessorRejectsOversizedDimensions(t *testing.T) {
	// 8000x8000 decodes to 64M pixels while the file stays well under 1MB.
	upload := encodeBlankGray(t, 8000, 8000)
	if upload.Len() > 1<<20 {
		t.Fatalf("fixture should be small, got %d bytes", upload.Len())
	}
	p := NewAvatarProcessor(64)
	_, err := p.Process(context.Background(), Upload{Reader: upload, ContentType: "image/png"})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestAvatarProcessorPixelCapBoundary(t *testing.T) {
	p := NewAvatarProcessor(16)
	p.maxPixels = 100 * 100
	if _, err := p.Process(context.Background(), Upload{Reader: encodeBlankGray(t, 100, 100)}); err != nil {
		t.Fatalf("image at the cap should be accepted: %v", err)
	}
	if _, err := p.Process(context.Background(), Upload{Reader: encodeBlankGray(t, 101, 100)}); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("image over the cap should be rejected, got %v", err)
	}
}
