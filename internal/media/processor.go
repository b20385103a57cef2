package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultAvatarSize  = 500
	defaultJPEGQuality = 90
	// MaxPixels bounds the decoded size of an upload; a few megabytes of
	// compressed input can otherwise expand to gigabytes of pixels.
	MaxPixels = 40_000_000
)

var ErrImageTooLarge = errors.New("media: image dimensions too large")

type Upload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type Result struct {
	Bytes       []byte
	ContentType string
}

type Processor interface {
	Process(ctx context.Context, upload Upload) (*Result, error)
}

// AvatarProcessor decodes any registered image format and renders a square
// JPEG of the configured size, cropping the longer side around the centre.
type AvatarProcessor struct {
	size      int
	quality   int
	maxPixels int
}

func NewAvatarProcessor(size int) *AvatarProcessor {
	if size <= 0 {
		size = DefaultAvatarSize
	}
	return &AvatarProcessor{size: size, quality: defaultJPEGQuality, maxPixels: MaxPixels}
}

func (p *AvatarProcessor) Process(ctx context.Context, upload Upload) (*Result, error) {
	if upload.Reader == nil {
		return nil, fmt.Errorf("media: empty reader")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, fmt.Errorf("media: read image: %w", err)
	}
	width, height, err := decodeDimensions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decode dimensions: %w", err)
	}
	if int64(width)*int64(height) > int64(p.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, p.size, p.size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, centerSquare(src.Bounds()), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("media: encode jpeg: %w", err)
	}
	return &Result{Bytes: buf.Bytes(), ContentType: "image/jpeg"}, nil
}

func decodeDimensions(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w == h {
		return b
	}
	if w > h {
		off := (w - h) / 2
		return image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+h, b.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+w)
}
