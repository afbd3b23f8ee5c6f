package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"

	"media-converter/internal/encoding"
	"media-converter/internal/logging"
)

const (
	defaultJPEGQuality = 85

	// DefaultMaxPixels bounds the decoded size of a still on the pure Go path.
	DefaultMaxPixels = 200_000_000
)

// ErrImageTooLarge is returned when a source image declares more pixels
// than the encoder will decode.
var ErrImageTooLarge = errors.New("image too large to decode")

// StillEncoder is the in-process universal image tier. It writes a JPEG
// that any client can display, using libvips when it is running and the
// pure Go decoders otherwise.
type StillEncoder struct {
	// UseVips enables the libvips path. It still requires InitVips.
	UseVips bool
	// MaxPixels caps width*height before a pure Go decode. Zero means
	// DefaultMaxPixels.
	MaxPixels int
}

// NewStillEncoder creates a still encoder.
func NewStillEncoder(useVips bool) *StillEncoder {
	return &StillEncoder{UseVips: useVips}
}

type stillResult struct {
	data []byte
	err  error
}

// Encode implements encoding.Encoder. Decoding runs in the background; if
// ctx ends first Encode returns ctx.Err() and nothing is written.
func (s *StillEncoder) Encode(ctx context.Context, req encoding.Request) error {
	quality := req.Attempt.Quality
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}

	done := make(chan stillResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stillResult{err: fmt.Errorf("still encoder panic: %v", r)}
			}
		}()
		data, err := s.render(req.Input, req.Attempt.MaxDimension, quality)
		done <- stillResult{data: data, err: err}
	}()

	var res stillResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return res.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := renameio.WriteFile(req.Output, res.data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", req.Output, err)
	}
	return nil
}

func (s *StillEncoder) render(path string, maxDimension, quality int) ([]byte, error) {
	if s.UseVips && IsVipsAvailable() {
		data, err := encodeJPEGWithVips(path, maxDimension, quality)
		if err == nil {
			return data, nil
		}
		logging.Debug("libvips could not encode %s, falling back to imaging: %v", path, err)
	}

	if dims, err := GetImageDimensions(path); err == nil {
		limit := s.MaxPixels
		if limit <= 0 {
			limit = DefaultMaxPixels
		}
		if dims.Width*dims.Height > limit {
			return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, dims.Width, dims.Height)
		}
	}

	img, err := loadConstrained(path, maxDimension)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
