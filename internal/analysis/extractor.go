// Package analysis computes frame statistics for gameplay videos.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/kikiluvv/replaycoach/internal/video"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

// preallocLimit caps the brightness buffer reserved from container metadata
const preallocLimit = 1 << 16

// ProgressFunc is called after each decoded frame. total is the container's
// frame count and may be 0.
type ProgressFunc func(done, total int)

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxFrameWidth downscales frames wider than width before measuring
func WithMaxFrameWidth(width int) Option {
	return func(e *Extractor) {
		if width > 0 {
			e.maxFrameWidth = width
		}
	}
}

// WithProgress reports decoding progress
func WithProgress(fn ProgressFunc) Option {
	return func(e *Extractor) {
		e.progress = fn
	}
}

// Extractor turns a video into a Stats record. It holds no per-call state
// and may be shared between goroutines.
type Extractor struct {
	logger        zerolog.Logger
	opener        video.Opener
	maxFrameWidth int
	progress      ProgressFunc
}

// NewExtractor creates an extractor reading frames through opener
func NewExtractor(logger zerolog.Logger, opener video.Opener, opts ...Option) *Extractor {
	e := &Extractor{
		logger: logger.With().Str("component", "extractor").Logger(),
		opener: opener,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze decodes every frame of path and aggregates frame statistics
func (e *Extractor) Analyze(ctx context.Context, path string) (*Stats, error) {
	capture, err := e.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVideoNotFound, path, err)
	}
	defer func() {
		if cerr := capture.Close(); cerr != nil {
			e.logger.Warn().Err(cerr).Str("video", path).Msg("failed to release capture")
		}
	}()

	meta := capture.Metadata()
	e.logger.Debug().
		Str("video", path).
		Int("frames", meta.FrameCount).
		Float64("fps", meta.FPS).
		Msg("analyzing video")

	brightness := make([]float64, 0, min(max(meta.FrameCount, 0), preallocLimit))
	for {
		frame, err := capture.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrDecode, len(brightness)+1, err)
		}

		brightness = append(brightness, MeanIntensity(e.prepare(frame)))
		if e.progress != nil {
			e.progress(len(brightness), meta.FrameCount)
		}
	}

	stats := NewStats(meta.FrameCount, meta.FPS, Mean(brightness))

	e.logger.Info().
		Str("video", path).
		Int("frames", stats.Frames).
		Int("decoded", len(brightness)).
		Float64("avg_brightness", stats.AvgBrightness).
		Msg("analysis complete")

	return stats, nil
}

func (e *Extractor) prepare(frame *image.Gray) image.Image {
	if e.maxFrameWidth == 0 || frame.Bounds().Dx() <= e.maxFrameWidth {
		return frame
	}
	return resize.Resize(uint(e.maxFrameWidth), 0, frame, resize.Bilinear)
}
