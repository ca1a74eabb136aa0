package video

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/kikiluvv/replaycoach/internal/ffmpeg"
	"github.com/rs/zerolog"
)

// FFmpegOpener decodes videos with ffprobe and ffmpeg subprocesses
type FFmpegOpener struct {
	logger zerolog.Logger
	exec   *ffmpeg.Executor
}

// NewFFmpegOpener wraps an executor
func NewFFmpegOpener(logger zerolog.Logger, exec *ffmpeg.Executor) *FFmpegOpener {
	return &FFmpegOpener{
		logger: logger.With().Str("component", "video").Logger(),
		exec:   exec,
	}
}

// Open probes path and starts a luminance frame stream for it
func (o *FFmpegOpener) Open(ctx context.Context, path string) (Capture, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrOpen, path)
	}

	info, err := o.exec.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	stream, err := o.exec.StreamGray(ctx, path, info.Width, info.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	o.logger.Debug().
		Str("path", path).
		Int("frames", info.FrameCount).
		Float64("fps", info.FPS).
		Msg("capture opened")

	return &ffmpegCapture{
		logger: o.logger.With().Str("path", path).Logger(),
		stream: stream,
		meta: Metadata{
			FrameCount: info.FrameCount,
			FPS:        info.FPS,
			Width:      info.Width,
			Height:     info.Height,
		},
	}, nil
}

type ffmpegCapture struct {
	logger zerolog.Logger
	stream *ffmpeg.FrameStream
	meta   Metadata
}

func (c *ffmpegCapture) Metadata() Metadata { return c.meta }

func (c *ffmpegCapture) Read() (*image.Gray, error) { return c.stream.ReadFrame() }

func (c *ffmpegCapture) Close() error {
	err := c.stream.Close()
	c.logger.Debug().
		Int("decoded", c.stream.Frames()).
		Int("frames", c.meta.FrameCount).
		Msg("capture released")
	return err
}
