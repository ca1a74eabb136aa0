package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

const stderrTailBytes = 4096

// FrameStream is a running ffmpeg process emitting 8-bit luminance frames
// in decode order. It must be closed.
type FrameStream struct {
	logger zerolog.Logger
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	width  int
	height int
	frames int
	waited bool
	closed bool
}

// StreamGray starts decoding input to single-channel luminance frames of
// width x height, the coded size reported by ProbeVideo.
func (e *Executor) StreamGray(ctx context.Context, input string, width, height int) (*FrameStream, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	args := append(e.inputArgs(input),
		"-map", "0:v:0",
		"-an", "-sn",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("starting frame stream")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &FrameStream{
		logger: e.logger,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		width:  width,
		height: height,
	}, nil
}

// ReadFrame returns the next frame, or io.EOF once ffmpeg has finished
// cleanly. Any other error means the stream is unusable.
func (s *FrameStream) ReadFrame() (*image.Gray, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.waited {
		return nil, io.EOF
	}

	img := image.NewGray(image.Rect(0, 0, s.width, s.height))
	_, err := io.ReadFull(s.stdout, img.Pix)

	switch {
	case err == nil:
		s.frames++
		return img, nil
	case errors.Is(err, io.EOF):
		if werr := s.wait(); werr != nil {
			return nil, werr
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		if werr := s.wait(); werr != nil {
			return nil, werr
		}
		return nil, fmt.Errorf("%w: truncated frame %d", ErrDecode, s.frames+1)
	default:
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
}

// Frames reports how many complete frames have been read
func (s *FrameStream) Frames() int {
	return s.frames
}

// Close stops ffmpeg if it is still running and reaps it
func (s *FrameStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.waited {
		return nil
	}

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()

	s.logger.Debug().Int("frames", s.frames).Msg("frame stream closed early")
	return nil
}

func (s *FrameStream) wait() error {
	if s.waited {
		return nil
	}
	s.waited = true

	if err := s.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(s.stderr.String())
		if msg == "" {
			return fmt.Errorf("%w: ffmpeg: %v", ErrDecode, err)
		}
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrDecode, err, msg)
	}
	return nil
}
