// Package video abstracts frame-by-frame access to a video resource.
package video

import (
	"context"
	"errors"
	"image"
)

// ErrOpen marks a resource that could not be opened as a video.
var ErrOpen = errors.New("cannot open video")

// Metadata is what the container reports about a video stream. FrameCount
// and FPS may be zero when the container does not record them.
type Metadata struct {
	FrameCount int
	FPS        float64
	Width      int
	Height     int
}

// Capture is an open, exclusively owned decoder handle.
type Capture interface {
	Metadata() Metadata
	// Read returns the next frame as luminance, or io.EOF at end of stream.
	Read() (*image.Gray, error)
	Close() error
}

// Opener opens video resources by path.
type Opener interface {
	Open(ctx context.Context, path string) (Capture, error)
}
