// Package videotest provides in-memory and ffmpeg-generated video fixtures.
package videotest

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kikiluvv/replaycoach/internal/video"
	"github.com/kikiluvv/replaycoach/pkg/util"
)

// Video is a scripted capture. When FailAt > 0, the FailAt-th Read returns
// Err instead of a frame.
type Video struct {
	Meta   video.Metadata
	Frames []*image.Gray
	FailAt int
	Err    error
}

// Uniform returns a w x h frame filled with level
func Uniform(w, h int, level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

// UniformVideo returns n frames of constant brightness with matching metadata
func UniformVideo(n int, fps float64, level uint8) Video {
	frames := make([]*image.Gray, n)
	for i := range frames {
		frames[i] = Uniform(16, 12, level)
	}
	return Video{
		Meta:   video.Metadata{FrameCount: n, FPS: fps, Width: 16, Height: 12},
		Frames: frames,
	}
}

// Opener serves registered videos by path. Fallback, when set, is served for
// any unregistered path that exists on disk.
type Opener struct {
	Fallback *Video

	mu     sync.Mutex
	videos map[string]Video
	opened []string
	closed int
}

// NewOpener creates an empty opener
func NewOpener() *Opener {
	return &Opener{videos: make(map[string]Video)}
}

// Add registers v under path
func (o *Opener) Add(path string, v Video) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.videos[path] = v
}

// Open implements video.Opener
func (o *Opener) Open(_ context.Context, path string) (video.Capture, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	v, ok := o.videos[path]
	if !ok {
		if o.Fallback == nil || !util.FileExists(path) {
			return nil, fmt.Errorf("%w: %s", video.ErrOpen, path)
		}
		v = *o.Fallback
	}

	o.opened = append(o.opened, path)
	return &capture{owner: o, v: v}, nil
}

// Opened lists the paths opened so far
func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// Closed counts released captures
func (o *Opener) Closed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

type capture struct {
	owner  *Opener
	v      Video
	next   int
	closed bool
}

func (c *capture) Metadata() video.Metadata { return c.v.Meta }

func (c *capture) Read() (*image.Gray, error) {
	if c.v.FailAt > 0 && c.next+1 == c.v.FailAt {
		return nil, c.v.Err
	}
	if c.next >= len(c.v.Frames) {
		return nil, io.EOF
	}
	f := c.v.Frames[c.next]
	c.next++
	return f, nil
}

func (c *capture) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.owner.mu.Lock()
	c.owner.closed++
	c.owner.mu.Unlock()
	return nil
}

// SkipIfNoFFmpeg skips the test if ffmpeg or ffprobe is missing
func SkipIfNoFFmpeg(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// WriteGrayVideo encodes a lossless 64x48 solid-gray clip into dir
func WriteGrayVideo(t testing.TB, dir string, frames, fps int, level uint8) string {
	t.Helper()

	out := filepath.Join(dir, fmt.Sprintf("gray_%d_%d.avi", frames, level))
	src := fmt.Sprintf("color=c=0x%02x%02x%02x:s=64x48:r=%d", level, level, level, fps)

	cmd := exec.Command("ffmpeg",
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", src,
		"-frames:v", fmt.Sprint(frames),
		"-c:v", "ffv1", "-pix_fmt", "gray",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to generate test video: %v\n%s", err, output)
	}
	return out
}
