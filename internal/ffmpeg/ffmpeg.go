package ffmpeg

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Executor runs ffmpeg and ffprobe on behalf of the analyzers
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor, resolving both binaries up front
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegPath, err := exec.LookPath(orDefault(opts.BinaryPath, "ffmpeg"))
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrBinaryNotFound, err)
	}

	ffprobePath, err := exec.LookPath(orDefault(opts.ProbePath, "ffprobe"))
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrBinaryNotFound, err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// inputArgs builds the decoder-side arguments shared by every invocation
func (e *Executor) inputArgs(input string) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}

	if e.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.threads))
	}

	// Coded dimensions must match what ffprobe reports.
	return append(args, "-noautorotate", "-i", input)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
