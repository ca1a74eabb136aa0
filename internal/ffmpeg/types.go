package ffmpeg

import "time"

// Options locates the binaries and tunes decoding
type Options struct {
	BinaryPath string
	ProbePath  string
	Threads    int
}

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	VideoCodec string
	HasAudio   bool
}
