package ffmpeg

import "errors"

// Sentinel kinds for ffmpeg errors.
var (
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")
	ErrProbe          = errors.New("ffprobe failed")
	ErrNoVideoStream  = errors.New("no video stream")
	ErrDecode         = errors.New("frame decode failed")
	ErrStreamClosed   = errors.New("frame stream closed")
)
