package analysis

import "errors"

// Sentinel kinds for analysis errors.
var (
	ErrVideoNotFound = errors.New("unable to open video file")
	ErrDecode        = errors.New("video decode failed")
)
