package server

import "errors"

// ErrUpload marks a failure to store an uploaded video.
var ErrUpload = errors.New("failed to store upload")
