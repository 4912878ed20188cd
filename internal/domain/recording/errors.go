package recording

import "errors"

// Sentinel kinds for recording errors.
var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)
