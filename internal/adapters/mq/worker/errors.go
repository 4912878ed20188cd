package worker

import "errors"

// Sentinel kinds for delivery errors.
var (
	ErrQueueFull = errors.New("delivery queue full")
	ErrStopped   = errors.New("delivery pool stopped")
)
