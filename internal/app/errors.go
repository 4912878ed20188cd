package app

import (
	"errors"

	"github.com/okian/speedhud/internal/adapters/repository"
	"github.com/okian/speedhud/internal/domain/recording"
)

// Sentinel kinds for engine errors.
var (
	ErrAlreadyRecording = recording.ErrAlreadyRecording
	ErrNoData           = repository.ErrNoData
	ErrUnknownEntity    = errors.New("entity is not online")
	ErrNoReloader       = errors.New("engine has no config reloader")
	ErrAlreadyStarted   = errors.New("engine already started")
)
