package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNoData   = errors.New("leaderboard has no entries")
	ErrNotFound = errors.New("leaderboard entry not found")
	ErrPersist  = errors.New("leaderboard persist failed")
	ErrLoad     = errors.New("leaderboard load failed")
)
