package repository

import "github.com/okian/speedhud/pkg/logger"

// Option applies a configuration option to the Leaderboard.
type Option func(*Leaderboard)

// WithPersister sets the durable storage. Without one the leaderboard is
// memory only.
func WithPersister(p Persister) Option {
	return func(l *Leaderboard) {
		if p != nil {
			l.persister = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Leaderboard) {
		if lg != nil {
			l.logger = lg
		}
	}
}
