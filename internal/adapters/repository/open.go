package repository

import (
	"context"
	"fmt"

	"github.com/okian/speedhud/internal/config"
)

// Open builds the leaderboard for the configured storage driver.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Leaderboard, error) {
	var p Persister
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		sp, err := NewSQLitePersister(ctx, cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
		p = sp
	case config.StorageYAML, "":
		p = NewYAMLPersister(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", ErrLoad, cfg.StorageDriver)
	}

	l, err := NewLeaderboard(ctx, append([]Option{WithPersister(p)}, opts...)...)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return l, nil
}
