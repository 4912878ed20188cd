package walker

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/speedhud/pkg/logger"
)

// Verification failures.
var (
	ErrVerification = errors.New("leaderboard verification failed")
	ErrMissing      = errors.New("walker missing from leaderboard")
	ErrOrder        = errors.New("leaderboard order does not match walker speeds")
	ErrSpeed        = errors.New("measured peak outside tolerance")
)

// verifyLeaderboard checks that every walker is ranked, that the ranking
// follows the walkers' speeds and that each peak is close to the speed walked.
func verifyLeaderboard(ctx context.Context, cfg *Config, walkers []Walker, lb Leaderboard) error {
	own := ownEntries(lb, walkers)
	byName := make(map[string]Entry, len(own))
	for _, e := range own {
		byName[e.Name] = e
	}

	var errs []error
	for _, w := range walkers {
		e, ok := byName[w.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissing, w.Name))
			continue
		}
		if rel := math.Abs(e.RawSpeed-w.Speed) / w.Speed; rel > cfg.Tolerance {
			errs = append(errs, fmt.Errorf("%w: %s walked %.2f, measured %.2f", ErrSpeed, w.Name, w.Speed, e.RawSpeed))
		}
	}

	if len(own) == len(walkers) {
		for i, w := range expectedOrder(walkers) {
			if own[i].Name != w.Name {
				errs = append(errs, fmt.Errorf("%w: position %d is %s, expected %s", ErrOrder, i+1, own[i].Name, w.Name))
				break
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}

	log := logger.Get()
	log.Info(ctx, "leaderboard verified", logger.Int("walkers", len(walkers)), logger.String("unit", lb.Unit))
	if cfg.Verbose {
		for _, e := range own {
			log.Info(ctx, "ranked walker",
				logger.Int("rank", e.Rank),
				logger.String("name", e.Name),
				logger.Float64("raw_speed", e.RawSpeed),
				logger.Float64("display_speed", e.DisplaySpeed),
			)
		}
	}
	return nil
}
