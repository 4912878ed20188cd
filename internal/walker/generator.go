package walker

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/speedhud/pkg/logger"
)

// jitterDivisor controls the resolution of speed jitter.
const jitterDivisor = 1000

// jitter returns a random value in [0, limit) using crypto/rand.
func jitter(limit float64) float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(jitterDivisor))
	return float64(n.Int64()) / jitterDivisor * limit
}

// generateWalkers creates cfg.Walkers walkers with distinct speeds. Speeds
// climb by cfg.Spacing with up to a fifth of the spacing as jitter, so any
// two walkers stay distinguishable after smoothing.
func generateWalkers(ctx context.Context, cfg *Config) []Walker {
	run := uuid.NewString()[:6]
	walkers := make([]Walker, cfg.Walkers)
	for i := range walkers {
		walkers[i] = Walker{
			ID:    uuid.New(),
			Name:  fmt.Sprintf("walker-%s-%03d", run, i+1),
			Speed: cfg.MinSpeed + float64(i)*cfg.Spacing + jitter(cfg.Spacing/5),
		}
	}
	logger.Get().Info(ctx, "generated walkers",
		logger.Int("count", len(walkers)),
		logger.Float64("slowest", walkers[0].Speed),
		logger.Float64("fastest", walkers[len(walkers)-1].Speed),
	)
	return walkers
}
