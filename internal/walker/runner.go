package walker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/speedhud/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// warmup lets the server take a baseline sample before recordings start.
const warmup = time.Second

// Run executes a complete walker run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) error {
	cfg.Normalize()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting walker run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("walkers", cfg.Walkers),
		logger.Int("workers", cfg.Workers),
		logger.Duration("step", cfg.Step),
		logger.Duration("recordDuration", cfg.RecordDuration),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	walkers := generateWalkers(ctx, cfg)
	defer removeWalkers(context.WithoutCancel(ctx), client, walkers)

	var registered int64
	err := forEach(ctx, cfg, walkers, func(ctx context.Context, i int, w Walker) error {
		if err := client.Register(ctx, w, position(w, i, 0)); err != nil {
			return fmt.Errorf("register %s: %w", w.Name, err)
		}
		atomic.AddInt64(&registered, 1)
		return nil
	})
	stats.WalkersRegistered = int(registered)
	if err != nil {
		return err
	}

	origin := time.Now()
	drive(ctx, cfg, client, walkers, origin, warmup, stats)

	var started int64
	err = forEach(ctx, cfg, walkers, func(ctx context.Context, _ int, w Walker) error {
		lines, err := client.Command(ctx, w, "startrecordspeed")
		if err != nil {
			return fmt.Errorf("start recording for %s: %w", w.Name, err)
		}
		atomic.AddInt64(&started, 1)
		if cfg.Verbose {
			log.Info(ctx, "recording requested", logger.String("walker", w.Name), logger.Any("reply", lines))
		}
		return nil
	})
	stats.RecordingsStarted = int(started)
	if err != nil {
		return err
	}

	drive(ctx, cfg, client, walkers, origin, warmup+cfg.RecordDuration+cfg.Grace, stats)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("walk interrupted: %w", err)
	}

	lb, err := client.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(lb.Entries)

	verifyErr := verifyLeaderboard(ctx, cfg, walkers, lb)

	if cfg.OutputFile != "" {
		if err := saveWalkers(cfg.OutputFile, walkers); err != nil {
			log.Warn(ctx, "failed to save walkers", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return verifyErr
	}
	log.Info(ctx, "walker run completed successfully")
	return nil
}

// forEach runs fn for every walker with at most cfg.Workers in flight and
// returns the first error.
func forEach(ctx context.Context, cfg *Config, walkers []Walker, fn func(ctx context.Context, i int, w Walker) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, w := range walkers {
		g.Go(func() error { return fn(gctx, i, w) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("walker batch failed: %w", err)
	}
	return nil
}

// position is where walker i is after elapsed time. Walkers use separate lanes.
func position(w Walker, i int, elapsed time.Duration) Position {
	return Position{
		World: worldName,
		X:     w.Speed * elapsed.Seconds(),
		Y:     groundLevel,
		Z:     float64(i * laneWidth),
	}
}

type move struct {
	index int
	at    time.Duration
}

// drive sends positions every cfg.Step until `until` has passed since origin.
// Positions are derived from wall time so pauses do not distort speeds.
func drive(ctx context.Context, cfg *Config, c *Client, walkers []Walker, origin time.Time, until time.Duration, stats *Stats) {
	var sent, failed int64

	moves := make(chan move, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range moves {
				w := walkers[m.index]
				if err := c.Move(ctx, w, position(w, m.index, m.at)); err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&sent, 1)
			}
		}()
	}

	ticker := time.NewTicker(cfg.Step)
	defer func() {
		ticker.Stop()
		close(moves)
		wg.Wait()
		stats.PositionsSent += int(sent)
		stats.PositionsFailed += int(failed)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			at := now.Sub(origin)
			if at > until {
				return
			}
			for i := range walkers {
				select {
				case moves <- move{index: i, at: at}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// removeWalkers reports every walker offline.
func removeWalkers(ctx context.Context, c *Client, walkers []Walker) {
	for _, w := range walkers {
		if err := c.Remove(ctx, w); err != nil {
			logger.Get().Warn(ctx, "failed to remove walker", logger.String("walker", w.Name), logger.Error(err))
		}
	}
}

// saveWalkers writes the walker roster as JSON.
func saveWalkers(filename string, walkers []Walker) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(walkers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal walkers: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var positionsPerSecond float64
	if stats.Duration > 0 {
		positionsPerSecond = float64(stats.PositionsSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("walkersRegistered", stats.WalkersRegistered),
		logger.Int("recordingsStarted", stats.RecordingsStarted),
		logger.Int("positionsSent", stats.PositionsSent),
		logger.Int("positionsFailed", stats.PositionsFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("positionsPerSecond", positionsPerSecond),
	)
}
