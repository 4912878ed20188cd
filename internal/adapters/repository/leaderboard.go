package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/internal/domain/units"
	"github.com/okian/speedhud/pkg/logger"
	"github.com/okian/speedhud/pkg/metrics"
)

// Leaderboard is the in-memory Store, written through to a Persister.
//
// Ordering: speed DESC, then name ASC (deterministic).
type Leaderboard struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	persister Persister
	logger    logger.Logger
}

var _ Store = (*Leaderboard)(nil)

// NewLeaderboard creates a leaderboard and loads the persisted entries.
func NewLeaderboard(ctx context.Context, opts ...Option) (*Leaderboard, error) {
	l := &Leaderboard{
		entries:   make(map[string]Entry),
		persister: nopPersister{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get()
	}

	loaded, err := l.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	for _, e := range loaded {
		if e.Name == "" {
			continue
		}
		l.entries[e.Name] = e
	}
	metrics.UpdateLeaderboardEntries(len(l.entries))
	l.logger.Info(ctx, "leaderboard loaded", logger.Int("entries", len(l.entries)))
	return l, nil
}

// Record implements Store.
func (l *Leaderboard) Record(ctx context.Context, name string, speed float64, unitID string) error {
	e := Entry{Name: name, SpeedMS: speed, UnitID: unitID}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[name] = e
	metrics.UpdateLeaderboardEntries(len(l.entries))

	start := time.Now()
	err := l.persister.Save(ctx, e, l.sortedLocked())
	metrics.RecordPersistLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		metrics.RecordPersistFailure()
		l.logger.Error(ctx, "failed to persist leaderboard entry",
			logger.String("name", name),
			logger.Float64("speed", speed),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Ranked implements Store.
func (l *Leaderboard) Ranked(_ context.Context, display units.Unit) ([]model.RankedEntry, error) {
	l.mu.RLock()
	sorted := l.sortedLocked()
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return nil, ErrNoData
	}
	metrics.RecordLeaderboardQuery()

	out := make([]model.RankedEntry, len(sorted))
	for i, e := range sorted {
		out[i] = model.RankedEntry{
			Rank:         i + 1,
			Name:         e.Name,
			RawSpeed:     e.SpeedMS,
			DisplaySpeed: display.Convert(e.SpeedMS),
			StoredUnitID: e.UnitID,
		}
	}
	return out, nil
}

// Get implements Store.
func (l *Leaderboard) Get(_ context.Context, name string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[name]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Count implements Store.
func (l *Leaderboard) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Close implements Store.
func (l *Leaderboard) Close() error {
	return l.persister.Close()
}

// sortedLocked returns the entries in rank order. Callers hold mu.
func (l *Leaderboard) sortedLocked() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpeedMS != out[j].SpeedMS {
			return out[i].SpeedMS > out[j].SpeedMS
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type nopPersister struct{}

func (nopPersister) Load(context.Context) ([]Entry, error)      { return nil, nil }
func (nopPersister) Save(context.Context, Entry, []Entry) error { return nil }
func (nopPersister) Close() error                               { return nil }
