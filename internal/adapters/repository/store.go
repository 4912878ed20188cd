// Package repository holds the persisted leaderboard of recorded top speeds.
package repository

import (
	"context"

	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/internal/domain/units"
)

// Entry is one persisted leaderboard row. SpeedMS is the raw smoothed speed
// in base units; UnitID is the unit the entity had selected when it was
// recorded. Display always re-projects SpeedMS, UnitID is informational.
type Entry struct {
	Name    string  `json:"name"`
	SpeedMS float64 `json:"speed_ms"`
	UnitID  string  `json:"unit_id"`
}

// Store provides read/write access to the leaderboard.
type Store interface {
	// Record inserts or overwrites name's entry and persists it at once.
	// A persist failure returns an error wrapping ErrPersist; the in-memory
	// entry is kept either way.
	Record(ctx context.Context, name string, speed float64, unitID string) error

	// Ranked returns every entry ordered by speed desc with 1-based ranks,
	// projected into display. Returns ErrNoData when the store is empty.
	Ranked(ctx context.Context, display units.Unit) ([]model.RankedEntry, error)

	// Get returns name's entry or ErrNotFound.
	Get(ctx context.Context, name string) (Entry, error)

	// Count returns the number of entries.
	Count(ctx context.Context) int

	// Close releases the persister.
	Close() error
}

// Persister is durable storage behind the in-memory leaderboard.
type Persister interface {
	// Load returns all stored entries. A store that does not exist yet is empty.
	Load(ctx context.Context) ([]Entry, error)

	// Save persists e. all is the full collection after e was applied, for
	// persisters that rewrite the whole document.
	Save(ctx context.Context, e Entry, all []Entry) error

	Close() error
}
