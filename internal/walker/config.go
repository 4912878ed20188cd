// Package walker drives a running speedhud server with simulated entities
// walking at known speeds, records their runs and checks the leaderboard.
package walker

import (
	"time"

	"github.com/google/uuid"
)

// Config holds configuration for a walker run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Walkers        int           // Number of simulated entities
	Workers        int           // Concurrent position senders
	Step           time.Duration // Interval between position updates
	RecordDuration time.Duration // Server-side recording length
	Grace          time.Duration // Extra walking time after the recording ends
	MinSpeed       float64       // Slowest walker, blocks per second
	Spacing        float64       // Speed gap between consecutive walkers
	Tolerance      float64       // Accepted relative error of a measured peak
	Timeout        time.Duration // HTTP request timeout
	OutputFile     string        // Output file for the walker roster
	Verbose        bool          // Enable verbose logging
}

// Walker is one simulated entity moving along the x axis.
type Walker struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Speed float64   `json:"speed"`
}

// Position mirrors the server's position document.
type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Entry mirrors one ranked leaderboard row.
type Entry struct {
	Rank         int     `json:"rank"`
	Name         string  `json:"name"`
	RawSpeed     float64 `json:"raw_speed"`
	DisplaySpeed float64 `json:"display_speed"`
}

// Leaderboard mirrors the leaderboard response.
type Leaderboard struct {
	Unit    string  `json:"unit"`
	Entries []Entry `json:"entries"`
}

// Stats holds run statistics.
type Stats struct {
	WalkersRegistered  int
	RecordingsStarted  int
	PositionsSent      int
	PositionsFailed    int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
