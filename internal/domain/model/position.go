// Package model contains domain models passed between layers.
package model

import (
	"math"

	"github.com/google/uuid"
)

// Position is a point inside a named world.
type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// SameWorld reports whether p and o belong to the same world.
// An empty world name never matches, not even another empty one.
func (p Position) SameWorld(o Position) bool {
	return p.World != "" && p.World == o.World
}

// Distance returns the euclidean distance between p and o, ignoring worlds.
func (p Position) Distance(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Tracked is an online entity as reported by the host on one tick.
type Tracked struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position Position  `json:"position"`
}
