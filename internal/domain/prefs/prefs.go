// Package prefs stores per-viewer display preferences.
package prefs

import (
	"sort"

	"github.com/google/uuid"
)

// Units is the part of the unit registry preferences depend on.
type Units interface {
	Has(id string) bool
	CycleNext(current string) string
	DefaultLive() string
	DefaultTop() string
}

// Preferences are one viewer's HUD settings. Empty unit ids mean "never chosen".
type Preferences struct {
	HUDEnabled bool   `json:"hud_enabled"`
	LiveUnit   string `json:"live_unit"`
	TopUnit    string `json:"top_unit"`
}

// Store maps viewer ids to preferences.
// It is not safe for concurrent use; the owner serializes access.
type Store struct {
	viewers map[uuid.UUID]*Preferences
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{viewers: make(map[uuid.UUID]*Preferences)}
}

func (s *Store) entry(viewer uuid.UUID) *Preferences {
	p, ok := s.viewers[viewer]
	if !ok {
		p = &Preferences{}
		s.viewers[viewer] = p
	}
	return p
}

// Get returns a copy of viewer's preferences.
func (s *Store) Get(viewer uuid.UUID) (Preferences, bool) {
	p, ok := s.viewers[viewer]
	if !ok {
		return Preferences{}, false
	}
	return *p, true
}

// Enable turns the HUD on. Unit choices that are missing or no longer in
// the registry are reset to the defaults; valid choices are kept.
func (s *Store) Enable(viewer uuid.UUID, reg Units) Preferences {
	p := s.entry(viewer)
	p.HUDEnabled = true
	if !reg.Has(p.LiveUnit) {
		p.LiveUnit = reg.DefaultLive()
	}
	if !reg.Has(p.TopUnit) {
		p.TopUnit = reg.DefaultTop()
	}
	return *p
}

// Disable turns the HUD off. Unit choices are kept.
func (s *Store) Disable(viewer uuid.UUID) {
	if p, ok := s.viewers[viewer]; ok {
		p.HUDEnabled = false
	}
}

// ToggleLive advances viewer's live unit to the next registered unit and
// returns the new id. A viewer without a choice starts from the default.
func (s *Store) ToggleLive(viewer uuid.UUID, reg Units) string {
	p := s.entry(viewer)
	current := p.LiveUnit
	if current == "" {
		current = reg.DefaultLive()
	}
	p.LiveUnit = reg.CycleNext(current)
	return p.LiveUnit
}

// ToggleTop advances viewer's leaderboard unit independently of the live one.
func (s *Store) ToggleTop(viewer uuid.UUID, reg Units) string {
	p := s.entry(viewer)
	current := p.TopUnit
	if current == "" {
		current = reg.DefaultTop()
	}
	p.TopUnit = reg.CycleNext(current)
	return p.TopUnit
}

// LiveUnit returns viewer's live unit id, or fallback when never chosen.
func (s *Store) LiveUnit(viewer uuid.UUID, fallback string) string {
	if p, ok := s.viewers[viewer]; ok && p.LiveUnit != "" {
		return p.LiveUnit
	}
	return fallback
}

// TopUnit returns viewer's leaderboard unit id, or fallback when never chosen.
func (s *Store) TopUnit(viewer uuid.UUID, fallback string) string {
	if p, ok := s.viewers[viewer]; ok && p.TopUnit != "" {
		return p.TopUnit
	}
	return fallback
}

// HUDEnabled reports whether viewer has the HUD on.
func (s *Store) HUDEnabled(viewer uuid.UUID) bool {
	p, ok := s.viewers[viewer]
	return ok && p.HUDEnabled
}

// EnabledViewers returns the viewers with the HUD on, in a stable order.
func (s *Store) EnabledViewers() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.viewers))
	for id, p := range s.viewers {
		if p.HUDEnabled {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
