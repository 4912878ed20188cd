package model

import "github.com/google/uuid"

// Severity classifies a display speed against a unit's thresholds.
type Severity string

// Severity levels, lowest first.
const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

// ColorCode returns the legacy chat color code used to render s.
func (s Severity) ColorCode() string {
	switch s {
	case SeverityGreen:
		return "§a"
	case SeverityYellow:
		return "§e"
	default:
		return "§c"
	}
}

// HUDUpdate is one live speed reading addressed to a viewer.
type HUDUpdate struct {
	Viewer   uuid.UUID `json:"viewer"`
	Speed    float64   `json:"speed"`
	UnitID   string    `json:"unit_id"`
	Label    string    `json:"unit_label"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
}

// RankedEntry is one leaderboard row projected into a display unit.
type RankedEntry struct {
	Rank         int     `json:"rank"`
	Name         string  `json:"name"`
	RawSpeed     float64 `json:"raw_speed"`
	DisplaySpeed float64 `json:"display_speed"`
	StoredUnitID string  `json:"stored_unit_id"`
}
