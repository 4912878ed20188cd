// Package units holds the speed unit table, unit resolution and severity
// classification.
package units

import (
	"strings"

	"github.com/okian/speedhud/internal/config"
	"github.com/okian/speedhud/internal/domain/model"
)

// Unit is an immutable display unit: a multiplier over base speed plus two
// severity thresholds expressed in the unit itself.
type Unit struct {
	ID         string
	Multiplier float64
	DisplayKey string
	Green      float64
	Yellow     float64
}

// Convert projects a base speed into u.
func (u Unit) Convert(raw float64) float64 {
	return raw * u.Multiplier
}

// Classify returns the severity of a speed already expressed in u.
// Thresholds are checked green first, so Green > Yellow never yields yellow.
func (u Unit) Classify(display float64) model.Severity {
	switch {
	case display < u.Green:
		return model.SeverityGreen
	case display < u.Yellow:
		return model.SeverityYellow
	default:
		return model.SeverityRed
	}
}

// Neutral is the last-resort unit when nothing else resolves.
var Neutral = Unit{ID: "ms", Multiplier: 1.0, DisplayKey: "unit_ms"} //nolint:gochecknoglobals // immutable value

// Builtin returns the unit pair used when the configuration defines no usable unit.
func Builtin() []Unit {
	return []Unit{
		{ID: "ms", Multiplier: 1.0, DisplayKey: "unit_ms", Green: 2.8, Yellow: 5.5},
		{ID: "kmh", Multiplier: 3.6, DisplayKey: "unit_kmh", Green: 10.0, Yellow: 20.0},
	}
}

// BuiltinDefault is the default unit id of the built-in pair.
const BuiltinDefault = "kmh"

// FromConfig converts the configured unit table, skipping disabled entries
// and entries without an id. A missing multiplier means 1.0 and a missing
// display key means "unit_<id>".
func FromConfig(defs []config.Unit) []Unit {
	out := make([]Unit, 0, len(defs))
	for _, d := range defs {
		id := strings.ToLower(strings.TrimSpace(d.ID))
		if id == "" || !d.IsEnabled() {
			continue
		}
		key := d.DisplayNameKey
		if key == "" {
			key = "unit_" + id
		}
		out = append(out, Unit{
			ID:         id,
			Multiplier: d.Factor(),
			DisplayKey: key,
			Green:      d.Thresholds.Green,
			Yellow:     d.Thresholds.Yellow,
		})
	}
	return out
}
