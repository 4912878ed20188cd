// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults live in New(); Load layers a YAML file and env vars on top.
//   - External errors are wrapped with this package's sentinel errors.
package config

import (
	"sort"
	"time"
)

// Storage drivers understood by the leaderboard repository.
const (
	StorageYAML   = "yaml"
	StorageSQLite = "sqlite"
)

// Thresholds are the severity cut-offs of a unit, in display units.
type Thresholds struct {
	Green  float64 `koanf:"green"`
	Yellow float64 `koanf:"yellow"`
}

// Unit is one entry of the configured speed unit table.
type Unit struct {
	ID             string     `koanf:"id"`
	Enabled        *bool      `koanf:"enabled"`
	Multiplier     *float64   `koanf:"multiplier"`
	DisplayNameKey string     `koanf:"display_name_key"`
	Thresholds     Thresholds `koanf:"color_thresholds"`
}

// Factor returns the configured multiplier. Absent means 1; an explicit 0
// is kept.
func (u Unit) Factor() float64 {
	if u.Multiplier == nil {
		return 1.0
	}
	return *u.Multiplier
}

// IsEnabled reports whether the unit should be loaded. Absent means enabled.
func (u Unit) IsEnabled() bool {
	return u.Enabled == nil || *u.Enabled
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Language selects lang/messages_<language>.yml.
	Language string `koanf:"language"`

	// MessagesDir optionally overrides the embedded language files.
	MessagesDir string `koanf:"messages_dir"`

	// DefaultUnit is the live HUD unit for viewers who never chose one.
	DefaultUnit string `koanf:"default_unit"`

	// DefaultTopUnit is the leaderboard display unit for viewers who never chose one.
	DefaultTopUnit string `koanf:"default_topspeed_display_unit"`

	// Units is the ordered unit table; order defines the cycle order.
	Units []Unit `koanf:"speed_units"`

	// Subcommands maps canonical subcommand names to their configured aliases.
	Subcommands map[string]string `koanf:"subcommands"`

	// TickIntervalMS is the sampler period.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// SamplingRate converts per-tick displacement into a per-second rate.
	SamplingRate float64 `koanf:"sampling_rate"`

	// HistorySize bounds the smoothing window.
	HistorySize int `koanf:"history_size"`

	// RecordDurationS is the fixed length of a recording session.
	RecordDurationS int `koanf:"record_duration_s"`

	// StorageDriver selects the leaderboard persister: yaml or sqlite.
	StorageDriver string `koanf:"storage_driver"`

	// StoragePath is the leaderboard file (YAML document or SQLite database).
	StoragePath string `koanf:"storage_path"`

	// DeliveryWorkers is the number of outbound delivery workers.
	DeliveryWorkers int `koanf:"delivery_workers"`

	// DeliveryQueueSize bounds each delivery worker's queue.
	DeliveryQueueSize int `koanf:"delivery_queue_size"`

	// WatchConfig reloads the engine when the config file changes.
	WatchConfig bool `koanf:"watch_config"`
}

func enabled(b bool) *bool { return &b }

func factor(f float64) *float64 { return &f }

// DefaultUnits returns the unit table used when no configuration is supplied.
func DefaultUnits() []Unit {
	return []Unit{
		{ID: "ms", Enabled: enabled(true), Multiplier: factor(1.0), DisplayNameKey: "unit_ms", Thresholds: Thresholds{Green: 2.8, Yellow: 5.5}},
		{ID: "kmh", Enabled: enabled(true), Multiplier: factor(3.6), DisplayNameKey: "unit_kmh", Thresholds: Thresholds{Green: 10, Yellow: 20}},
		{ID: "mph", Enabled: enabled(true), Multiplier: factor(2.2369362920544), DisplayNameKey: "unit_mph", Thresholds: Thresholds{Green: 6.2, Yellow: 12.4}},
	}
}

// DefaultSubcommands returns the canonical subcommand aliases.
func DefaultSubcommands() map[string]string {
	return map[string]string{
		"enable":           "on",
		"disable":          "off",
		"toggle_unit":      "unit",
		"reload":           "reload",
		"help":             "help",
		"startrecordspeed": "startrecordspeed",
		"topspeed":         "topspeed",
		"toptoggleunit":    "toptoggleunit",
	}
}

// SharedAliases returns every alias claimed by more than one subcommand,
// mapped to the sorted names claiming it.
func (c *Config) SharedAliases() map[string][]string {
	byAlias := make(map[string][]string, len(c.Subcommands))
	for name, alias := range c.Subcommands {
		byAlias[alias] = append(byAlias[alias], name)
	}
	shared := make(map[string][]string)
	for alias, names := range byAlias {
		if len(names) > 1 {
			sort.Strings(names)
			shared[alias] = names
		}
	}
	return shared
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		Language:        "en",
		DefaultUnit:     "kmh",
		DefaultTopUnit:  "kmh",
		Units:           DefaultUnits(),
		Subcommands:     DefaultSubcommands(),
		TickIntervalMS:  200,
		SamplingRate:    5,
		HistorySize:     5,
		RecordDurationS: 10,
		StorageDriver:   StorageYAML,
		StoragePath:     "topspeed.yml",

		DeliveryWorkers:   4,
		DeliveryQueueSize: 1024,
	}
}

// TickInterval returns the sampler period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// RecordDuration returns the recording session length.
func (c *Config) RecordDuration() time.Duration {
	return time.Duration(c.RecordDurationS) * time.Second
}
