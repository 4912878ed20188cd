package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SPEEDHUD_"
	envConfig  = "SPEEDHUD_CONFIG"
	unitsKey   = "speed_units"
	keyDelim   = "."
	structTag  = "koanf"
	maxTickMS  = 60_000
	minTickMS  = 10
	maxHistory = 1_000
)

// Path returns the config file path taken from SPEEDHUD_CONFIG, if any.
func Path() string {
	return os.Getenv(envConfig)
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SPEEDHUD_CONFIG is set
//  3. env (prefix SPEEDHUD_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(keyDelim)

	if path := Path(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// SPEEDHUD_DEFAULT_UNIT -> default_unit. Keys stay flat.
	envProvider := env.Provider(envPrefix, keyDelim, func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// A configured unit list replaces the defaults instead of being merged
	// index by index into them.
	if k.Exists(unitsKey) {
		cfg.Units = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: structTag}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize lower-cases identifiers the way they are matched at runtime.
func (c *Config) normalize() {
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	c.DefaultUnit = strings.ToLower(strings.TrimSpace(c.DefaultUnit))
	c.DefaultTopUnit = strings.ToLower(strings.TrimSpace(c.DefaultTopUnit))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))

	defaults := DefaultSubcommands()
	aliases := make(map[string]string, len(defaults))
	for name, alias := range defaults {
		aliases[name] = alias
	}
	for name, alias := range c.Subcommands {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		aliases[strings.ToLower(name)] = alias
	}
	c.Subcommands = aliases
}

// Validate checks values that would make the engine misbehave.
// Unit table problems are not errors here: the unit registry degrades instead.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TickIntervalMS < minTickMS || c.TickIntervalMS > maxTickMS:
		return fmt.Errorf("%w: tick_interval_ms must be within [%d, %d], got %d", ErrInvalidConfig, minTickMS, maxTickMS, c.TickIntervalMS)
	case c.SamplingRate <= 0:
		return fmt.Errorf("%w: sampling_rate must be positive, got %g", ErrInvalidConfig, c.SamplingRate)
	case c.HistorySize < 1 || c.HistorySize > maxHistory:
		return fmt.Errorf("%w: history_size must be within [1, %d], got %d", ErrInvalidConfig, maxHistory, c.HistorySize)
	case c.RecordDurationS < 1:
		return fmt.Errorf("%w: record_duration_s must be positive, got %d", ErrInvalidConfig, c.RecordDurationS)
	case c.StorageDriver != StorageYAML && c.StorageDriver != StorageSQLite:
		return fmt.Errorf("%w: storage_driver must be %q or %q, got %q", ErrInvalidConfig, StorageYAML, StorageSQLite, c.StorageDriver)
	case c.StoragePath == "":
		return fmt.Errorf("%w: storage_path must not be empty", ErrInvalidConfig)
	case c.DeliveryWorkers < 1:
		return fmt.Errorf("%w: delivery_workers must be positive, got %d", ErrInvalidConfig, c.DeliveryWorkers)
	case c.DeliveryQueueSize < 1:
		return fmt.Errorf("%w: delivery_queue_size must be positive, got %d", ErrInvalidConfig, c.DeliveryQueueSize)
	}
	return nil
}
