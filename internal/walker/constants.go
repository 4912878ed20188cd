package walker

import "time"

// Defaults applied by Normalize.
const (
	DefaultStep           = 50 * time.Millisecond
	DefaultRecordDuration = 10 * time.Second
	DefaultGrace          = 2 * time.Second
	DefaultMinSpeed       = 2.0
	DefaultSpacing        = 1.5
	DefaultTolerance      = 0.25
	DefaultTimeout        = 5 * time.Second
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

const (
	worldName   = "overworld"
	groundLevel = 64
	// laneWidth keeps walkers on separate z lanes.
	laneWidth = 4

	permStartRecord = "speedhud.startrecordspeed"
	permTopSpeed    = "speedhud.topspeed"
)

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Walkers < 1 {
		c.Walkers = 1
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	if c.RecordDuration <= 0 {
		c.RecordDuration = DefaultRecordDuration
	}
	if c.Grace < 0 {
		c.Grace = 0
	}
	if c.MinSpeed <= 0 {
		c.MinSpeed = DefaultMinSpeed
	}
	if c.Spacing <= 0 {
		c.Spacing = DefaultSpacing
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}
