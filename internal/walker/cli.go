package walker

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/speedhud/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging logs to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWithWriter(w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the walker tool.
func ShowHelp() {
	os.Stdout.WriteString(`SpeedHUD Walker
===============

Registers simulated entities that walk at known speeds, records each one's
top speed through the command API and checks the resulting leaderboard.

Usage:
  go run ./cmd/walker [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -walkers int
        Number of simulated entities (default 5)
  -workers int
        Concurrent position senders (default CPU cores)
  -step duration
        Interval between position updates (default 50ms)
  -record duration
        Recording length configured on the server (default 10s)
  -grace duration
        Extra walking time after recordings end (default 2s)
  -min-speed float
        Slowest walker in blocks per second (default 2)
  -spacing float
        Speed gap between walkers (default 1.5)
  -tolerance float
        Accepted relative error of a measured peak (default 0.25)
  -timeout duration
        HTTP request timeout (default 5s)
  -output string
        Write the walker roster to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/walker -walkers 10
  go run ./cmd/walker -url http://localhost:8080 -record 5s -verbose
`)
}
