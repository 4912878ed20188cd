package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/speedhud/internal/walker"
)

// Default configuration constants.
const (
	defaultWalkers = 5
	defaultTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		walkers   = flag.Int("walkers", defaultWalkers, "Number of simulated entities")
		workers   = flag.Int("workers", runtime.NumCPU(), "Concurrent position senders")
		step      = flag.Duration("step", walker.DefaultStep, "Interval between position updates")
		record    = flag.Duration("record", walker.DefaultRecordDuration, "Recording length configured on the server")
		grace     = flag.Duration("grace", walker.DefaultGrace, "Extra walking time after recordings end")
		minSpeed  = flag.Float64("min-speed", walker.DefaultMinSpeed, "Slowest walker in blocks per second")
		spacing   = flag.Float64("spacing", walker.DefaultSpacing, "Speed gap between walkers")
		tolerance = flag.Float64("tolerance", walker.DefaultTolerance, "Accepted relative error of a measured peak")
		timeout   = flag.Duration("timeout", walker.DefaultTimeout, "HTTP request timeout")
		output    = flag.String("output", "", "Write the walker roster to this JSON file")
		logFile   = flag.String("log", "", "Also write logs to this file")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		walker.ShowHelp()
		return
	}

	if err := walker.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cfg := &walker.Config{
		BaseURL:        *baseURL,
		Walkers:        *walkers,
		Workers:        *workers,
		Step:           *step,
		RecordDuration: *record,
		Grace:          *grace,
		MinSpeed:       *minSpeed,
		Spacing:        *spacing,
		Tolerance:      *tolerance,
		Timeout:        *timeout,
		OutputFile:     *output,
		Verbose:        *verbose,
	}

	if err := walker.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Walker run failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
