// Command simulation runs the flock without graphics and writes per-tick
// telemetry as CSV.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"time"

	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/telemetry"
)

func parseLevel(s string) golog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return golog.DebugLevel
	case "warn", "warning":
		return golog.WarningLevel
	case "error":
		return golog.ErrorLevel
	}
	return golog.InfoLevel
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to a YAML or JSON config (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config)")
	maxTicks := flag.Int("max-ticks", 1000, "Stop after N ticks (0 = until interrupted)")
	interval := flag.Duration("interval", -1, "Tick interval, 0 steps as fast as possible (negative = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	withEntities := flag.Bool("entities", false, "Also log every entity of every tick")
	bruteForce := flag.Bool("brute-force", false, "Gather neighbourhoods by scanning instead of the spatial index")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")

	flag.Parse()

	logger := golog.New(parseLevel(*logLevel), os.Stdout)

	fc := simulation.DefaultFileConfig()
	if *configPath != "" {
		loaded, err := simulation.LoadFileConfig(*configPath)
		if err != nil {
			logger.Fatalf("failed to load config: %v", err)
		}
		fc = loaded
	}
	if *seed != 0 {
		fc.Seed = *seed
	}
	tickInterval, err := fc.Interval()
	if err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if *interval >= 0 {
		tickInterval = *interval
	}

	search := simulation.SearchGrid
	if *bruteForce {
		search = simulation.SearchBruteForce
	}
	flock, err := simulation.NewFlockFromConfig(fc,
		simulation.WithLogger(logger),
		simulation.WithNeighbourSearch(search),
	)
	if err != nil {
		logger.Fatalf("failed to create flock: %v", err)
	}

	out, err := telemetry.NewOutputManager(*outputDir, *withEntities)
	if err != nil {
		logger.Fatalf("failed to create output: %v", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Errorf("failed to close output: %v", err)
		}
	}()
	if err := out.WriteConfig(fc); err != nil {
		logger.Fatalf("failed to write config snapshot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Infof("starting headless simulation: seed=%d entities=%d interval=%s max_ticks=%d search=%s",
		fc.Seed, flock.NumEntities(), tickInterval, *maxTicks, search)
	start := time.Now()

	if tickInterval == 0 {
		err = runTight(ctx, flock, out, *maxTicks)
	} else {
		err = runPaced(ctx, flock, out, tickInterval, *maxTicks, logger)
	}
	if err != nil {
		logger.Errorf("simulation stopped: %v", err)
		return
	}
	elapsed := time.Since(start)
	ticks := flock.Tick()
	logger.Infof("done: %d ticks in %s (%.1f ticks/sec)", ticks, elapsed, float64(ticks)/elapsed.Seconds())
}

// runTight steps the flock on the calling goroutine with no pacing.
func runTight(ctx context.Context, flock *simulation.Flock, out *telemetry.OutputManager, maxTicks int) error {
	for maxTicks == 0 || int(flock.Tick()) < maxTicks {
		if ctx.Err() != nil {
			return nil
		}
		if err := flock.Step(); err != nil {
			return err
		}
		if out == nil {
			continue
		}
		if err := out.WriteSnapshot(flock.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}

// runPaced lets the actor-backed driver tick the flock and records every
// snapshot it manages to publish.
func runPaced(ctx context.Context, flock *simulation.Flock, out *telemetry.OutputManager, interval time.Duration, maxTicks int, logger golog.Logger) error {
	driver := simulation.NewDriver(flock, simulation.DriverOptions{
		Interval: interval,
		Logger:   logger,
	})
	if err := driver.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := driver.Stop(context.Background()); err != nil {
			logger.Errorf("failed to stop driver: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-driver.Snapshots():
			if err := out.WriteSnapshot(snap); err != nil {
				return err
			}
			if maxTicks > 0 && int(snap.Tick) >= maxTicks {
				logger.Infof("max ticks reached: %d", snap.Tick)
				return nil
			}
		}
	}
}
