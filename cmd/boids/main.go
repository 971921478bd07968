// Command boids opens a window and shows the flock live.
// Left click adds a boid, right click a predator, middle click an obstacle.
// Space pauses and C removes every boid; the bottom toolbar does the same
// and more.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML or JSON config (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config)")
	flag.Parse()

	ctx := context.Background()
	logger := golog.New(golog.InfoLevel, os.Stdout)

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

	flock, err := simulation.NewFlockFromConfig(fc, simulation.WithLogger(logger))
	if err != nil {
		logger.Fatalf("failed to create flock: %v", err)
	}

	// Ticks come from the game loop, so the driver runs without its own ticker
	driver := simulation.NewDriver(flock, simulation.DriverOptions{Logger: logger})
	if err := driver.Start(ctx); err != nil {
		logger.Fatalf("failed to start driver: %v", err)
	}
	defer func() {
		if err := driver.Stop(ctx); err != nil {
			logger.Errorf("failed to stop driver: %v", err)
		}
	}()

	ebiten.SetWindowSize(int(fc.Scene.Width), int(fc.Scene.Height))
	ebiten.SetWindowTitle("Flock: boids, predators and obstacles")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(NewGame(ctx, flock, driver, fc.Population, logger)); err != nil {
		logger.Errorf("game stopped: %v", err)
	}
}
