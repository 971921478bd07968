package main

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lucasb-eyer/go-colorful"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/ui"
)

const obstacleRadius = 8

var whiteImage = ebiten.NewImage(3, 3)

func init() {
	whiteImage.Fill(color.White)
}

// Game is the ebiten front end: every Update asks the driver for one step
// and every Draw renders the latest snapshot it received.
type Game struct {
	ctx       context.Context
	flock     *simulation.Flock
	driver    *simulation.Driver
	logger    golog.Logger
	lastState simulation.Snapshot
	start     simulation.Population

	// UI Controls
	toolbar    *ui.Toolbar
	paused     *ui.Toggle
	showRadius *ui.Toggle

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64 // Rolling average in ms
}

func NewGame(ctx context.Context, flock *simulation.Flock, driver *simulation.Driver, start simulation.Population, logger golog.Logger) *Game {
	g := &Game{
		ctx:        ctx,
		flock:      flock,
		driver:     driver,
		logger:     logger,
		lastState:  flock.Snapshot(),
		start:      start,
		paused:     &ui.Toggle{Text: "Pause"},
		showRadius: &ui.Toggle{Text: "Radius"},
	}
	diffusion := &ui.Toggle{Text: "Hue diffusion", Value: flock.ColorDiffusion(), OnChange: flock.SetColorDiffusion}
	clearBoids := &ui.Button{Text: "Clear boids", OnClick: func() { flock.ClearKind(simulation.KindNormal) }}
	reset := &ui.Button{Text: "Reset", OnClick: g.reset}

	bounds := flock.SceneBounds()
	g.toolbar = ui.NewToolbar(0, bounds.Height-ui.ToolbarHeight, g.paused, g.showRadius, diffusion, clearBoids, reset)
	return g
}

func (g *Game) reset() {
	g.flock.Clear()
	g.flock.Populate(g.start)
	g.logger.Infof("flock reset with %d entities", g.start.Total())
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	overToolbar := g.toolbar.Update()
	g.handleInput(overToolbar)

	// Retrieve latest state (non-blocking), keep the previous one otherwise
	select {
	case snap := <-g.driver.Snapshots():
		g.lastState = snap
	default:
	}

	if !g.paused.Value {
		if err := g.driver.Tick(g.ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) handleInput(overToolbar bool) {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused.Click()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.flock.ClearKind(simulation.KindNormal)
	}
	if overToolbar {
		return
	}
	x, y := ebiten.CursorPosition()
	for button, kind := range map[ebiten.MouseButton]simulation.Kind{
		ebiten.MouseButtonLeft:   simulation.KindNormal,
		ebiten.MouseButtonRight:  simulation.KindPredator,
		ebiten.MouseButtonMiddle: simulation.KindObstacle,
	} {
		if !inpututil.IsMouseButtonJustPressed(button) {
			continue
		}
		if _, err := g.flock.AddEntity(float64(x), float64(y), kind); err != nil {
			g.logger.Warnf("cannot add %s: %v", kind, err)
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(color.RGBA{R: 10, G: 10, B: 30, A: 255})

	for _, o := range g.lastState.Kinds[simulation.KindObstacle] {
		vector.FillCircle(screen, float32(o.Position.X), float32(o.Position.Y), obstacleRadius,
			color.RGBA{R: 120, G: 120, B: 120, A: 255}, true)
	}
	for _, b := range g.lastState.Kinds[simulation.KindNormal] {
		drawBoid(screen, b, 1)
	}
	predatorRadius := float32(0)
	if g.showRadius.Value {
		if cfg, err := g.flock.Config(simulation.KindPredator); err == nil {
			predatorRadius = float32(cfg.NeighbourhoodRadius)
		}
	}
	for _, p := range g.lastState.Kinds[simulation.KindPredator] {
		if predatorRadius > 0 {
			vector.StrokeCircle(screen, float32(p.Position.X), float32(p.Position.Y), predatorRadius, 1,
				color.RGBA{R: 255, G: 50, B: 50, A: 120}, true)
		}
		drawBoid(screen, p, 2)
	}

	g.drawStats(screen)
	g.toolbar.Draw(screen)
}

func (g *Game) drawStats(screen *ebiten.Image) {
	stats := simulation.ComputeStats(g.lastState.Kinds[simulation.KindNormal])
	state := ""
	if g.paused.Value {
		state = "  [paused]"
	}
	msg := fmt.Sprintf("Tick: %d%s\nBoids: %d  Predators: %d  Obstacles: %d\nSpeed: %.2f  Polarization: %.2f\n\nFPS: %.2f\nTPS: %.2f\nUpdate: %.2fms\nDraw:   %.2fms",
		g.lastState.Tick, state,
		stats.Count,
		len(g.lastState.Kinds[simulation.KindPredator]),
		len(g.lastState.Kinds[simulation.KindObstacle]),
		stats.MeanSpeed, stats.Polarization,
		ebiten.ActualFPS(), ebiten.ActualTPS(),
		g.updateAvg, g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, 10, 10)
}

func (g *Game) Layout(w, h int) (int, int) {
	b := g.lastState.Bounds
	return int(b.Width), int(b.Height)
}

// drawBoid renders one movable entity as a triangle pointing along its
// velocity, tinted by its hue.
func drawBoid(screen *ebiten.Image, v simulation.EntityView, scale float64) {
	angle := math.Atan2(v.Velocity.Y, v.Velocity.X)
	x, y := v.Position.X, v.Position.Y

	tipX := x + math.Cos(angle)*6*scale
	tipY := y + math.Sin(angle)*6*scale
	rightX := x + math.Cos(angle+2.5)*5*scale
	rightY := y + math.Sin(angle+2.5)*5*scale
	leftX := x + math.Cos(angle-2.5)*5*scale
	leftY := y + math.Sin(angle-2.5)*5*scale

	saturation := 0.7
	if v.Kind == simulation.KindPredator {
		saturation = 1
	}
	c := colorful.Hsv(v.Color, saturation, 1)
	r, gr, b := float32(c.R), float32(c.G), float32(c.B)

	vertices := []ebiten.Vertex{
		{DstX: float32(tipX), DstY: float32(tipY), SrcX: 1, SrcY: 1, ColorR: r, ColorG: gr, ColorB: b, ColorA: 1},
		{DstX: float32(rightX), DstY: float32(rightY), SrcX: 1, SrcY: 1, ColorR: r, ColorG: gr, ColorB: b, ColorA: 1},
		{DstX: float32(leftX), DstY: float32(leftY), SrcX: 1, SrcY: 1, ColorR: r, ColorG: gr, ColorB: b, ColorA: 1},
	}
	screen.DrawTriangles(vertices, []uint16{0, 1, 2}, whiteImage, &ebiten.DrawTrianglesOptions{})
}
