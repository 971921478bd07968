// Package simulation owns the flock: every entity of every kind, their
// configuration and the scene they live in. It advances them one discrete
// step at a time and publishes read-only snapshots to whoever draws them.
package simulation

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"

	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

// DefaultSceneBounds is the scene used when none is given.
var DefaultSceneBounds = geometry.Bounds{Left: 0, Top: 0, Width: 800, Height: 600}

// NeighbourSearch selects how neighbourhoods are gathered during a step.
// Both strategies return the same neighbours in the same order.
type NeighbourSearch int

const (
	SearchGrid       NeighbourSearch = iota // incremental spatial hash
	SearchBruteForce                        // scan every entity of the kind
)

func (s NeighbourSearch) String() string {
	if s == SearchBruteForce {
		return "brute-force"
	}
	return "grid"
}

// Flock is the simulation engine. All methods are safe for concurrent use:
// a single mutex serialises them, so readers never observe a half-applied step.
type Flock struct {
	mu sync.Mutex

	entities map[Kind][]Entity
	configs  map[Kind]Config
	indexes  map[Kind]*spatial.Hash2D
	bounds   geometry.Bounds
	nextID   uint64
	tick     uint64

	rng            *rand.Rand
	logger         golog.Logger
	cellSize       float64
	search         NeighbourSearch
	colorDiffusion bool
	parallelism    int
}

// Option configures a Flock at construction.
type Option func(*Flock)

// WithSeed seeds the engine's own PCG source.
func WithSeed(seed uint64) Option {
	return func(f *Flock) { f.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithRand injects the random source used for every random draw.
func WithRand(rng *rand.Rand) Option {
	return func(f *Flock) { f.rng = rng }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger golog.Logger) Option {
	return func(f *Flock) { f.logger = logger }
}

// WithSceneBounds sets the initial scene.
func WithSceneBounds(b geometry.Bounds) Option {
	return func(f *Flock) { f.bounds = b }
}

// WithCellSize sets the spatial index cell edge.
func WithCellSize(c float64) Option {
	return func(f *Flock) { f.cellSize = c }
}

// WithNeighbourSearch picks the neighbourhood strategy.
func WithNeighbourSearch(s NeighbourSearch) Option {
	return func(f *Flock) { f.search = s }
}

// WithColorDiffusion turns the hue diffusion of movable entities on or off.
func WithColorDiffusion(enabled bool) Option {
	return func(f *Flock) { f.colorDiffusion = enabled }
}

// WithParallelism bounds the number of goroutines used inside one step.
// 1 disables parallelism.
func WithParallelism(n int) Option {
	return func(f *Flock) { f.parallelism = n }
}

// NewFlock creates an empty engine with the default configuration of each kind.
func NewFlock(opts ...Option) (*Flock, error) {
	f := &Flock{
		entities:       make(map[Kind][]Entity),
		configs:        make(map[Kind]Config),
		indexes:        make(map[Kind]*spatial.Hash2D),
		bounds:         DefaultSceneBounds,
		logger:         golog.DiscardLogger,
		cellSize:       spatial.DefaultCellSize,
		search:         SearchGrid,
		colorDiffusion: true,
		parallelism:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		WithSeed(1)(f)
	}
	if f.parallelism < 1 {
		f.parallelism = 1
	}
	if err := f.bounds.Validate(); err != nil {
		return nil, err
	}
	for _, k := range Kinds {
		idx, err := spatial.New(f.cellSize, f.bounds)
		if err != nil {
			return nil, fmt.Errorf("spatial index for %s: %w", k, err)
		}
		f.indexes[k] = idx
		if k.IsMovable() {
			f.configs[k] = DefaultConfig(k)
		}
	}
	f.logger.Debugf("flock created: bounds=%s cellSize=%v search=%s parallelism=%d",
		f.bounds, f.cellSize, f.search, f.parallelism)
	return f, nil
}

// AddEntity creates an entity of the given kind at (x, y) and returns its id.
// Ids increase strictly and are never reused, even after Clear.
func (f *Flock) AddEntity(x, y float64, kind Kind) (uint64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown kind %d", geometry.ErrInvalidArgument, uint8(kind))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addEntity(x, y, kind), nil
}

func (f *Flock) addEntity(x, y float64, kind Kind) uint64 {
	id := f.nextID
	f.nextID++
	e := NewEntityAt(id, x, y, kind, f.rng)
	f.entities[kind] = append(f.entities[kind], e)
	f.indexes[kind].Update(id, e.Position)
	return id
}

// Populate adds the requested number of entities of each kind at uniformly
// random positions inside the scene, drawn from the engine's random source.
func (f *Flock) Populate(p Population) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[Kind]int{KindNormal: p.Normal, KindPredator: p.Predator, KindObstacle: p.Obstacle}
	for _, k := range Kinds {
		for i := 0; i < counts[k]; i++ {
			x := f.bounds.Left + f.rng.Float64()*f.bounds.Width
			y := f.bounds.Top + f.rng.Float64()*f.bounds.Height
			f.addEntity(x, y, k)
		}
	}
	f.logger.Debugf("populated %d normal, %d predator, %d obstacle", p.Normal, p.Predator, p.Obstacle)
}

// Clear removes every entity of every kind. The id counter is kept.
func (f *Flock) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range Kinds {
		f.clearKind(k)
	}
	f.logger.Debug("flock cleared")
}

// ClearKind removes every entity of one kind only.
func (f *Flock) ClearKind(kind Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearKind(kind)
	f.logger.Debugf("cleared every %s", kind)
}

func (f *Flock) clearKind(kind Kind) {
	// keep capacity, populations are usually refilled right away
	f.entities[kind] = f.entities[kind][:0]
	if idx, ok := f.indexes[kind]; ok {
		idx.Clear()
	}
}

// Config returns the configuration of a movable kind.
func (f *Flock) Config(kind Kind) (Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[kind]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s has no configuration", geometry.ErrInvalidArgument, kind)
	}
	return cfg, nil
}

// SetConfig replaces the configuration of a movable kind wholesale.
func (f *Flock) SetConfig(cfg Config, kind Kind) error {
	if !kind.IsMovable() {
		return fmt.Errorf("%w: %s has no configuration", geometry.ErrInvalidArgument, kind)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config for %s: %w", kind, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[kind] = cfg
	f.logger.Debugf("config of %s replaced: %+v", kind, cfg)
	return nil
}

// ColorDiffusion reports whether hues diffuse during a step.
func (f *Flock) ColorDiffusion() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.colorDiffusion
}

// SetColorDiffusion turns hue diffusion on or off from the next Step.
func (f *Flock) SetColorDiffusion(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.colorDiffusion = enabled
}

// SceneBounds returns the current scene.
func (f *Flock) SceneBounds() geometry.Bounds {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds
}

// SetSceneBounds replaces the scene; it applies from the next Step.
func (f *Flock) SetSceneBounds(b geometry.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bounds = b
	for _, k := range Kinds {
		if err := f.indexes[k].SetBounds(b); err != nil {
			return err
		}
	}
	f.logger.Debugf("scene bounds set to %s", b)
	return nil
}

// NumEntities counts every entity of every kind.
func (f *Flock) NumEntities() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, list := range f.entities {
		n += len(list)
	}
	return n
}

// Count returns the number of entities of one kind.
func (f *Flock) Count(kind Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entities[kind])
}

// Entities returns a copy of one kind's population, in insertion order.
func (f *Flock) Entities(kind Kind) []Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entity, len(f.entities[kind]))
	copy(out, f.entities[kind])
	return out
}

// Tick is the number of completed steps.
func (f *Flock) Tick() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tick
}

// Snapshot captures every entity as of the last completed step.
func (f *Flock) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Flock) snapshot() Snapshot {
	s := Snapshot{
		Tick:   f.tick,
		Bounds: f.bounds,
		Kinds:  make(map[Kind][]EntityView, len(Kinds)),
	}
	for _, k := range Kinds {
		list := f.entities[k]
		views := make([]EntityView, len(list))
		for i := range list {
			views[i] = list[i].View()
		}
		s.Kinds[k] = views
	}
	return s
}
