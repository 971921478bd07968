package simulation

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

func newTestFlock(t testing.TB, opts ...Option) *Flock {
	t.Helper()
	f, err := NewFlock(opts...)
	if err != nil {
		t.Fatalf("NewFlock unexpected error: %v", err)
	}
	return f
}

func mustAdd(t testing.TB, f *Flock, x, y float64, kind Kind) uint64 {
	t.Helper()
	id, err := f.AddEntity(x, y, kind)
	if err != nil {
		t.Fatalf("AddEntity(%v, %v, %s) unexpected error: %v", x, y, kind, err)
	}
	return id
}

// populate places n entities of each kind uniformly in the scene.
func populate(t testing.TB, f *Flock, rng *rand.Rand, normals, predators, obstacles int) {
	t.Helper()
	b := f.SceneBounds()
	add := func(n int, k Kind) {
		for i := 0; i < n; i++ {
			mustAdd(t, f, b.Left+rng.Float64()*b.Width, b.Top+rng.Float64()*b.Height, k)
		}
	}
	add(normals, KindNormal)
	add(predators, KindPredator)
	add(obstacles, KindObstacle)
}

func TestNewFlock_InvalidOptions(t *testing.T) {
	if _, err := NewFlock(WithSceneBounds(geometry.Bounds{Width: -1, Height: 1})); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("NewFlock with bad bounds: got %v; want ErrInvalidArgument", err)
	}
	if _, err := NewFlock(WithCellSize(0)); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("NewFlock with zero cell size: got %v; want ErrInvalidArgument", err)
	}
}

func TestFlock_AddEntityIDsNeverRepeat(t *testing.T) {
	f := newTestFlock(t)
	seen := make(map[uint64]bool)
	var last uint64
	first := true
	check := func(id uint64) {
		if seen[id] {
			t.Fatalf("id %d returned twice", id)
		}
		if !first && id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		seen[id] = true
		last, first = id, false
	}

	for round := 0; round < 5; round++ {
		for i := 0; i < 10; i++ {
			check(mustAdd(t, f, 1, 1, Kinds[i%len(Kinds)]))
		}
		if round%2 == 0 {
			f.Clear()
		} else {
			f.ClearKind(KindNormal)
		}
	}

	if _, err := f.AddEntity(0, 0, Kind(9)); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("AddEntity with unknown kind: got %v; want ErrInvalidArgument", err)
	}
}

func TestFlock_ClearKind(t *testing.T) {
	f := newTestFlock(t)
	populate(t, f, rand.New(rand.NewPCG(1, 2)), 10, 10, 10)

	f.ClearKind(KindNormal)

	tests := []struct {
		kind Kind
		want int
	}{
		{KindNormal, 0},
		{KindObstacle, 10},
		{KindPredator, 10},
	}
	for _, tt := range tests {
		if got := f.Count(tt.kind); got != tt.want {
			t.Errorf("Count(%s) = %d; want %d", tt.kind, got, tt.want)
		}
	}
	if got := f.NumEntities(); got != 20 {
		t.Errorf("NumEntities = %d; want 20", got)
	}

	f.Clear()
	if got := f.NumEntities(); got != 0 {
		t.Errorf("NumEntities after Clear = %d; want 0", got)
	}
	// a cleared flock still steps
	if err := f.Step(); err != nil {
		t.Errorf("Step on empty flock: %v", err)
	}
}

func TestFlock_Config(t *testing.T) {
	f := newTestFlock(t)

	got, err := f.Config(KindNormal)
	if err != nil || got != DefaultConfig(KindNormal) {
		t.Errorf("Config(normal) = %+v, %v; want defaults", got, err)
	}
	if _, err := f.Config(KindObstacle); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("Config(obstacle): got %v; want ErrInvalidArgument", err)
	}

	cfg := DefaultConfig(KindPredator)
	cfg.MaxVelocity = 9
	if err := f.SetConfig(cfg, KindPredator); err != nil {
		t.Fatalf("SetConfig unexpected error: %v", err)
	}
	if got, _ := f.Config(KindPredator); got != cfg {
		t.Errorf("Config(predator) = %+v; want %+v", got, cfg)
	}

	if err := f.SetConfig(cfg, KindObstacle); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("SetConfig(obstacle): got %v; want ErrInvalidArgument", err)
	}
	bad := cfg
	bad.MinVelocity = 10
	if err := f.SetConfig(bad, KindPredator); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("SetConfig(invalid): got %v; want ErrInvalidArgument", err)
	}
	if got, _ := f.Config(KindPredator); got != cfg {
		t.Errorf("rejected SetConfig changed the config to %+v", got)
	}
}

func TestFlock_StepKeepsInvariants(t *testing.T) {
	for _, search := range []NeighbourSearch{SearchGrid, SearchBruteForce} {
		t.Run(search.String(), func(t *testing.T) {
			f := newTestFlock(t, WithSeed(3), WithNeighbourSearch(search))
			populate(t, f, rand.New(rand.NewPCG(4, 5)), 80, 10, 10)
			b := f.SceneBounds()
			obstacles := f.Entities(KindObstacle)
			configs := map[Kind]Config{
				KindNormal:   DefaultConfig(KindNormal),
				KindPredator: DefaultConfig(KindPredator),
			}

			for step := 0; step < 1000; step++ {
				if err := f.Step(); err != nil {
					t.Fatalf("step %d: %v", step, err)
				}
			}

			if f.Tick() != 1000 {
				t.Errorf("Tick = %d; want 1000", f.Tick())
			}
			snap := f.Snapshot()
			for _, v := range snap.All() {
				if !b.Contains(v.Position) {
					t.Errorf("entity %d (%s) left the scene: %v", v.ID, v.Kind, v.Position)
				}
				if v.Color < 0 || v.Color >= 360 {
					t.Errorf("entity %d hue %v outside [0, 360)", v.ID, v.Color)
				}
				if !v.Kind.IsMovable() {
					continue
				}
				cfg := configs[v.Kind]
				speed := v.Velocity.Len()
				if speed < cfg.MinVelocity-geometry.Epsilon || speed > cfg.MaxVelocity+geometry.Epsilon {
					t.Errorf("entity %d (%s) speed %v outside [%v, %v]", v.ID, v.Kind, speed, cfg.MinVelocity, cfg.MaxVelocity)
				}
			}

			after := f.Entities(KindObstacle)
			for i := range obstacles {
				if after[i] != obstacles[i] {
					t.Errorf("obstacle %d changed: %+v -> %+v", obstacles[i].ID, obstacles[i], after[i])
				}
			}
		})
	}
}

func TestFlock_GridMatchesBruteForce(t *testing.T) {
	build := func(search NeighbourSearch) *Flock {
		f := newTestFlock(t, WithSeed(11), WithNeighbourSearch(search),
			WithSceneBounds(geometry.Bounds{Left: -50, Top: 0, Width: 310, Height: 170}), WithCellSize(23))
		populate(t, f, rand.New(rand.NewPCG(12, 13)), 120, 6, 8)
		return f
	}
	grid, brute := build(SearchGrid), build(SearchBruteForce)

	for step := 0; step < 50; step++ {
		if err := grid.Step(); err != nil {
			t.Fatal(err)
		}
		if err := brute.Step(); err != nil {
			t.Fatal(err)
		}
	}
	for _, k := range Kinds {
		g, b := grid.Entities(k), brute.Entities(k)
		if len(g) != len(b) {
			t.Fatalf("%s: %d vs %d entities", k, len(g), len(b))
		}
		for i := range g {
			if g[i] != b[i] {
				t.Fatalf("%s entity %d diverged: grid %+v brute %+v", k, g[i].ID, g[i], b[i])
			}
		}
	}
}

func TestFlock_Deterministic(t *testing.T) {
	build := func(parallelism int) *Flock {
		f := newTestFlock(t, WithSeed(99), WithParallelism(parallelism))
		populate(t, f, rand.New(rand.NewPCG(7, 7)), 200, 8, 4)
		return f
	}
	seq, par := build(1), build(8)
	for step := 0; step < 30; step++ {
		if err := seq.Step(); err != nil {
			t.Fatal(err)
		}
		if err := par.Step(); err != nil {
			t.Fatal(err)
		}
	}
	s, p := seq.Snapshot().All(), par.Snapshot().All()
	for i := range s {
		if s[i] != p[i] {
			t.Fatalf("entity %d differs: sequential %+v parallel %+v", s[i].ID, s[i], p[i])
		}
	}
}

func TestFlock_StepReadsFrozenState(t *testing.T) {
	// Alignment only, no clipping: each entity must steer by the velocity its
	// neighbour had before the step, not the one it was just given.
	f := newTestFlock(t, WithSeed(1), WithColorDiffusion(false))
	cfg := Config{NeighbourhoodRadius: 80, RepelMinDist: 50, MaxVelocity: 1000, AlignmentScale: 1}
	if err := f.SetConfig(cfg, KindNormal); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f, 100, 100, KindNormal)
	mustAdd(t, f, 130, 100, KindNormal)
	before := f.Entities(KindNormal)
	if err := f.Step(); err != nil {
		t.Fatal(err)
	}
	after := f.Entities(KindNormal)

	for i, j := range []int{1, 0} {
		wantVel := before[i].Velocity.Add(before[j].Velocity.Normalize().Mul(1.0 / 30))
		if !after[i].Velocity.Eq(wantVel) {
			t.Errorf("entity %d velocity = %v; want %v", i, after[i].Velocity, wantVel)
		}
		wantPos := geometry.WrapPosition(before[i].Position.Add(wantVel), f.SceneBounds())
		if !after[i].Position.Eq(wantPos) {
			t.Errorf("entity %d position = %v; want %v", i, after[i].Position, wantPos)
		}
		if after[i].Color != before[i].Color {
			t.Errorf("color changed with diffusion disabled: %v -> %v", before[i].Color, after[i].Color)
		}
	}
}

func TestFlock_SetSceneBounds(t *testing.T) {
	f := newTestFlock(t, WithSeed(5))
	populate(t, f, rand.New(rand.NewPCG(5, 5)), 50, 2, 0)

	if err := f.SetSceneBounds(geometry.Bounds{Width: 0, Height: 10}); !errors.Is(err, geometry.ErrInvalidArgument) {
		t.Errorf("SetSceneBounds(invalid): got %v; want ErrInvalidArgument", err)
	}

	small := geometry.Bounds{Left: 10, Top: 10, Width: 100, Height: 80}
	if err := f.SetSceneBounds(small); err != nil {
		t.Fatalf("SetSceneBounds unexpected error: %v", err)
	}
	if f.SceneBounds() != small {
		t.Errorf("SceneBounds = %v; want %v", f.SceneBounds(), small)
	}
	if err := f.Step(); err != nil {
		t.Fatal(err)
	}
	for _, v := range f.Snapshot().All() {
		if !small.Contains(v.Position) {
			t.Errorf("entity %d at %v outside the new scene", v.ID, v.Position)
		}
	}
}

func TestFlock_SnapshotIsACopy(t *testing.T) {
	f := newTestFlock(t)
	mustAdd(t, f, 1, 2, KindNormal)
	mustAdd(t, f, 3, 4, KindObstacle)

	snap := f.Snapshot()
	if snap.Len() != 2 || len(snap.All()) != 2 {
		t.Fatalf("snapshot holds %d views; want 2", snap.Len())
	}
	snap.Kinds[KindNormal][0].Position = geometry.Vector2D{X: 99, Y: 99}
	if got := f.Entities(KindNormal)[0].Position; got != (geometry.Vector2D{X: 1, Y: 2}) {
		t.Errorf("mutating a snapshot changed the flock: %v", got)
	}

	list := f.Entities(KindNormal)
	list[0].Position = geometry.Vector2D{}
	if got := f.Entities(KindNormal)[0].Position; got != (geometry.Vector2D{X: 1, Y: 2}) {
		t.Errorf("mutating Entities() changed the flock: %v", got)
	}
}

func TestFlock_SetColorDiffusion(t *testing.T) {
	f := newTestFlock(t, WithSeed(3))
	f.Populate(Population{Normal: 30, Predator: 2})
	if !f.ColorDiffusion() {
		t.Fatal("color diffusion should be on by default")
	}
	hues := func() map[uint64]float64 {
		out := make(map[uint64]float64)
		for _, v := range f.Snapshot().All() {
			out[v.ID] = v.Color
		}
		return out
	}

	f.SetColorDiffusion(false)
	before := hues()
	for i := 0; i < 5; i++ {
		if err := f.Step(); err != nil {
			t.Fatalf("Step unexpected error: %v", err)
		}
	}
	for id, hue := range hues() {
		if hue != before[id] {
			t.Errorf("entity %d hue changed from %v to %v with diffusion off", id, before[id], hue)
		}
	}

	f.SetColorDiffusion(true)
	if err := f.Step(); err != nil {
		t.Fatalf("Step unexpected error: %v", err)
	}
	changed := 0
	for id, hue := range hues() {
		if hue != before[id] {
			changed++
		}
	}
	if changed == 0 {
		t.Error("no hue changed with diffusion on")
	}
}

func TestFlock_PredatorScattersFlock(t *testing.T) {
	f := newTestFlock(t, WithSeed(2), WithColorDiffusion(false))
	cfg := DefaultConfig(KindNormal)
	cfg.NoiseMagnitude = 0
	cfg.AlignmentScale, cfg.CohesionScale, cfg.RepelScale = 0, 0, 0
	if err := f.SetConfig(cfg, KindNormal); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f, 400, 300, KindNormal)
	mustAdd(t, f, 420, 300, KindPredator)

	if err := f.Step(); err != nil {
		t.Fatal(err)
	}
	prey := f.Entities(KindNormal)[0]
	// the threat term dominates and pushes the prey away along -X
	if prey.Velocity.X >= 0 {
		t.Errorf("prey velocity %v does not point away from the predator", prey.Velocity)
	}
}

func BenchmarkFlock_Step(b *testing.B) {
	for _, search := range []NeighbourSearch{SearchGrid, SearchBruteForce} {
		b.Run(search.String(), func(b *testing.B) {
			f := newTestFlock(b, WithSeed(1), WithNeighbourSearch(search),
				WithSceneBounds(geometry.Bounds{Width: 1600, Height: 1200}))
			populate(b, f, rand.New(rand.NewPCG(1, 1)), 1000, 10, 20)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := f.Step(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
