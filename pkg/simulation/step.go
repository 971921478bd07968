package simulation

import (
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

const (
	// CrossKindRadiusScale widens the radius used to spot threats.
	CrossKindRadiusScale = 2.0
	// ObstacleMinDistScale and ThreatMinDistScale widen repelMinDist for
	// obstacles and threats, which are avoided from further away.
	ObstacleMinDistScale = 2.0
	ThreatMinDistScale   = 5.0
	// parallelThreshold is the population below which a kind is stepped sequentially.
	parallelThreshold = 64
)

// roles tells, for each movable kind, whose behaviour it follows (mates) and
// whom it flees (threats). Predators follow the normal flock, which makes them
// chase it, and keep apart from each other through the threat term.
var roles = map[Kind]struct{ mates, threats Kind }{
	KindNormal:   {mates: KindNormal, threats: KindPredator},
	KindPredator: {mates: KindNormal, threats: KindPredator},
}

// frozen is the read-only state every neighbourhood lookup of one step reads.
type frozen struct {
	bounds  geometry.Bounds
	bodies  map[Kind][]behavior.Body
	byID    map[Kind]map[uint64]behavior.Body
	indexes map[Kind]*spatial.Hash2D
	search  NeighbourSearch
}

// neighbours returns the entities of kind within radius of self, self excluded,
// sorted by id whatever the search strategy.
func (fr *frozen) neighbours(self behavior.Body, kind Kind, radius float64) []behavior.Body {
	if fr.search == SearchBruteForce {
		// populations are kept in insertion order, which is id order
		return behavior.Neighbourhood(self, fr.bodies[kind], radius, fr.bounds)
	}
	ids := fr.indexes[kind].Query(self.Position, radius).ToSlice()
	slices.Sort(ids)
	out := make([]behavior.Body, 0, len(ids))
	for _, id := range ids {
		if id == self.ID {
			continue
		}
		out = append(out, fr.byID[kind][id])
	}
	return out
}

// noise is the randomness one entity consumes in one step, drawn up front.
type noise struct {
	velocity geometry.Vector2D
	hue      float64
}

// Step advances the whole flock by one tick. Every entity reads the state as
// it was when Step was called; the new state is committed at the end.
// Obstacles are never moved.
func (f *Flock) Step() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// 1. freeze
	fr := &frozen{
		bounds:  f.bounds,
		bodies:  make(map[Kind][]behavior.Body, len(Kinds)),
		byID:    make(map[Kind]map[uint64]behavior.Body, len(Kinds)),
		indexes: f.indexes,
		search:  f.search,
	}
	for _, k := range Kinds {
		list := f.entities[k]
		bodies := make([]behavior.Body, len(list))
		byID := make(map[uint64]behavior.Body, len(list))
		for i := range list {
			bodies[i] = list[i].body()
			byID[list[i].ID] = bodies[i]
		}
		fr.bodies[k] = bodies
		fr.byID[k] = byID
	}

	// 2. draw every random number sequentially so parallelism cannot change them
	draws := make(map[Kind][]noise, 2)
	for _, k := range Kinds {
		if !k.IsMovable() {
			continue
		}
		cfg := f.configs[k]
		n := make([]noise, len(f.entities[k]))
		for i := range n {
			n[i].velocity = behavior.Jitter(f.rng, cfg.NoiseMagnitude)
			if f.colorDiffusion {
				n[i].hue = behavior.HueJitter(f.rng)
			}
		}
		draws[k] = n
	}

	// 3. compute against the frozen state
	next := make(map[Kind][]Entity, 2)
	for _, k := range Kinds {
		if !k.IsMovable() {
			continue
		}
		out := make([]Entity, len(f.entities[k]))
		if err := f.stepKind(fr, k, draws[k], out); err != nil {
			return err
		}
		next[k] = out
	}

	// 4. commit
	for k, list := range next {
		f.entities[k] = list
		idx := f.indexes[k]
		for i := range list {
			idx.Update(list[i].ID, list[i].Position)
		}
	}
	f.tick++
	return nil
}

// stepKind fills out with the next state of every entity of kind k.
// Each goroutine writes disjoint slots of out.
func (f *Flock) stepKind(fr *frozen, k Kind, draws []noise, out []Entity) error {
	cfg := f.configs[k]
	current := f.entities[k]
	bodies := fr.bodies[k]

	run := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			e, err := f.advance(fr, k, cfg, current[i], bodies[i], draws[i])
			if err != nil {
				return err
			}
			out[i] = e
		}
		return nil
	}

	n := len(current)
	if n < parallelThreshold || f.parallelism < 2 {
		return run(0, n)
	}

	var g errgroup.Group
	g.SetLimit(f.parallelism)
	chunk := (n + f.parallelism - 1) / f.parallelism
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error { return run(lo, hi) })
	}
	return g.Wait()
}

// advance computes one entity's next state from its frozen neighbourhood.
func (f *Flock) advance(fr *frozen, k Kind, cfg Config, e Entity, self behavior.Body, rnd noise) (Entity, error) {
	role := roles[k]
	mates := fr.neighbours(self, role.mates, cfg.NeighbourhoodRadius)
	obstacles := fr.neighbours(self, KindObstacle, cfg.NeighbourhoodRadius)
	threats := fr.neighbours(self, role.threats, cfg.NeighbourhoodRadius*CrossKindRadiusScale)

	v := e.Velocity.
		Add(behavior.Alignment(self, mates, fr.bounds).Mul(cfg.AlignmentScale)).
		Add(behavior.Cohesion(self, mates, fr.bounds).Mul(cfg.CohesionScale)).
		Add(behavior.Separation(self, mates, cfg.RepelMinDist, fr.bounds).Mul(cfg.RepelScale)).
		Add(behavior.Separation(self, obstacles, cfg.RepelMinDist*ObstacleMinDistScale, fr.bounds).Mul(cfg.ObstacleRepelScale)).
		Add(behavior.Separation(self, threats, cfg.RepelMinDist*ThreatMinDistScale, fr.bounds).Mul(cfg.PredatorRepelScale)).
		Add(rnd.velocity)

	v, err := geometry.ClipMagnitude(v, cfg.MinVelocity, cfg.MaxVelocity)
	if err != nil {
		return Entity{}, err
	}

	e.Velocity = v
	e.Position = geometry.WrapPosition(e.Position.Add(v), fr.bounds)
	if f.colorDiffusion {
		e.Color = behavior.ColorDiffusion(self, mates, fr.bounds, rnd.hue)
	}
	return e, nil
}
