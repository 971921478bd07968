// Package behavior holds the steering rules of the flock as pure functions.
//
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// The name "boid" corresponds to a shortened version of "bird-oid object".
// https://en.wikipedia.org/wiki/Boids
//
// Every function here takes the entity being steered and a caller-supplied
// neighbour list. How the list was gathered (brute force or spatial index) is
// not this package's concern: the math is identical either way.
package behavior

import (
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Body is the read-only view of an entity the force functions work on.
// We export fields so the engine can fill them from its snapshot.
type Body struct {
	ID       uint64
	Position geometry.Vector2D
	Velocity geometry.Vector2D
	Color    float64
}

// Neighbourhood returns the candidates within radius of self, measured with
// the wrap-aware distance. self is excluded by id. Order follows candidates.
func Neighbourhood(self Body, candidates []Body, radius float64, b geometry.Bounds) []Body {
	var out []Body
	for _, other := range candidates {
		if other.ID == self.ID {
			continue
		}
		if geometry.WrapAwareDistance(self.Position, other.Position, b) > radius {
			continue
		}
		out = append(out, other)
	}
	return out
}
