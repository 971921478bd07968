package behavior

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

const (
	// CohesionPull scales the unit vector toward the neighbourhood centroid.
	CohesionPull = 0.1
	// ColorDiffusionRate is the fraction of the hue gap closed per step.
	ColorDiffusionRate = 0.05
	// ColorJitter bounds, in degrees, the random hue drift added per step.
	ColorJitter = 0.5
	// HueRange is the exclusive upper bound of the color trait.
	HueRange = 360.0
)

// distanceWeight is 1/max(1, d): closer neighbours count more, and nothing
// blows up for coincident ones.
func distanceWeight(d float64) float64 {
	return 1 / math.Max(1, d)
}

// Alignment sums the unit headings of the neighbours, each divided by its
// distance to self. Closer neighbours dominate. Empty list gives the zero vector.
func Alignment(self Body, neighbours []Body, b geometry.Bounds) geometry.Vector2D {
	var sum geometry.Vector2D
	for _, n := range neighbours {
		d := geometry.WrapAwareDistance(self.Position, n.Position, b)
		sum = sum.Add(n.Velocity.Normalize().Mul(distanceWeight(d)))
	}
	return sum
}

// Cohesion points from self toward the wrap-aware centroid of the neighbours.
// The centroid is the mean of the shortest displacements, so a cluster split
// across a seam pulls toward where it really is.
func Cohesion(self Body, neighbours []Body, b geometry.Bounds) geometry.Vector2D {
	if len(neighbours) == 0 {
		return geometry.Vector2D{}
	}
	var sum geometry.Vector2D
	for _, n := range neighbours {
		sum = sum.Add(geometry.WrapDelta(self.Position, n.Position, b))
	}
	return sum.Mul(1 / float64(len(neighbours))).Normalize().Mul(CohesionPull)
}

// Separation pushes self away from every neighbour within minDist.
// Each push is the unit vector from the neighbour to self, weighted by
// 1/max(1, d-minDist). A neighbour sitting exactly on self pushes along
// geometry.FallbackDirection.
func Separation(self Body, neighbours []Body, minDist float64, b geometry.Bounds) geometry.Vector2D {
	var sum geometry.Vector2D
	for _, n := range neighbours {
		// delta from the neighbour to self
		away := geometry.WrapDelta(n.Position, self.Position, b)
		d := away.Len()
		if d > minDist {
			continue
		}
		dir := geometry.FallbackDirection
		if d >= geometry.Epsilon {
			dir = away.Mul(1 / d)
		}
		sum = sum.Add(dir.Mul(distanceWeight(d - minDist)))
	}
	return sum
}

// ColorDiffusion moves the hue of self a small step toward the
// distance-weighted circular mean of its neighbours, adds jitter (clamped to
// ±ColorJitter) and wraps the result into [0, HueRange).
// With no neighbours, or when the neighbour hues cancel out, only the jitter applies.
func ColorDiffusion(self Body, neighbours []Body, b geometry.Bounds, jitter float64) float64 {
	jitter = math.Max(-ColorJitter, math.Min(ColorJitter, jitter))
	hue := self.Color

	var sumSin, sumCos float64
	for _, n := range neighbours {
		w := distanceWeight(geometry.WrapAwareDistance(self.Position, n.Position, b))
		rad := n.Color * 2 * math.Pi / HueRange
		sumSin += w * math.Sin(rad)
		sumCos += w * math.Cos(rad)
	}
	if math.Hypot(sumSin, sumCos) > geometry.Epsilon {
		mean := math.Atan2(sumSin, sumCos) * HueRange / (2 * math.Pi)
		// shortest way around the hue circle
		gap := math.Remainder(mean-hue, HueRange)
		hue += gap * ColorDiffusionRate
	}
	return geometry.WrapValue(hue+jitter, 0, HueRange)
}
