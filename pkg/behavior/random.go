package behavior

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// RandomRange draws a float uniformly from [minValue, maxValue).
func RandomRange(rng *rand.Rand, minValue, maxValue float64) (float64, error) {
	if minValue > maxValue {
		return 0, fmt.Errorf("%w: random range min %v is greater than max %v", geometry.ErrInvalidArgument, minValue, maxValue)
	}
	return minValue + rng.Float64()*(maxValue-minValue), nil
}

// RandomVector returns a vector pointing in a uniformly random direction with
// a magnitude drawn uniformly from [minMagnitude, maxMagnitude).
func RandomVector(rng *rand.Rand, minMagnitude, maxMagnitude float64) (geometry.Vector2D, error) {
	theta := rng.Float64() * 2 * math.Pi
	magnitude, err := RandomRange(rng, minMagnitude, maxMagnitude)
	if err != nil {
		return geometry.Vector2D{}, err
	}
	return geometry.NewVectorPolar(magnitude, theta), nil
}

// Jitter is a small random perturbation no longer than maxMagnitude.
// A non-positive maxMagnitude gives the zero vector and consumes no randomness.
func Jitter(rng *rand.Rand, maxMagnitude float64) geometry.Vector2D {
	if maxMagnitude <= 0 {
		return geometry.Vector2D{}
	}
	v, _ := RandomVector(rng, 0, maxMagnitude)
	return v
}

// HueJitter draws the per-step hue drift in [-ColorJitter, ColorJitter).
func HueJitter(rng *rand.Rand) float64 {
	j, _ := RandomRange(rng, -ColorJitter, ColorJitter)
	return j
}
