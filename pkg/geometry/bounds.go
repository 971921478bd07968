package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned when a caller passes an argument outside the
// documented domain of an operation (min > max, non-positive sizes, ...).
var ErrInvalidArgument = errors.New("invalid argument")

// Bounds is an axis-aligned rectangle defining a toroidal scene: leaving it
// through one edge re-enters through the opposite one.
type Bounds struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// NewBounds creates a Bounds and validates it.
func NewBounds(left, top, width, height float64) (Bounds, error) {
	b := Bounds{Left: left, Top: top, Width: width, Height: height}
	return b, b.Validate()
}

// Validate checks that the rectangle has a strictly positive area.
func (b Bounds) Validate() error {
	if !(b.Width > 0) || !(b.Height > 0) {
		return fmt.Errorf("%w: scene bounds need width>0 and height>0, got %vx%v", ErrInvalidArgument, b.Width, b.Height)
	}
	return nil
}

// Right is the x coordinate of the right edge (exclusive).
func (b Bounds) Right() float64 { return b.Left + b.Width }

// Bottom is the y coordinate of the bottom edge (exclusive).
func (b Bounds) Bottom() float64 { return b.Top + b.Height }

// Contains reports whether p lies in the half-open rectangle [Left,Right) x [Top,Bottom).
func (b Bounds) Contains(p Vector2D) bool {
	return p.X >= b.Left && p.X < b.Right() && p.Y >= b.Top && p.Y < b.Bottom()
}

// String implements the fmt.Stringer interface.
func (b Bounds) String() string {
	return fmt.Sprintf("[%.2f, %.2f %.2fx%.2f]", b.Left, b.Top, b.Width, b.Height)
}

// WrapValue wraps value into the half-open interval [minValue, maxValue).
// Values below the interval re-enter from the top, values above re-enter from the bottom.
func WrapValue(value, minValue, maxValue float64) float64 {
	span := maxValue - minValue
	if span <= 0 {
		return minValue
	}
	r := math.Mod(value-minValue, span)
	if r < 0 {
		r += span
	}
	wrapped := minValue + r
	// r+span can round up to span for tiny negative r
	if wrapped >= maxValue {
		return minValue
	}
	return wrapped
}

// WrapPosition wraps a point into the scene.
func WrapPosition(p Vector2D, b Bounds) Vector2D {
	return Vector2D{
		X: WrapValue(p.X, b.Left, b.Right()),
		Y: WrapValue(p.Y, b.Top, b.Bottom()),
	}
}

// wrapAxisDelta folds a raw difference onto the shortest signed difference
// on a circle of the given circumference.
func wrapAxisDelta(d, size float64) float64 {
	d = math.Remainder(d, size)
	// Remainder keeps |d| <= size/2; normalise the tie so both directions agree
	if d == -size/2 {
		d = size / 2
	}
	return d
}

// WrapDelta returns the shortest displacement going from `from` to `to`,
// taking the wrapped edges of the scene into account.
func WrapDelta(from, to Vector2D, b Bounds) Vector2D {
	return Vector2D{
		X: wrapAxisDelta(to.X-from.X, b.Width),
		Y: wrapAxisDelta(to.Y-from.Y, b.Height),
	}
}

// WrapAwareDistance is the Euclidean norm of WrapDelta. Wrapping can only
// shorten the measured distance, so it never exceeds p1.DistanceTo(p2).
func WrapAwareDistance(p1, p2 Vector2D, b Bounds) float64 {
	return WrapDelta(p1, p2, b).Len()
}
