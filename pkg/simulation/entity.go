package simulation

import (
	"fmt"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Kind tags an entity with the rules it moves by.
type Kind uint8

const (
	KindNormal   Kind = iota // flocking agent
	KindPredator             // chases the flock, is avoided by it
	KindObstacle             // static, avoided by everybody
)

// Kinds lists every kind in the order the engine processes them.
var Kinds = []Kind{KindNormal, KindPredator, KindObstacle}

// Initial speed range of a freshly created movable entity.
const (
	InitialMinSpeed = 0.1
	InitialMaxSpeed = 5.0
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindPredator:
		return "predator"
	case KindObstacle:
		return "obstacle"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k <= KindObstacle
}

// IsMovable is false for obstacles only.
func (k Kind) IsMovable() bool {
	return k == KindNormal || k == KindPredator
}

// MarshalText lets kinds appear by name in JSON, YAML and CSV output.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", geometry.ErrInvalidArgument, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts "normal", "predator" or "obstacle" back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", geometry.ErrInvalidArgument, s)
}

// Entity is the single record used for every kind of agent.
type Entity struct {
	ID       uint64
	Kind     Kind
	Position geometry.Vector2D
	Velocity geometry.Vector2D // always zero for obstacles
	Color    float64           // hue in [0, 360)
}

// NewEntity creates a normal entity at the origin, at rest, with hue 0.
func NewEntity(id uint64) Entity {
	return Entity{ID: id, Kind: KindNormal}
}

// NewEntityAt creates an entity at (x, y) with a random hue and, for movable
// kinds, a random velocity whose magnitude lies in [InitialMinSpeed, InitialMaxSpeed).
func NewEntityAt(id uint64, x, y float64, kind Kind, rng *rand.Rand) Entity {
	e := Entity{
		ID:       id,
		Kind:     kind,
		Position: geometry.Vector2D{X: x, Y: y},
	}
	if kind.IsMovable() {
		// constant range, cannot fail
		e.Velocity, _ = behavior.RandomVector(rng, InitialMinSpeed, InitialMaxSpeed)
	}
	e.Color = rng.Float64() * behavior.HueRange
	return e
}

// Heading is the direction of travel in radians, derived from the velocity.
func (e *Entity) Heading() float64 {
	return e.Velocity.Angle()
}

// IsMovable reports whether the engine ever moves this entity.
func (e *Entity) IsMovable() bool {
	return e.Kind.IsMovable()
}

func (e *Entity) body() behavior.Body {
	return behavior.Body{
		ID:       e.ID,
		Position: e.Position,
		Velocity: e.Velocity,
		Color:    e.Color,
	}
}

// EntityView is the read-only projection handed to presentation layers.
type EntityView struct {
	ID       uint64            `json:"id"`
	Kind     Kind              `json:"kind"`
	Position geometry.Vector2D `json:"position"`
	Velocity geometry.Vector2D `json:"velocity"`
	Heading  float64           `json:"heading"`
	Color    float64           `json:"color"`
}

// View projects the entity for display or export.
func (e *Entity) View() EntityView {
	return EntityView{
		ID:       e.ID,
		Kind:     e.Kind,
		Position: e.Position,
		Velocity: e.Velocity,
		Heading:  e.Heading(),
		Color:    e.Color,
	}
}
