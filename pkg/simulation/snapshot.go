package simulation

import (
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Snapshot is an immutable copy of the flock published after a step.
// Views of each kind are in insertion order.
type Snapshot struct {
	Tick   uint64                `json:"tick"`
	Bounds geometry.Bounds       `json:"bounds"`
	Kinds  map[Kind][]EntityView `json:"kinds"`
}

// Len counts the views of every kind.
func (s Snapshot) Len() int {
	n := 0
	for _, views := range s.Kinds {
		n += len(views)
	}
	return n
}

// All flattens the snapshot, kind by kind in Kinds order.
func (s Snapshot) All() []EntityView {
	out := make([]EntityView, 0, s.Len())
	for _, k := range Kinds {
		out = append(out, s.Kinds[k]...)
	}
	return out
}
