// Package spatial provides a uniform-grid index answering radius queries over
// a toroidal scene. The grid is maintained incrementally: entities are moved
// between cells as their position changes instead of rebuilding every tick.
package spatial

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// DefaultCellSize is the cell edge used when the caller has no better idea.
// It is independent of the scene size.
const DefaultCellSize = 50.0

// ErrNotFound is returned when an id was never indexed or has been removed.
var ErrNotFound = errors.New("not found")

// Hash2D maps grid cells to the ids they contain.
// It is not safe for concurrent use; the owner serialises access.
type Hash2D struct {
	cellSize float64
	bounds   geometry.Bounds
	// Optimization: Spatial Hashing
	// cell hash -> ids currently in that cell
	cells map[uint64][]uint64
	// id -> last position written by Update
	positions map[uint64]geometry.Vector2D
}

// New creates an empty index. cellSize must be positive and bounds valid.
func New(cellSize float64, bounds geometry.Bounds) (*Hash2D, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: cell size must be positive, got %v", geometry.ErrInvalidArgument, cellSize)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return &Hash2D{
		cellSize:  cellSize,
		bounds:    bounds,
		cells:     make(map[uint64][]uint64),
		positions: make(map[uint64]geometry.Vector2D),
	}, nil
}

// CellOf returns the representative point (the centre) of the cell containing pos.
// Negative coordinates floor toward negative infinity.
func CellOf(pos geometry.Vector2D, cellSize float64) geometry.Vector2D {
	return geometry.Vector2D{
		X: math.Floor(pos.X/cellSize)*cellSize + 0.5*cellSize,
		Y: math.Floor(pos.Y/cellSize)*cellSize + 0.5*cellSize,
	}
}

// HashOf hashes the cell containing pos. Points in the same cell hash equal.
func HashOf(pos geometry.Vector2D, cellSize float64) uint64 {
	return hashPoint(CellOf(pos, cellSize))
}

// hashPoint combines the per-axis hashes the way boost::hash_combine does.
func hashPoint(p geometry.Vector2D) uint64 {
	seed := hashFloat(p.X)
	h2 := hashFloat(p.Y)
	seed ^= h2 + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	return seed
}

func hashFloat(f float64) uint64 {
	// -0 and +0 compare equal but have different bits
	if f == 0 {
		f = 0
	}
	var buf [8]byte
	bits := math.Float64bits(f)
	for i := range buf {
		buf[i] = byte(bits >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// CellSize returns the cell edge length.
func (h *Hash2D) CellSize() float64 { return h.cellSize }

// Bounds returns the scene used to wrap queries.
func (h *Hash2D) Bounds() geometry.Bounds { return h.bounds }

// Len returns the number of indexed ids.
func (h *Hash2D) Len() int { return len(h.positions) }

// SetBounds replaces the scene and re-buckets every indexed id against it.
func (h *Hash2D) SetBounds(bounds geometry.Bounds) error {
	if err := bounds.Validate(); err != nil {
		return err
	}
	h.bounds = bounds
	clear(h.cells)
	// deterministic bucket order
	ids := make([]uint64, 0, len(h.positions))
	for id := range h.positions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		key := h.keyOf(h.positions[id])
		h.cells[key] = append(h.cells[key], id)
	}
	return nil
}

// Clear drops every bucket and every recorded position.
func (h *Hash2D) Clear() {
	clear(h.cells)
	clear(h.positions)
}

// keyOf buckets a position by its wrapped location, so an id is always
// reachable from a query that wraps into the scene.
func (h *Hash2D) keyOf(pos geometry.Vector2D) uint64 {
	return HashOf(geometry.WrapPosition(pos, h.bounds), h.cellSize)
}

// Update records the position of id, moving it to another cell when needed.
func (h *Hash2D) Update(id uint64, pos geometry.Vector2D) {
	old, known := h.positions[id]
	newKey := h.keyOf(pos)
	h.positions[id] = pos
	if !known {
		h.cells[newKey] = append(h.cells[newKey], id)
		return
	}
	oldKey := h.keyOf(old)
	if oldKey == newKey {
		return
	}
	h.removeFromCell(oldKey, id)
	h.cells[newKey] = append(h.cells[newKey], id)
}

// Remove drops id from the index. Removing an unknown id returns ErrNotFound.
func (h *Hash2D) Remove(id uint64) error {
	pos, ok := h.positions[id]
	if !ok {
		return fmt.Errorf("remove id %d: %w", id, ErrNotFound)
	}
	h.removeFromCell(h.keyOf(pos), id)
	delete(h.positions, id)
	return nil
}

// removeFromCell swap-removes id from a bucket and drops the bucket once empty.
func (h *Hash2D) removeFromCell(key, id uint64) {
	ids := h.cells[key]
	for i, other := range ids {
		if other != id {
			continue
		}
		last := len(ids) - 1
		ids[i] = ids[last]
		ids = ids[:last]
		break
	}
	if len(ids) == 0 {
		delete(h.cells, key)
		return
	}
	h.cells[key] = ids
}

// PositionOf returns the last position written for id.
func (h *Hash2D) PositionOf(id uint64) (geometry.Vector2D, error) {
	pos, ok := h.positions[id]
	if !ok {
		return geometry.Vector2D{}, fmt.Errorf("position of id %d: %w", id, ErrNotFound)
	}
	return pos, nil
}

// span is a closed interval along one axis, already inside the scene.
type span struct {
	lo, hi float64
}

// axisSpans folds [center-radius, center+radius] into the scene interval
// [origin, origin+size): one span, two spans when the square crosses a seam,
// or the whole axis when the square is wider than the scene.
func axisSpans(center, radius, origin, size float64) []span {
	end := origin + size
	if 2*radius >= size {
		return []span{{origin, end}}
	}
	lo := geometry.WrapValue(center-radius, origin, end)
	hi := lo + 2*radius
	if hi < end {
		return []span{{lo, hi}}
	}
	return []span{{lo, end}, {origin, hi - size}}
}

// Query returns the ids whose wrap-aware distance to pos is at most radius.
func (h *Hash2D) Query(pos geometry.Vector2D, radius float64) mapset.Set[uint64] {
	result := mapset.NewThreadUnsafeSet[uint64]()
	if radius < 0 || len(h.positions) == 0 {
		return result
	}

	xSpans := axisSpans(pos.X, radius, h.bounds.Left, h.bounds.Width)
	ySpans := axisSpans(pos.Y, radius, h.bounds.Top, h.bounds.Height)

	// a cell can be reached from two spans after wrapping
	visited := make(map[uint64]struct{})
	for _, xs := range xSpans {
		minX, maxX := h.cellIndex(xs.lo), h.cellIndex(xs.hi)
		for ix := minX; ix <= maxX; ix++ {
			for _, ys := range ySpans {
				minY, maxY := h.cellIndex(ys.lo), h.cellIndex(ys.hi)
				for iy := minY; iy <= maxY; iy++ {
					key := hashPoint(h.cellPoint(ix, iy))
					if _, seen := visited[key]; seen {
						continue
					}
					visited[key] = struct{}{}
					for _, id := range h.cells[key] {
						if geometry.WrapAwareDistance(pos, h.positions[id], h.bounds) <= radius {
							result.Add(id)
						}
					}
				}
			}
		}
	}
	return result
}

// cellIndex is the integer cell coordinate along one axis.
func (h *Hash2D) cellIndex(v float64) int64 {
	return int64(math.Floor(v / h.cellSize))
}

// cellPoint is the representative point of cell (ix, iy); it matches CellOf
// for every position inside that cell.
func (h *Hash2D) cellPoint(ix, iy int64) geometry.Vector2D {
	return geometry.Vector2D{
		X: float64(ix)*h.cellSize + 0.5*h.cellSize,
		Y: float64(iy)*h.cellSize + 0.5*h.cellSize,
	}
}
