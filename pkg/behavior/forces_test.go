package behavior

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

const tolerance = 1e-6

func vecNear(a, b geometry.Vector2D) bool {
	return math.Abs(a.X-b.X) <= tolerance && math.Abs(a.Y-b.Y) <= tolerance
}

var bigScene = geometry.Bounds{Left: 0, Top: 0, Width: 1000, Height: 1000}

func body(id uint64, x, y float64) Body {
	return Body{ID: id, Position: geometry.Vector2D{X: x, Y: y}}
}

func TestForces_EmptyNeighbourhood(t *testing.T) {
	self := Body{ID: 1, Position: geometry.Vector2D{X: 5, Y: 5}, Velocity: geometry.Vector2D{X: 1, Y: 1}}
	zero := geometry.Vector2D{}

	if got := Alignment(self, nil, bigScene); got != zero {
		t.Errorf("Alignment(empty) = %v; want exact zero", got)
	}
	if got := Cohesion(self, nil, bigScene); got != zero {
		t.Errorf("Cohesion(empty) = %v; want exact zero", got)
	}
	if got := Separation(self, nil, 50, bigScene); got != zero {
		t.Errorf("Separation(empty) = %v; want exact zero", got)
	}
	if got := Separation(self, []Body{}, 50, bigScene); got != zero {
		t.Errorf("Separation(empty slice) = %v; want exact zero", got)
	}
}

func TestAlignment(t *testing.T) {
	self := body(0, 0, 0)
	tests := []struct {
		name       string
		neighbours []Body
		want       geometry.Vector2D
	}{
		{
			name:       "WeightedByDistance",
			neighbours: []Body{{ID: 1, Position: geometry.Vector2D{X: 4, Y: 0}, Velocity: geometry.Vector2D{X: 2, Y: 0}}},
			want:       geometry.Vector2D{X: 0.25, Y: 0},
		},
		{
			name:       "CloseNeighbourFullWeight",
			neighbours: []Body{{ID: 1, Position: geometry.Vector2D{X: 0.5, Y: 0}, Velocity: geometry.Vector2D{X: 0, Y: -3}}},
			want:       geometry.Vector2D{X: 0, Y: -1},
		},
		{
			name: "OpposingHeadingsCancel",
			neighbours: []Body{
				{ID: 1, Position: geometry.Vector2D{X: 2, Y: 0}, Velocity: geometry.Vector2D{X: 1, Y: 0}},
				{ID: 2, Position: geometry.Vector2D{X: -2, Y: 0}, Velocity: geometry.Vector2D{X: -1, Y: 0}},
			},
			want: geometry.Vector2D{},
		},
		{
			name:       "StillNeighbourAddsNothing",
			neighbours: []Body{body(1, 3, 3)},
			want:       geometry.Vector2D{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Alignment(self, tt.neighbours, bigScene); !vecNear(got, tt.want) {
				t.Errorf("Alignment = %v; want %v", got, tt.want)
			}
		})
	}

	t.Run("MeasuredAcrossSeam", func(t *testing.T) {
		b := geometry.Bounds{Left: 0, Top: 0, Width: 20, Height: 10}
		n := Body{ID: 1, Position: geometry.Vector2D{X: 19, Y: 0}, Velocity: geometry.Vector2D{X: 0, Y: 1}}
		// wrap-aware distance is 1, not 19
		got := Alignment(body(0, 0, 0), []Body{n}, b)
		if !vecNear(got, geometry.Vector2D{X: 0, Y: 1}) {
			t.Errorf("Alignment across seam = %v; want (0, 1)", got)
		}
	})
}

func TestCohesion(t *testing.T) {
	unit := geometry.Bounds{Left: 0, Top: 0, Width: 1, Height: 1}
	tests := []struct {
		name       string
		self       Body
		neighbours []Body
		bounds     geometry.Bounds
		want       geometry.Vector2D
	}{
		{
			name:       "Direct",
			self:       body(0, 0, 0),
			neighbours: []Body{body(1, 10, 0), body(2, 20, 0)},
			bounds:     bigScene,
			want:       geometry.Vector2D{X: CohesionPull, Y: 0},
		},
		{
			name:       "AcrossLeftSeam",
			self:       body(0, 0.1, 0.5),
			neighbours: []Body{body(1, 0.9, 0.5)},
			bounds:     unit,
			want:       geometry.Vector2D{X: -CohesionPull, Y: 0},
		},
		{
			name:       "ClusterStraddlingSeam",
			self:       body(0, 0.1, 0.5),
			neighbours: []Body{body(1, 0.95, 0.5), body(2, 0.15, 0.5), body(3, 0.9, 0.5)},
			bounds:     unit,
			want:       geometry.Vector2D{X: -CohesionPull, Y: 0},
		},
		{
			name:       "AcrossTopSeam",
			self:       body(0, 0.5, 0.05),
			neighbours: []Body{body(1, 0.5, 0.9)},
			bounds:     unit,
			want:       geometry.Vector2D{X: 0, Y: -CohesionPull},
		},
		{
			name:       "CentroidOnSelf",
			self:       body(0, 5, 5),
			neighbours: []Body{body(1, 4, 5), body(2, 6, 5)},
			bounds:     bigScene,
			want:       geometry.Vector2D{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cohesion(tt.self, tt.neighbours, tt.bounds); !vecNear(got, tt.want) {
				t.Errorf("Cohesion = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestSeparation(t *testing.T) {
	const minDist = 50.0
	self := body(0, 500, 500)

	t.Run("SymmetricNeighboursCancel", func(t *testing.T) {
		var ns []Body
		for i := 0; i < 3; i++ {
			theta := float64(i) * 2 * math.Pi / 3
			p := self.Position.Add(geometry.NewVectorPolar(minDist-0.01, theta))
			ns = append(ns, Body{ID: uint64(i + 1), Position: p})
		}
		got := Separation(self, ns, minDist, bigScene)
		if got.Len() > tolerance {
			t.Errorf("Separation of symmetric neighbours = %v (len %v); want ~0", got, got.Len())
		}
	})

	t.Run("OpposingPairCancels", func(t *testing.T) {
		ns := []Body{body(1, 510, 500), body(2, 490, 500)}
		if got := Separation(self, ns, minDist, bigScene); got.Len() > tolerance {
			t.Errorf("Separation = %v; want ~0", got)
		}
	})

	t.Run("PushesAway", func(t *testing.T) {
		got := Separation(self, []Body{body(1, 510, 500)}, minDist, bigScene)
		if !vecNear(got, geometry.Vector2D{X: -1, Y: 0}) {
			t.Errorf("Separation = %v; want (-1, 0)", got)
		}
	})

	t.Run("BeyondMinDistIgnored", func(t *testing.T) {
		got := Separation(self, []Body{body(1, 500, 560)}, minDist, bigScene)
		if got != (geometry.Vector2D{}) {
			t.Errorf("Separation = %v; want zero", got)
		}
	})

	t.Run("CoincidentUsesFallback", func(t *testing.T) {
		got := Separation(self, []Body{body(1, 500, 500)}, minDist, bigScene)
		if !vecNear(got, geometry.FallbackDirection) {
			t.Errorf("Separation = %v; want %v", got, geometry.FallbackDirection)
		}
		if math.IsNaN(got.X) || math.IsNaN(got.Y) {
			t.Errorf("Separation produced NaN: %v", got)
		}
	})

	t.Run("AcrossSeam", func(t *testing.T) {
		b := geometry.Bounds{Left: 0, Top: 0, Width: 20, Height: 10}
		got := Separation(body(0, 1, 5), []Body{body(1, 19, 5)}, 5, b)
		if !vecNear(got, geometry.Vector2D{X: 1, Y: 0}) {
			t.Errorf("Separation across seam = %v; want (1, 0)", got)
		}
	})
}

func TestColorDiffusion(t *testing.T) {
	tests := []struct {
		name       string
		self       Body
		neighbours []Body
		jitter     float64
		want       float64
	}{
		{"NoNeighbours", Body{Color: 120}, nil, 0, 120},
		{"NoNeighboursJitterWraps", Body{Color: 359.8}, nil, 0.4, 0.2},
		{"JitterIsClamped", Body{Color: 100}, nil, 10, 100 + ColorJitter},
		{"TowardNeighbour", Body{Color: 100}, []Body{{ID: 1, Color: 200}}, 0, 105},
		{"ShortestArc", Body{Color: 350}, []Body{{ID: 1, Color: 10}}, 0, 351},
		{"ShortestArcDown", Body{Color: 10}, []Body{{ID: 1, Color: 350}}, 0, 9},
		{"OpposedHuesCancel", Body{Color: 45}, []Body{{ID: 1, Color: 0}, {ID: 2, Color: 180}}, 0, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColorDiffusion(tt.self, tt.neighbours, bigScene, tt.jitter)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("ColorDiffusion = %v; want %v", got, tt.want)
			}
			if got < 0 || got >= HueRange {
				t.Errorf("ColorDiffusion = %v; outside [0, %v)", got, HueRange)
			}
		})
	}
}

func TestNeighbourhood(t *testing.T) {
	b := geometry.Bounds{Left: 0, Top: 0, Width: 20, Height: 10}
	self := body(0, 1, 1)
	candidates := []Body{self, body(1, 19, 1), body(2, 10, 5), body(3, 1, 9.5), body(4, 3.5, 1)}

	got := Neighbourhood(self, candidates, 2, b)
	var ids []uint64
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	want := []uint64{1, 3}
	if len(ids) != len(want) {
		t.Fatalf("Neighbourhood ids = %v; want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Neighbourhood ids = %v; want %v", ids, want)
		}
	}
}

func BenchmarkSeparation(b *testing.B) {
	self := body(0, 500, 500)
	ns := make([]Body, 0, 32)
	for i := 0; i < 32; i++ {
		ns = append(ns, Body{ID: uint64(i + 1), Position: self.Position.Add(geometry.NewVectorPolar(float64(i), float64(i)))})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Separation(self, ns, 50, bigScene)
	}
}
