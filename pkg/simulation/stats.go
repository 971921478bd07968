package simulation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Stats summarises a group of entities.
type Stats struct {
	Count     int     `json:"count" csv:"count"`
	MeanSpeed float64 `json:"meanSpeed" csv:"mean_speed"`
	StdSpeed  float64 `json:"stdSpeed" csv:"std_speed"`
	// Polarization is the length of the mean unit heading: 1 when everybody
	// flies the same way, close to 0 when headings are spread out.
	Polarization float64 `json:"polarization" csv:"polarization"`
	// MeanHue is the circular mean of the colors, in [0, 360).
	MeanHue float64 `json:"meanHue" csv:"mean_hue"`
}

// ComputeStats summarises views. Entities at rest do not contribute a heading.
func ComputeStats(views []EntityView) Stats {
	n := len(views)
	if n == 0 {
		return Stats{}
	}
	speeds := make([]float64, n)
	hx := make([]float64, n)
	hy := make([]float64, n)
	cx := make([]float64, n)
	cy := make([]float64, n)
	for i, v := range views {
		speeds[i] = v.Velocity.Len()
		u := v.Velocity.Normalize()
		hx[i], hy[i] = u.X, u.Y
		rad := v.Color * 2 * math.Pi / behavior.HueRange
		cx[i], cy[i] = math.Cos(rad), math.Sin(rad)
	}

	s := Stats{Count: n}
	if n == 1 {
		s.MeanSpeed = speeds[0]
	} else {
		s.MeanSpeed, s.StdSpeed = stat.MeanStdDev(speeds, nil)
	}
	s.Polarization = math.Hypot(floats.Sum(hx), floats.Sum(hy)) / float64(n)

	hue := math.Atan2(floats.Sum(cy), floats.Sum(cx)) * behavior.HueRange / (2 * math.Pi)
	s.MeanHue = geometry.WrapValue(hue, 0, behavior.HueRange)
	return s
}
