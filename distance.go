package geostat

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// EarthRadius is the mean earth radius in kilometres, matching the
// rescale factor used for lat-lon variogram models.
const EarthRadius = 6371.0

// Metric measures the separation between two positions. It is plain
// configuration threaded through estimation and kriging; the sphere
// radius is fixed at construction, never global state.
type Metric struct {
	Mode   DistanceMode
	Radius float64
}

// NewMetric returns a metric for the given mode with the earth radius
// preset for great-circle use.
func NewMetric(mode DistanceMode) Metric {
	return Metric{Mode: mode, Radius: EarthRadius}
}

// Distance returns the separation of p and q in physical units:
// Euclidean in planar mode, haversine great-circle distance scaled by
// the metric radius otherwise. Symmetric, non-negative, zero only for
// coincident positions.
func (m Metric) Distance(p, q vec2d.T) float64 {
	if m.Mode == GreatCircle {
		return m.Radius * centralAngle(p, q)
	}
	d := vec2d.Sub(&p, &q)
	return d.Length()
}

// centralAngle computes the haversine central angle in radians between
// two (latitude, longitude) positions given in degrees.
func centralAngle(p, q vec2d.T) float64 {
	lat1 := degToRad(p[0])
	lat2 := degToRad(q[0])
	dLat := degToRad(q[0] - p[0])
	dLon := degToRad(q[1] - p[1])

	a := pow2(math.Sin(dLat/2)) +
		math.Cos(lat1)*math.Cos(lat2)*pow2(math.Sin(dLon/2))
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
