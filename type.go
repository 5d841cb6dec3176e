package geostat

import (
	vec2d "github.com/flywave/go3d/float64/vec2"
)

type ModelType string

const (
	Gaussian    ModelType = "gaussian"
	Exponential ModelType = "exponential"
	Spherical   ModelType = "spherical"
)

// DistanceMode selects how separations between positions are measured.
// In great-circle mode positions are (latitude, longitude) in degrees.
type DistanceMode string

const (
	Planar      DistanceMode = "planar"
	GreatCircle DistanceMode = "great-circle"
)

type Method string

const (
	SimpleKriging    Method = "simple"
	OrdinaryKriging  Method = "ordinary"
	UniversalKriging Method = "universal"
	DetrendedKriging Method = "detrended"
)

// Observation is one conditioning sample: a position and the scalar
// measured there. Pos[0] is x (planar) or latitude in degrees, Pos[1]
// is y or longitude.
type Observation struct {
	Pos   vec2d.T `json:"pos"`
	Value float64 `json:"value"`
}

// DriftFunc is a drift basis function for universal kriging.
type DriftFunc func(pos vec2d.T) float64

// TrendFunc is an externally supplied large-scale trend, subtracted
// before and added back after detrended kriging.
type TrendFunc func(pos vec2d.T) float64

// LatDrift is the north-south drift basis: linear in the first
// coordinate.
func LatDrift(pos vec2d.T) float64 { return pos[0] }

// Values extracts the measured scalars in observation order.
func Values(obs []Observation) []float64 {
	v := make([]float64, len(obs))
	for i := range obs {
		v[i] = obs[i].Value
	}
	return v
}
