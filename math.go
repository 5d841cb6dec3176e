package geostat

import (
	"math"
)

func degToRad(angle float64) float64 {
	return angle * math.Pi / 180
}

func radToDeg(angle float64) float64 {
	return angle * 180 / math.Pi
}

func pow2(x float64) float64 {
	return x * x
}

func pow3(x float64) float64 {
	return x * x * x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
