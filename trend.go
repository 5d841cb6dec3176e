package geostat

import (
	"gonum.org/v1/gonum/stat"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// TrendModel is an ordinary least-squares linear fit of the observed
// value against one scalar covariate of position. Immutable once
// computed.
type TrendModel struct {
	Intercept float64
	Slope     float64
	covariate func(vec2d.T) float64
}

// FitTrend regresses the observation values on covariate(pos). A
// zero-variance covariate leaves the slope undefined and is reported
// as a FitError.
func FitTrend(obs []Observation, covariate func(vec2d.T) float64) (*TrendModel, error) {
	if len(obs) < 2 {
		return nil, errValidation("trend fit needs at least 2 observations, got %d", len(obs))
	}
	if covariate == nil {
		covariate = LatDrift
	}

	xs := make([]float64, len(obs))
	ys := make([]float64, len(obs))
	for i, o := range obs {
		xs[i] = covariate(o.Pos)
		ys[i] = o.Value
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if !isFinite(alpha) || !isFinite(beta) {
		return nil, &FitError{Op: "trend regression", Reason: "covariate has zero variance"}
	}
	return &TrendModel{Intercept: alpha, Slope: beta, covariate: covariate}, nil
}

// Eval returns the trend value at a position.
func (t *TrendModel) Eval(pos vec2d.T) float64 {
	return t.Intercept + t.Slope*t.covariate(pos)
}

// Func exposes the trend as a TrendFunc for detrended kriging.
func (t *TrendModel) Func() TrendFunc {
	return t.Eval
}
