package geostat

import (
	"math"
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateGridMatchesPredict(t *testing.T) {
	a := assert.New(t)

	s, err := NewSession(unitTriangle(), planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	axis1 := []float64{0, 0.5, 1}
	axis2 := []float64{0, 0.25, 0.5, 1}

	field, err := s.EvaluateGrid(axis1, axis2, GridOptions{Variance: true})
	require.NoError(t, err)
	require.Len(t, field.Values, len(axis1)*len(axis2))
	require.Len(t, field.Variance, len(axis1)*len(axis2))

	for i, r := range axis1 {
		for j, c := range axis2 {
			est, variance, err := s.Predict(vec2d.T{r, c})
			require.NoError(t, err)
			a.InDelta(est, field.At(i, j), 1e-12)
			a.InDelta(variance, field.VarianceAt(i, j), 1e-12)
		}
	}
}

func TestEvaluateGridWorkersAgree(t *testing.T) {
	a := assert.New(t)

	s, err := NewSession(unitTriangle(), planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	axis := []float64{0, 0.2, 0.4, 0.6, 0.8, 1}

	serial, err := s.EvaluateGrid(axis, axis, GridOptions{Workers: 1})
	require.NoError(t, err)
	parallel, err := s.EvaluateGrid(axis, axis, GridOptions{Workers: 4})
	require.NoError(t, err)

	a.Equal(serial.Values, parallel.Values)
}

func TestEvaluateGridMeanOnlyDrift(t *testing.T) {
	a := assert.New(t)

	drift := func(p vec2d.T) float64 { return 1 + 2*p[0] }
	obs := []Observation{
		{Pos: vec2d.T{0, 0}},
		{Pos: vec2d.T{1, 0.3}},
		{Pos: vec2d.T{0.4, 1}},
		{Pos: vec2d.T{1.2, 1.4}},
	}
	for i := range obs {
		obs[i].Value = drift(obs[i].Pos)
	}

	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{
		Method: UniversalKriging,
		Drift:  []DriftFunc{LatDrift},
	})
	require.NoError(t, err)

	axis1 := []float64{0, 0.5, 1}
	axis2 := []float64{0, 1}
	mean, err := s.EvaluateGrid(axis1, axis2, GridOptions{MeanOnly: true})
	require.NoError(t, err)

	// the drift surface is linear in the first axis and flat along the
	// second, independent of the residual field
	for i, r := range axis1 {
		for j := range axis2 {
			a.InDelta(1+2*r, mean.At(i, j), 1e-8)
		}
	}
	a.Nil(mean.Variance)
}

func TestEvaluateGridMask(t *testing.T) {
	a := assert.New(t)

	obs := unitTriangle()
	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	axis := []float64{0, 0.25, 1}
	field, err := s.EvaluateGrid(axis, axis, GridOptions{Mask: HullOf(obs), Variance: true})
	require.NoError(t, err)

	// (1, 1) lies outside the triangle, (0.25, 0.25) inside
	a.True(math.IsNaN(field.At(2, 2)))
	a.True(math.IsNaN(field.VarianceAt(2, 2)))
	a.False(math.IsNaN(field.At(1, 1)))

	// hull vertices stay unmasked
	a.False(math.IsNaN(field.At(0, 0)))
}

func TestEvaluateGridProgress(t *testing.T) {
	a := assert.New(t)

	s, err := NewSession(unitTriangle(), planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	var calls [][2]int
	axis := []float64{0, 0.5, 1}
	_, err = s.EvaluateGrid(axis, axis, GridOptions{
		Workers: 1,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	})
	require.NoError(t, err)

	require.Len(t, calls, len(axis))
	a.Equal([2]int{len(axis), len(axis)}, calls[len(calls)-1])
}

func TestEvaluateGridValidation(t *testing.T) {
	a := assert.New(t)

	s, err := NewSession(unitTriangle(), planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	var verr *ValidationError

	_, err = s.EvaluateGrid(nil, []float64{0, 1}, GridOptions{})
	a.ErrorAs(err, &verr)

	_, err = s.EvaluateGrid([]float64{0, 1}, []float64{1, 0}, GridOptions{})
	a.ErrorAs(err, &verr)

	_, err = s.EvaluateGrid([]float64{0, 0}, []float64{0, 1}, GridOptions{})
	a.ErrorAs(err, &verr)
}
