package geostat

import (
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitTriangle() []Observation {
	return []Observation{
		{Pos: vec2d.T{0, 0}, Value: 1},
		{Pos: vec2d.T{1, 0}, Value: 2},
		{Pos: vec2d.T{0, 1}, Value: 2},
	}
}

func planarSpherical() *Variogram {
	return &Variogram{Family: Spherical, Mode: Planar, Nugget: 0, Sill: 1, Range: 2}
}

func TestSimpleKriging(t *testing.T) {
	a := assert.New(t)

	obs := unitTriangle()
	mean := 5.0 / 3

	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{Method: SimpleKriging, Mean: mean})
	require.NoError(t, err)

	est, variance, err := s.Predict(vec2d.T{0.5, 0.5})
	require.NoError(t, err)
	a.GreaterOrEqual(est, 1.0)
	a.LessOrEqual(est, 2.0)
	a.GreaterOrEqual(variance, 0.0)

	// exact at conditioning points, with vanishing variance
	for _, o := range obs {
		est, variance, err := s.Predict(o.Pos)
		require.NoError(t, err)
		a.InDelta(o.Value, est, 1e-9)
		a.InDelta(0, variance, 1e-9)
	}

	m, err := s.Mean(vec2d.T{0.3, 0.3})
	require.NoError(t, err)
	a.Equal(mean, m)
}

func TestOrdinaryKrigingExactAndUnbiased(t *testing.T) {
	a := assert.New(t)

	obs := unitTriangle()
	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	for _, o := range obs {
		est, variance, err := s.Predict(o.Pos)
		require.NoError(t, err)
		a.InDelta(o.Value, est, 1e-9)
		a.InDelta(0, variance, 1e-9)
	}

	// the unbiasedness constraint forces weights to sum to one
	for _, q := range []vec2d.T{{0.5, 0.5}, {0.1, 0.9}, {2, 2}} {
		x, err := s.solve(s.rhs(q, false))
		require.NoError(t, err)
		sum := 0.0
		for _, w := range x[:len(obs)] {
			sum += w
		}
		a.InDelta(1, sum, 1e-9)
	}
}

func TestOrdinaryKrigingConstantField(t *testing.T) {
	a := assert.New(t)

	obs := unitTriangle()
	for i := range obs {
		obs[i].Value = 7
	}
	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	est, _, err := s.Predict(vec2d.T{0.4, 0.2})
	require.NoError(t, err)
	a.InDelta(7, est, 1e-9)

	m, err := s.Mean(vec2d.T{5, 5})
	require.NoError(t, err)
	a.InDelta(7, m, 1e-9)
}

func TestUniversalKrigingReproducesDrift(t *testing.T) {
	a := assert.New(t)

	drift := func(p vec2d.T) float64 { return 2 + 3*p[0] }
	obs := []Observation{
		{Pos: vec2d.T{0, 0}},
		{Pos: vec2d.T{1, 0.5}},
		{Pos: vec2d.T{0.2, 1}},
		{Pos: vec2d.T{1.5, 1.5}},
	}
	for i := range obs {
		obs[i].Value = drift(obs[i].Pos)
	}

	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{
		Method: UniversalKriging,
		Drift:  []DriftFunc{LatDrift},
	})
	require.NoError(t, err)

	// with pure-drift data the predictor and the mean surface both
	// reproduce the drift exactly, regardless of the covariance
	for _, q := range []vec2d.T{{0.5, 0.5}, {2, 0}, {-1, 1}} {
		est, _, err := s.Predict(q)
		require.NoError(t, err)
		a.InDelta(drift(q), est, 1e-8)

		m, err := s.Mean(q)
		require.NoError(t, err)
		a.InDelta(drift(q), m, 1e-8)
	}

	for _, o := range obs {
		est, variance, err := s.Predict(o.Pos)
		require.NoError(t, err)
		a.InDelta(o.Value, est, 1e-8)
		a.InDelta(0, variance, 1e-8)
	}
}

func TestDetrendedKriging(t *testing.T) {
	a := assert.New(t)

	trend := func(p vec2d.T) float64 { return 10 - p[0] }
	obs := unitTriangle()

	s, err := NewSession(obs, planarSpherical(), NewMetric(Planar), SessionConfig{
		Method: DetrendedKriging,
		Trend:  trend,
	})
	require.NoError(t, err)

	for _, o := range obs {
		est, variance, err := s.Predict(o.Pos)
		require.NoError(t, err)
		a.InDelta(o.Value, est, 1e-9)
		a.InDelta(0, variance, 1e-9)
	}

	// far from the data the residual dies off and the trend remains
	far := vec2d.T{40, 40}
	est, _, err := s.Predict(far)
	require.NoError(t, err)
	a.InDelta(trend(far), est, 1e-9)

	m, err := s.Mean(far)
	require.NoError(t, err)
	a.Equal(trend(far), m)
}

func TestSessionValidation(t *testing.T) {
	a := assert.New(t)

	obs := unitTriangle()
	model := planarSpherical()
	metric := NewMetric(Planar)
	var verr *ValidationError

	_, err := NewSession(obs[:1], model, metric, SessionConfig{Method: OrdinaryKriging})
	a.ErrorAs(err, &verr)

	_, err = NewSession(obs, nil, metric, SessionConfig{Method: OrdinaryKriging})
	a.ErrorAs(err, &verr)

	bad := *model
	bad.Range = 0
	_, err = NewSession(obs, &bad, metric, SessionConfig{Method: OrdinaryKriging})
	a.ErrorAs(err, &verr)

	// estimation and prediction must agree on the distance mode
	_, err = NewSession(obs, model, NewMetric(GreatCircle), SessionConfig{Method: OrdinaryKriging})
	a.ErrorAs(err, &verr)

	_, err = NewSession(obs, model, metric, SessionConfig{Method: UniversalKriging})
	a.ErrorAs(err, &verr)

	_, err = NewSession(obs, model, metric, SessionConfig{Method: DetrendedKriging})
	a.ErrorAs(err, &verr)

	_, err = NewSession(obs, model, metric, SessionConfig{Method: SimpleKriging, Drift: []DriftFunc{LatDrift}})
	a.ErrorAs(err, &verr)

	_, err = NewSession(obs, model, metric, SessionConfig{Method: OrdinaryKriging, Trend: func(vec2d.T) float64 { return 0 }})
	a.ErrorAs(err, &verr)

	_, err = NewSession(obs, model, metric, SessionConfig{Method: "indicator"})
	a.ErrorAs(err, &verr)
}

func TestDuplicatePositionsSingular(t *testing.T) {
	a := assert.New(t)

	obs := []Observation{
		{Pos: vec2d.T{0, 0}, Value: 1},
		{Pos: vec2d.T{0, 0}, Value: 5},
		{Pos: vec2d.T{1, 1}, Value: 2},
	}
	metric := NewMetric(Planar)

	var nerr *NumericalError
	_, err := NewSession(obs, planarSpherical(), metric, SessionConfig{Method: SimpleKriging})
	a.ErrorAs(err, &nerr)

	_, err = NewSession(obs, planarSpherical(), metric, SessionConfig{Method: OrdinaryKriging})
	a.ErrorAs(err, &nerr)

	// nugget regularization is the caller's mitigation
	withNugget := &Variogram{Family: Spherical, Mode: Planar, Nugget: 0.1, Sill: 1.1, Range: 2}
	_, err = NewSession(obs, withNugget, metric, SessionConfig{Method: OrdinaryKriging})
	a.NoError(err)
}

func TestSessionConcurrentPredict(t *testing.T) {
	a := assert.New(t)

	s, err := NewSession(unitTriangle(), planarSpherical(), NewMetric(Planar), SessionConfig{Method: OrdinaryKriging})
	require.NoError(t, err)

	want, _, err := s.Predict(vec2d.T{0.25, 0.25})
	require.NoError(t, err)

	done := make(chan float64, 16)
	for i := 0; i < 16; i++ {
		go func() {
			est, _, _ := s.Predict(vec2d.T{0.25, 0.25})
			done <- est
		}()
	}
	for i := 0; i < 16; i++ {
		a.Equal(want, <-done)
	}
}
