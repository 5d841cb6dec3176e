package geostat

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// SessionConfig selects the kriging variant and its drift or trend
// configuration. The three drift flavours form a closed set: none
// (simple/ordinary), a list of basis functions (universal), or an
// externally supplied trend (detrended).
type SessionConfig struct {
	Method Method
	// Mean is the known field mean for simple kriging.
	Mean float64
	// Drift are the basis functions of the universal kriging drift
	// subspace.
	Drift []DriftFunc
	// Trend is the external trend removed before and restored after
	// detrended kriging.
	Trend TrendFunc
}

// Session holds one factorized kriging system: the conditioning
// observations, the fitted model, the variant configuration and the
// factorization itself. Building it costs O(n^3); every later query is
// a single O(n^2) solve against the stored factors. A Session is
// immutable after construction and safe for concurrent Predict and
// Mean calls.
type Session struct {
	obs    []Observation
	model  *Variogram
	metric Metric
	cfg    SessionConfig

	n    int
	size int

	// constraint rows of the bordered system: the unbiasedness ones
	// row first, then one row per drift basis function.
	constraints []DriftFunc

	chol   *mat.Cholesky // simple, detrended
	lu     *mat.LU       // ordinary, universal
	resid  []float64     // values minus mean or trend
	values []float64
}

// NewSession validates the configuration, assembles the covariance
// system for the chosen variant and factorizes it once. A singular or
// severely ill-conditioned system (near-duplicate positions at zero
// nugget, degenerate drift) surfaces as a NumericalError; the caller's
// mitigation is refitting with a nugget, not silent regularization
// here.
func NewSession(obs []Observation, model *Variogram, metric Metric, cfg SessionConfig) (*Session, error) {
	if len(obs) < 2 {
		return nil, errValidation("kriging needs at least 2 observations, got %d", len(obs))
	}
	if model == nil {
		return nil, errValidation("nil variogram model")
	}
	if model.Range <= 0 || model.Nugget < 0 || model.Sill < model.Nugget {
		return nil, errValidation("variogram parameters out of bounds: nugget=%g sill=%g range=%g",
			model.Nugget, model.Sill, model.Range)
	}
	if model.Mode != metric.Mode {
		return nil, errValidation("model fitted under %q distances but metric is %q", model.Mode, metric.Mode)
	}
	if metric.Mode == GreatCircle {
		if metric.Radius <= 0 {
			return nil, errValidation("great-circle metric needs a positive radius, got %g", metric.Radius)
		}
		if math.Abs(model.Radius-metric.Radius) > 1e-9 {
			return nil, errValidation("model radius %g does not match metric radius %g", model.Radius, metric.Radius)
		}
	}

	s := &Session{
		obs:    obs,
		model:  model,
		metric: metric,
		cfg:    cfg,
		n:      len(obs),
		values: Values(obs),
	}

	switch cfg.Method {
	case SimpleKriging, DetrendedKriging:
		if cfg.Method == DetrendedKriging && cfg.Trend == nil {
			return nil, errValidation("detrended kriging needs a trend function")
		}
		if len(cfg.Drift) > 0 {
			return nil, errValidation("drift functions are only valid for universal kriging")
		}
		if err := s.factorizeUnconstrained(); err != nil {
			return nil, err
		}
	case OrdinaryKriging, UniversalKriging:
		if cfg.Method == UniversalKriging && len(cfg.Drift) == 0 {
			return nil, errValidation("universal kriging needs at least one drift function")
		}
		if cfg.Method == OrdinaryKriging && len(cfg.Drift) > 0 {
			return nil, errValidation("drift functions are only valid for universal kriging")
		}
		if cfg.Trend != nil {
			return nil, errValidation("an external trend is only valid for detrended kriging")
		}
		if err := s.factorizeBordered(); err != nil {
			return nil, err
		}
	default:
		return nil, errValidation("unknown kriging method %q", cfg.Method)
	}
	return s, nil
}

// Model returns the variogram the session kriges with.
func (s *Session) Model() *Variogram { return s.model }

// Size returns the number of conditioning observations.
func (s *Session) Size() int { return s.n }

// covariance fills the n x n conditioning block. The diagonal is
// Covariance(0), nugget included, which keeps the block strictly
// positive definite whenever the nugget is positive or positions are
// distinct.
func (s *Session) covarianceAt(i, j int) float64 {
	if i == j {
		return s.model.Covariance(0)
	}
	return s.model.Covariance(s.metric.Distance(s.obs[i].Pos, s.obs[j].Pos))
}

func (s *Session) factorizeUnconstrained() error {
	s.size = s.n
	c := mat.NewSymDense(s.n, nil)
	for i := 0; i < s.n; i++ {
		for j := i; j < s.n; j++ {
			c.SetSym(i, j, s.covarianceAt(i, j))
		}
	}
	s.chol = &mat.Cholesky{}
	if ok := s.chol.Factorize(c); !ok {
		return &NumericalError{
			Op:     "kriging factorization",
			Reason: "covariance matrix is not positive definite; check for duplicate positions or refit with a nugget",
		}
	}

	s.resid = make([]float64, s.n)
	for i, o := range s.obs {
		base := s.cfg.Mean
		if s.cfg.Method == DetrendedKriging {
			base = s.cfg.Trend(o.Pos)
		}
		s.resid[i] = o.Value - base
	}
	return nil
}

func (s *Session) factorizeBordered() error {
	s.constraints = append([]DriftFunc{func(vec2d.T) float64 { return 1 }}, s.cfg.Drift...)
	s.size = s.n + len(s.constraints)

	a := mat.NewDense(s.size, s.size, nil)
	for i := 0; i < s.n; i++ {
		for j := 0; j < s.n; j++ {
			a.Set(i, j, s.covarianceAt(i, j))
		}
		for k, f := range s.constraints {
			v := f(s.obs[i].Pos)
			a.Set(i, s.n+k, v)
			a.Set(s.n+k, i, v)
		}
	}

	s.lu = &mat.LU{}
	s.lu.Factorize(a)

	// probe solve so singularity and severe ill-conditioning surface
	// at factorization time rather than mid-grid
	probe := mat.NewVecDense(s.size, nil)
	probe.SetVec(0, 1)
	if err := s.lu.SolveVecTo(mat.NewVecDense(s.size, nil), false, probe); err != nil {
		return &NumericalError{
			Op:     "kriging factorization",
			Reason: "bordered system is singular or ill-conditioned: " + err.Error(),
		}
	}
	return nil
}

// rhs assembles the right-hand side for a query position: the
// covariance vector against the conditioning points (zeroed in
// mean-only evaluation) followed by the constraint values at the
// query.
func (s *Session) rhs(p vec2d.T, meanOnly bool) []float64 {
	b := make([]float64, s.size)
	if !meanOnly {
		for i := 0; i < s.n; i++ {
			b[i] = s.model.Covariance(s.metric.Distance(p, s.obs[i].Pos))
		}
	}
	for k, f := range s.constraints {
		b[s.n+k] = f(p)
	}
	return b
}

func (s *Session) solve(b []float64) ([]float64, error) {
	x := mat.NewVecDense(len(b), nil)
	var err error
	if s.chol != nil {
		err = s.chol.SolveVecTo(x, mat.NewVecDense(len(b), b))
	} else {
		err = s.lu.SolveVecTo(x, false, mat.NewVecDense(len(b), b))
	}
	if err != nil {
		return nil, &NumericalError{Op: "kriging solve", Reason: err.Error()}
	}
	return x.RawVector().Data, nil
}

// Predict evaluates the kriging predictor and the kriging variance at
// an arbitrary query position, reusing the stored factorization.
func (s *Session) Predict(p vec2d.T) (est, variance float64, err error) {
	b := s.rhs(p, false)
	x, err := s.solve(b)
	if err != nil {
		return 0, 0, err
	}

	switch s.cfg.Method {
	case SimpleKriging:
		est = s.cfg.Mean + floats.Dot(x, s.resid)
	case DetrendedKriging:
		est = s.cfg.Trend(p) + floats.Dot(x, s.resid)
	default:
		est = floats.Dot(x[:s.n], s.values)
	}

	// sill + nugget convention is folded into Covariance(0); the
	// Lagrange terms ride along in the bordered part of b and x
	variance = s.model.Covariance(0) - floats.Dot(b, x)
	if variance < 0 {
		variance = 0
	}
	return est, variance, nil
}

// Mean evaluates only the unconditioned mean, trend or drift surface
// at a query position: the configured mean for simple kriging, the
// external trend for detrended kriging, and the generalized
// least-squares drift implied by the bordered system for ordinary and
// universal kriging. No refactorization takes place; the same stored
// factors serve both Mean and Predict.
func (s *Session) Mean(p vec2d.T) (float64, error) {
	switch s.cfg.Method {
	case SimpleKriging:
		return s.cfg.Mean, nil
	case DetrendedKriging:
		return s.cfg.Trend(p), nil
	}
	x, err := s.solve(s.rhs(p, true))
	if err != nil {
		return 0, err
	}
	return floats.Dot(x[:s.n], s.values), nil
}
