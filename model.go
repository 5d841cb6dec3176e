package geostat

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Variogram is a fitted parametric semivariance model. Sill is the
// total plateau including the nugget; Range is the length scale in the
// same physical units the metric produces. In great-circle mode the
// model evaluates the Yadrenko variant of its family: the planar shape
// applied to the chordal distance 2R*sin(zeta/2) of the central angle
// zeta, which keeps the covariance positive definite on the sphere.
// Applying the planar shape to the geodesic distance directly does
// not.
type Variogram struct {
	Family ModelType    `json:"family"`
	Mode   DistanceMode `json:"mode"`
	Radius float64      `json:"radius,omitempty"`
	Nugget float64      `json:"nugget"`
	Sill   float64      `json:"sill"`
	Range  float64      `json:"range"`
}

// shape is the normalized structured component, 0 at the origin and 1
// at the plateau. x is lag over range.
func (v *Variogram) shape(x float64) float64 {
	switch v.Family {
	case Exponential:
		return 1 - math.Exp(-3*x)
	case Gaussian:
		return 1 - math.Exp(-3*pow2(x))
	default: // spherical
		if x >= 1 {
			return 1
		}
		return 1.5*x - 0.5*pow3(x)
	}
}

// lag maps a physical separation to the argument of the planar shape
// function: identity in planar mode, chordal distance in great-circle
// mode (the Yadrenko reinterpretation).
func (v *Variogram) lag(h float64) float64 {
	if v.Mode == GreatCircle {
		zeta := h / v.Radius
		return 2 * v.Radius * math.Sin(zeta/2)
	}
	return h
}

// Semivariance evaluates the fitted model at separation h. The value
// is Nugget at h = 0 and approaches Sill at the plateau.
func (v *Variogram) Semivariance(h float64) float64 {
	if h <= 0 {
		return v.Nugget
	}
	return v.Nugget + (v.Sill-v.Nugget)*v.shape(v.lag(h)/v.Range)
}

// Covariance is the model covariance at separation h. At h = 0 it is
// the full Sill, nugget included; that diagonal convention keeps the
// kriging matrix positive definite and the predictor exact.
func (v *Variogram) Covariance(h float64) float64 {
	if h <= 0 {
		return v.Sill
	}
	return v.Sill - v.Semivariance(h)
}

// FitOptions controls the nonlinear least-squares variogram fit.
type FitOptions struct {
	// FixNugget pins the nugget to zero instead of fitting it.
	FixNugget bool
	// MaxIterations bounds the solver; zero means 1000.
	MaxIterations int
}

// FitReport carries fit diagnostics for the caller.
type FitReport struct {
	Iterations int
	Residual   float64
}

// FitVariogram fits a model of the given family to the non-degenerate
// bins of an empirical variogram by iterative nonlinear least squares
// (Nelder-Mead on square-transformed parameters, which enforces
// nugget >= 0, sill >= nugget and range > 0 without explicit bound
// handling). The initial guess is sill = max empirical semivariance
// and range = midpoint of the distance span. Failure to converge
// within the iteration budget, or a non-finite residual, is returned
// as a FitError, never papered over with defaults.
func FitVariogram(family ModelType, metric Metric, bins []Bin, opts FitOptions) (*Variogram, *FitReport, error) {
	switch family {
	case Spherical, Exponential, Gaussian:
	default:
		return nil, nil, errValidation("unknown model family %q", family)
	}

	if metric.Mode == GreatCircle && metric.Radius <= 0 {
		return nil, nil, errValidation("great-circle metric needs a positive radius, got %g", metric.Radius)
	}

	dist, gamma := Curve(bins)
	nParams := 3
	if opts.FixNugget {
		nParams = 2
	}
	if len(dist) < nParams {
		return nil, nil, errValidation("fit needs at least %d non-degenerate bins, got %d", nParams, len(dist))
	}

	maxGamma := gamma[0]
	minGamma := gamma[0]
	for _, g := range gamma {
		maxGamma = math.Max(maxGamma, g)
		minGamma = math.Min(minGamma, g)
	}
	if maxGamma <= 0 {
		return nil, nil, &FitError{Op: "variogram fit", Reason: "empirical semivariance is identically zero"}
	}

	model := &Variogram{Family: family, Mode: metric.Mode, Radius: metric.Radius}

	// params: partial sill, range, nugget; each stored as its square
	// root so the optimizer roams an unconstrained space.
	eval := func(x []float64) (psill, rng, nugget float64) {
		psill = pow2(x[0])
		rng = math.Max(pow2(x[1]), 1e-12)
		if !opts.FixNugget {
			nugget = pow2(x[2])
		}
		return psill, rng, nugget
	}
	sse := func(x []float64) float64 {
		psill, rng, nugget := eval(x)
		m := *model
		m.Nugget = nugget
		m.Sill = nugget + psill
		m.Range = rng
		var sum float64
		for i := range dist {
			sum += pow2(m.Semivariance(dist[i]) - gamma[i])
		}
		return sum
	}

	nugget0 := 0.0
	if !opts.FixNugget {
		nugget0 = math.Max(minGamma, 0)
	}
	psill0 := math.Max(maxGamma-nugget0, maxGamma/10)
	range0 := (dist[0] + dist[len(dist)-1]) / 2

	x0 := []float64{math.Sqrt(psill0), math.Sqrt(range0)}
	if !opts.FixNugget {
		x0 = append(x0, math.Sqrt(nugget0))
	}

	budget := opts.MaxIterations
	if budget <= 0 {
		budget = 1000
	}
	settings := &optimize.Settings{MajorIterations: budget}
	result, err := optimize.Minimize(optimize.Problem{Func: sse}, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, nil, &FitError{Op: "variogram fit", Reason: err.Error()}
	}
	report := &FitReport{Iterations: result.Stats.MajorIterations, Residual: result.F}
	if !isFinite(result.F) {
		report.Residual = math.NaN()
		return nil, report, &FitError{Op: "variogram fit", Iterations: report.Iterations, Residual: report.Residual, Reason: "residual is not finite"}
	}
	if result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit {
		return nil, report, &FitError{Op: "variogram fit", Iterations: report.Iterations, Residual: report.Residual, Reason: "iteration budget exhausted before convergence"}
	}

	psill, rng, nugget := eval(result.X)
	model.Nugget = nugget
	model.Sill = nugget + psill
	model.Range = rng
	return model, report, nil
}
