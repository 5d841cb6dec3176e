package geostat

import (
	"gopkg.in/yaml.v3"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// Config is the explicit configuration object for one analysis run:
// distance mode, binning policy, model family, the nugget-fixed flag,
// the kriging variant and its drift or trend setup. The struct is
// passed by value at call time; the yaml tags only exist so callers
// can keep analysis settings in files.
type Config struct {
	DistanceMode DistanceMode `yaml:"distanceMode"`
	// EarthRadius overrides the sphere radius for great-circle
	// distances; zero keeps the default.
	EarthRadius float64 `yaml:"earthRadius,omitempty"`

	// MaxDist caps the pair separation entering the empirical
	// variogram. Required unless explicit BinEdges are given.
	MaxDist float64 `yaml:"maxDist,omitempty"`
	// BinEdges overrides the standard linear binning.
	BinEdges []float64 `yaml:"binEdges,omitempty"`
	// Bins is the standard bin count; zero picks a default from the
	// pair count.
	Bins int `yaml:"bins,omitempty"`

	Model     ModelType `yaml:"model"`
	FixNugget bool      `yaml:"fixNugget"`
	// MaxFitIterations bounds the variogram fit; zero keeps the
	// default budget.
	MaxFitIterations int `yaml:"maxFitIterations,omitempty"`

	Method Method  `yaml:"method"`
	Mean   float64 `yaml:"mean,omitempty"`

	// ThinCellSize, when both components are positive, merges
	// near-duplicate stations before kriging.
	ThinCellSize []float64 `yaml:"thinCellSize,omitempty,flow"`
	// MaskHull blanks grid nodes outside the observation hull.
	MaskHull bool `yaml:"maskHull,omitempty"`
	// Variance also evaluates the kriging variance grid.
	Variance bool `yaml:"variance,omitempty"`
	Workers  int  `yaml:"workers,omitempty"`

	// Drift and Trend are runtime-only: the drift basis for universal
	// kriging and the external trend for detrended kriging.
	Drift []DriftFunc `yaml:"-"`
	Trend TrendFunc   `yaml:"-"`
}

// ConfigFromYAML decodes a Config with defaults of a planar ordinary
// kriging run under a spherical model.
func ConfigFromYAML(data []byte) (Config, error) {
	cfg := Config{
		DistanceMode: Planar,
		Model:        Spherical,
		Method:       OrdinaryKriging,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errValidation("config: %v", err)
	}
	return cfg, nil
}

// Result bundles everything one analysis run produces: the empirical
// curve, the fitted model with its diagnostics, the session (reusable
// for further point queries or mean-only grids) and the interpolated
// field.
type Result struct {
	Bins    []Bin
	Model   *Variogram
	Report  FitReport
	Session *Session
	Field   *Field
}

// Analysis drives the full estimate-fit-krige pipeline over one set of
// observations.
type Analysis struct {
	cfg Config
	obs []Observation
}

func NewAnalysis(cfg Config, obs []Observation) *Analysis {
	return &Analysis{cfg: cfg, obs: obs}
}

// Metric returns the distance metric the analysis runs under.
func (a *Analysis) Metric() Metric {
	m := NewMetric(a.cfg.DistanceMode)
	if a.cfg.EarthRadius > 0 {
		m.Radius = a.cfg.EarthRadius
	}
	return m
}

// Run estimates the empirical variogram, fits the model, factorizes
// the kriging system and evaluates it over the outer-product grid of
// the two axes. Every failure surfaces as the typed error of the stage
// that produced it.
func (a *Analysis) Run(axis1, axis2 []float64) (*Result, error) {
	metric := a.Metric()

	obs := a.obs
	if len(a.cfg.ThinCellSize) == 2 {
		filtered, err := NewCellFilter(vec2d.T{a.cfg.ThinCellSize[0], a.cfg.ThinCellSize[1]}).Filter(obs)
		if err != nil {
			return nil, err
		}
		obs = filtered
	}

	edges := a.cfg.BinEdges
	if len(edges) == 0 {
		var err error
		edges, err = StandardBins(obs, a.cfg.MaxDist, a.cfg.Bins)
		if err != nil {
			return nil, err
		}
	}

	bins, err := EstimateVariogram(obs, metric, edges)
	if err != nil {
		return nil, err
	}

	model, report, err := FitVariogram(a.cfg.Model, metric, bins, FitOptions{
		FixNugget:     a.cfg.FixNugget,
		MaxIterations: a.cfg.MaxFitIterations,
	})
	if err != nil {
		return nil, err
	}

	session, err := NewSession(obs, model, metric, SessionConfig{
		Method: a.cfg.Method,
		Mean:   a.cfg.Mean,
		Drift:  a.cfg.Drift,
		Trend:  a.cfg.Trend,
	})
	if err != nil {
		return nil, err
	}

	opts := GridOptions{
		Variance: a.cfg.Variance,
		Workers:  a.cfg.Workers,
	}
	if a.cfg.MaskHull {
		opts.Mask = HullOf(obs)
	}
	field, err := session.EvaluateGrid(axis1, axis2, opts)
	if err != nil {
		return nil, err
	}

	return &Result{
		Bins:    bins,
		Model:   model,
		Report:  *report,
		Session: session,
		Field:   field,
	}, nil
}
