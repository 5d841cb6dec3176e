package geostat

import (
	"math"
	"runtime"
	"sync"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

// Field is a structured grid produced by evaluating a session over the
// outer product of two coordinate axes. Values is row-major over
// (Axis1, Axis2); Variance has the same shape when requested. Grid
// nodes masked away hold NaN.
type Field struct {
	Axis1    []float64
	Axis2    []float64
	Values   []float64
	Variance []float64
}

// At returns the field value at row i of Axis1 and column j of Axis2.
func (f *Field) At(i, j int) float64 {
	return f.Values[i*len(f.Axis2)+j]
}

// VarianceAt returns the kriging variance at a grid node. It panics if
// the field was evaluated without variances.
func (f *Field) VarianceAt(i, j int) float64 {
	return f.Variance[i*len(f.Axis2)+j]
}

// ProgressFunc reports grid evaluation progress in completed rows.
type ProgressFunc func(done, total int)

// GridOptions controls one grid evaluation. The mode flags select
// read-only operations on the session; switching modes never rebuilds
// or refactorizes the system.
type GridOptions struct {
	// Variance also fills the kriging variance grid.
	Variance bool
	// MeanOnly evaluates just the mean, trend or drift surface,
	// skipping the residual-weighted term.
	MeanOnly bool
	// Mask marks grid nodes outside the hull as NaN instead of
	// extrapolating.
	Mask *Hull
	// Workers bounds the parallel row fan-out; zero means NumCPU.
	Workers int
	// Progress, when set, is called after each completed row.
	Progress ProgressFunc
}

// EvaluateGrid drives the session predictor over every (Axis1, Axis2)
// pair. Each grid node depends only on the immutable factorization and
// its own query position, so rows are fanned out across workers with
// no locking on the session.
func (s *Session) EvaluateGrid(axis1, axis2 []float64, opts GridOptions) (*Field, error) {
	if err := checkAxis(axis1, "axis1"); err != nil {
		return nil, err
	}
	if err := checkAxis(axis2, "axis2"); err != nil {
		return nil, err
	}

	field := &Field{
		Axis1:  append([]float64(nil), axis1...),
		Axis2:  append([]float64(nil), axis2...),
		Values: make([]float64, len(axis1)*len(axis2)),
	}
	if opts.Variance && !opts.MeanOnly {
		field.Variance = make([]float64, len(field.Values))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(axis1) {
		workers = len(axis1)
	}

	rows := make(chan int)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	var mu sync.Mutex
	done := 0
	rowDone := func() {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		done++
		opts.Progress(done, len(axis1))
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				if err := s.evaluateRow(field, i, opts); err != nil {
					errs <- err
					return
				}
				rowDone()
			}
		}()
	}
	go func() {
		for i := range axis1 {
			rows <- i
		}
		close(rows)
	}()
	wg.Wait()
	for range rows {
		// drain so the producer can finish when a worker bailed early
	}

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	return field, nil
}

func (s *Session) evaluateRow(field *Field, i int, opts GridOptions) error {
	for j, c := range field.Axis2 {
		idx := i*len(field.Axis2) + j
		p := vec2d.T{field.Axis1[i], c}

		if opts.Mask != nil && !opts.Mask.Contains(p) {
			field.Values[idx] = math.NaN()
			if field.Variance != nil {
				field.Variance[idx] = math.NaN()
			}
			continue
		}

		if opts.MeanOnly {
			m, err := s.Mean(p)
			if err != nil {
				return err
			}
			field.Values[idx] = m
			continue
		}

		est, variance, err := s.Predict(p)
		if err != nil {
			return err
		}
		field.Values[idx] = est
		if field.Variance != nil {
			field.Variance[idx] = variance
		}
	}
	return nil
}

func checkAxis(axis []float64, name string) error {
	if len(axis) == 0 {
		return errValidation("%s is empty", name)
	}
	for i := 1; i < len(axis); i++ {
		if !(axis[i] > axis[i-1]) {
			return errValidation("%s must be strictly increasing at index %d", name, i)
		}
	}
	return nil
}
