package geostat

import (
	"fmt"
)

// ValidationError reports input rejected before any computation:
// mismatched lengths, non-monotonic bin edges, invalid parameters.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "geostat: invalid input: " + e.Reason
}

func errValidation(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// FitError reports a failed model or trend fit, with the best
// available diagnostics. It is never converted into a silent default.
type FitError struct {
	Op         string
	Iterations int
	Residual   float64
	Reason     string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("geostat: %s failed: %s (iterations=%d residual=%g)",
		e.Op, e.Reason, e.Iterations, e.Residual)
}

// NumericalError reports a singular or severely ill-conditioned
// kriging system at factorization time. The caller may retry with
// nugget regularization; this package never regularizes implicitly.
type NumericalError struct {
	Op     string
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("geostat: %s: %s", e.Op, e.Reason)
}
