package amat

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidState is the cause of a divergence on a finite state with a
// non-positive speed or a flight path angle of at least 90 degrees.
var ErrInvalidState = errors.New("speed or flight path angle out of bounds")

// DataFormatError reports malformed or missing atmosphere data.
type DataFormatError struct {
	Source string // file name or "reader"
	Line   int    // 1-based, zero when not tied to a line
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

// DomainRangeError reports a lookup or correlation evaluated outside its validated bounds.
// The accompanying value, if any, follows the documented fallback of the caller.
type DomainRangeError struct {
	Quantity string
	Value    float64
	Min, Max float64
}

func (e *DomainRangeError) Error() string {
	return fmt.Sprintf("%s: %g outside of [%g, %g]", e.Quantity, e.Value, e.Min, e.Max)
}

// NumericalDivergenceError reports a non-finite or physically invalid state during integration.
// Propagation stops; the partial trajectory is kept.
type NumericalDivergenceError struct {
	Time  float64   // s since epoch
	Step  uint64    // caller step at which the divergence was detected
	State []float64 // offending integration vector
	Cause error     // integrator error, if any
}

func (e *NumericalDivergenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("numerical divergence at t=%.3fs (step %d): %s", e.Time, e.Step, e.Cause)
	}
	return fmt.Sprintf("numerical divergence at t=%.3fs (step %d): state=%v", e.Time, e.Step, e.State)
}

func (e *NumericalDivergenceError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports inconsistent vehicle, state or solver parameters.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func allFinite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
