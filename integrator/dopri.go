package integrator

import (
	"errors"
	"fmt"
	"math"

	"github.com/ChristopherRabotin/ode"
	"github.com/ready-steady/ode/dopri"
)

// DormandPrince drives an ode.Integrable with the adaptive Dormand-Prince 5(4)
// scheme of ready-steady/ode. The integrable is only handed states every
// StepSize; in between, the library subdivides the step as needed so that the
// local error stays below the tolerances.
type DormandPrince struct {
	X0         float64
	StepSize   float64
	Integrator ode.Integrable
	solver     *dopri.Integrator
	nonFinite  bool
}

// NewDormandPrince returns a new DormandPrince integrator using the same
// tolerance for the absolute and relative error.
func NewDormandPrince(x0, stepSize, tolerance float64, inte ode.Integrable) (*DormandPrince, error) {
	if stepSize <= 0 {
		return nil, errors.New("integrator: step size must be positive")
	}
	if tolerance <= 0 {
		return nil, errors.New("integrator: tolerance must be positive")
	}
	if inte == nil {
		return nil, errors.New("integrator: integrable may not be nil")
	}
	conf := dopri.DefaultConfig()
	conf.AbsError = tolerance
	conf.RelError = tolerance
	solver, err := dopri.New(conf)
	if err != nil {
		return nil, fmt.Errorf("integrator: %w", err)
	}
	return &DormandPrince{X0: x0, StepSize: stepSize, Integrator: inte, solver: solver}, nil
}

// Solve runs until the integrable requests a stop. It returns the number of
// caller steps, the final time and the error of the underlying library.
func (d *DormandPrince) Solve() (uint64, float64, error) {
	iterNum := uint64(0)
	xi := d.X0
	for !d.Integrator.Stop(xi) {
		state := d.Integrator.GetState()
		n := len(state)
		// Multiplying avoids accumulating the rounding of StepSize.
		next := d.X0 + float64(iterNum+1)*d.StepSize
		d.nonFinite = !finite(state)
		var values []float64
		if !d.nonFinite {
			var err error
			values, _, err = d.solver.Compute(d.derivatives, state, []float64{xi, next})
			if err != nil {
				return iterNum, xi, fmt.Errorf("integrator: at x=%g: %w", xi, err)
			}
		}
		iterNum++
		xi = next
		if d.nonFinite {
			// Hand a non-finite state back, it is up to the integrable to stop.
			nan := make([]float64, n)
			for i := range nan {
				nan[i] = math.NaN()
			}
			d.Integrator.SetState(xi, nan)
			continue
		}
		d.Integrator.SetState(xi, append([]float64(nil), values[len(values)-n:]...))
	}
	return iterNum, xi, nil
}

// derivatives adapts the ode.Integrable function to the dopri signature.
// Non-finite derivatives are zeroed so that the library terminates; the step
// is then reported as non-finite.
func (d *DormandPrince) derivatives(x float64, y, f []float64) {
	fDot := d.Integrator.Func(x, y)
	for i := range f {
		if math.IsNaN(fDot[i]) || math.IsInf(fDot[i], 0) {
			d.nonFinite = true
			f[i] = 0
			continue
		}
		f[i] = fDot[i]
	}
}

func finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
