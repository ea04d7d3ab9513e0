package integrator

import (
	"math"
	"testing"

	"github.com/ChristopherRabotin/ode"
	"gonum.org/v1/gonum/floats/scalar"
)

// decay integrates dy/dt = -k*y which has the exact solution y0*exp(-k*t).
type decay struct {
	state []float64
	k     float64
	stop  float64
	times []float64
	evals int
}

func (d *decay) GetState() []float64 {
	return append([]float64(nil), d.state...)
}

func (d *decay) SetState(t float64, s []float64) {
	d.state = s
	d.times = append(d.times, t)
}

func (d *decay) Stop(t float64) bool {
	return t >= d.stop-1e-12
}

func (d *decay) Func(t float64, s []float64) []float64 {
	d.evals++
	return []float64{-d.k * s[0]}
}

// poisoned returns NaN derivatives after a given time.
type poisoned struct {
	decay
	after float64
}

func (p *poisoned) Func(t float64, s []float64) []float64 {
	if t > p.after {
		return []float64{math.NaN()}
	}
	return p.decay.Func(t, s)
}

var _ ode.Integrable = (*decay)(nil)

func TestDormandPrinceDecay(t *testing.T) {
	for _, tol := range []float64{1e-4, 1e-8} {
		d := &decay{state: []float64{1}, k: 3, stop: 5}
		dp, err := NewDormandPrince(0, 0.5, tol, d)
		if err != nil {
			t.Fatal(err)
		}
		iter, x, err := dp.Solve()
		if err != nil {
			t.Fatal(err)
		}
		if iter != 10 || !scalar.EqualWithinAbs(x, 5, 1e-12) {
			t.Fatalf("expected one SetState per caller step, got %d ending at %f", iter, x)
		}
		if len(d.times) != 10 || !scalar.EqualWithinAbs(d.times[9], 5, 1e-12) {
			t.Fatalf("unexpected output times %v", d.times)
		}
		for i := 1; i < len(d.times); i++ {
			if d.times[i] <= d.times[i-1] {
				t.Fatalf("time not increasing at %d", i)
			}
		}
		exp := math.Exp(-15)
		if !scalar.EqualWithinAbs(d.state[0], exp, 100*tol*exp+tol) {
			t.Fatalf("tol=%g: got %g, expected %g", tol, d.state[0], exp)
		}
		// k*h = 1.5 per caller step, which requires sub-stepping.
		if d.evals <= 7*int(iter) {
			t.Fatalf("tol=%g: expected sub-steps, got %d evaluations", tol, d.evals)
		}
	}
}

func TestDormandPrinceNonFinite(t *testing.T) {
	p := &poisoned{decay: decay{state: []float64{1}, k: 1, stop: 1}, after: 0.45}
	dp, err := NewDormandPrince(0, 0.1, 1e-6, p)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := dp.Solve(); err != nil {
		t.Fatalf("non-finite states are handed back to the integrable: %s", err)
	}
	if !math.IsNaN(p.state[0]) {
		t.Fatal("expected NaN state")
	}
	if len(p.times) < 5 {
		t.Fatalf("finite steps were not reported: %v", p.times)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := NewDormandPrince(0, 0, 1e-6, &decay{}); err == nil {
		t.Fatal("zero step accepted")
	}
	if _, err := NewDormandPrince(0, 1, 1e-6, nil); err == nil {
		t.Fatal("nil integrable accepted")
	}
	if _, err := NewDormandPrince(0, 1, 0, &decay{}); err == nil {
		t.Fatal("zero tolerance accepted")
	}
}
