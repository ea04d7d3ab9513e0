package amat

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Termination defines why a propagation stopped.
type Termination uint8

const (
	// NotTerminated is the termination of a propagation still running.
	NotTerminated Termination = iota
	// GroundImpact means the altitude reached the trap altitude of the planet.
	GroundImpact
	// SkipOut means the vehicle climbed above the atmospheric interface.
	SkipOut
	// TimeLimit means the requested duration elapsed.
	TimeLimit
	// IterationLimit means the solver iteration budget was exhausted.
	IterationLimit
	// WallClockLimit means the solver wall clock budget was exhausted.
	WallClockLimit
	// Cancelled means the context was done.
	Cancelled
	// Divergence means the state became non-finite.
	Divergence
)

func (t Termination) String() string {
	switch t {
	case NotTerminated:
		return "running"
	case GroundImpact:
		return "ground impact"
	case SkipOut:
		return "skip out"
	case TimeLimit:
		return "time limit"
	case IterationLimit:
		return "iteration limit"
	case WallClockLimit:
		return "wall clock limit"
	case Cancelled:
		return "cancelled"
	case Divergence:
		return "divergence"
	}
	panic("cannot stringify unknown termination")
}

// Trajectory is the recorded history of a propagation.
// It is append-only while propagating and read-only afterward.
type Trajectory struct {
	Name        string
	Vehicle     *Vehicle
	Epoch       time.Time
	States      []VehicleState
	Derived     []Derived
	Bank        []float64 // rad
	Termination Termination
	Err         error // terminal error, e.g. a *NumericalDivergenceError
}

func newTrajectory(name string, v *Vehicle, epoch time.Time, capacity int) *Trajectory {
	return &Trajectory{
		Name:    name,
		Vehicle: v,
		Epoch:   epoch,
		States:  make([]VehicleState, 0, capacity),
		Derived: make([]Derived, 0, capacity),
		Bank:    make([]float64, 0, capacity),
	}
}

func (t *Trajectory) append(s VehicleState, d Derived, σ float64) {
	t.States = append(t.States, s)
	t.Derived = append(t.Derived, d)
	t.Bank = append(t.Bank, σ)
}

// Len returns the number of records.
func (t *Trajectory) Len() int {
	return len(t.States)
}

// Final returns the last recorded state.
func (t *Trajectory) Final() VehicleState {
	return t.States[len(t.States)-1]
}

// DT returns the date of the i-th record.
func (t *Trajectory) DT(i int) time.Time {
	return t.Epoch.Add(time.Duration(t.States[i].T * float64(time.Second)))
}

func (t *Trajectory) series(f func(i int) float64) []float64 {
	out := make([]float64, len(t.States))
	for i := range out {
		out[i] = f(i)
	}
	return out
}

// Times returns the record times in seconds.
func (t *Trajectory) Times() []float64 {
	return t.series(func(i int) float64 { return t.States[i].T })
}

// TimesMinutes returns the record times in minutes.
func (t *Trajectory) TimesMinutes() []float64 {
	return t.series(func(i int) float64 { return t.States[i].T / 60 })
}

// AltitudesKm returns the altitudes in km.
func (t *Trajectory) AltitudesKm() []float64 {
	return t.series(func(i int) float64 { return t.States[i].Altitude / 1e3 })
}

// SpeedsKms returns the speeds in km/s.
func (t *Trajectory) SpeedsKms() []float64 {
	return t.series(func(i int) float64 { return t.States[i].Speed / 1e3 })
}

// FlightPathAnglesDeg returns the flight path angles in degrees.
func (t *Trajectory) FlightPathAnglesDeg() []float64 {
	return t.series(func(i int) float64 { return t.States[i].FlightPathAngle * rad2deg })
}

// DecelerationG returns the net deceleration in G0.
func (t *Trajectory) DecelerationG() []float64 {
	return t.series(func(i int) float64 { return t.Derived[i].DecelerationG })
}

// ConvectiveFlux returns the convective stagnation point heat flux in W/cm^2.
func (t *Trajectory) ConvectiveFlux() []float64 {
	return t.series(func(i int) float64 { return t.Derived[i].QConvective })
}

// RadiativeFlux returns the radiative stagnation point heat flux in W/cm^2.
func (t *Trajectory) RadiativeFlux() []float64 {
	return t.series(func(i int) float64 { return t.Derived[i].QRadiative })
}

// TotalFlux returns the total stagnation point heat flux in W/cm^2.
func (t *Trajectory) TotalFlux() []float64 {
	return t.series(func(i int) float64 { return t.Derived[i].QTotal })
}

// HeatLoad returns the stagnation point heat load in J/cm^2.
func (t *Trajectory) HeatLoad() []float64 {
	return t.series(func(i int) float64 { return t.States[i].HeatLoad })
}

// CrossRange returns the distance (m) of each record to the plane of the initial
// position and heading, measured on the surface and positive to the left.
func (t *Trajectory) CrossRange() []float64 {
	if len(t.States) == 0 {
		return nil
	}
	radius := t.Vehicle.Planet.Radius
	first := t.States[0]
	normal := unit(cross(first.Position(), first.Direction()))
	return t.series(func(i int) float64 {
		return radius * math.Asin(math.Max(-1, math.Min(1, dot(t.States[i].Position(), normal))))
	})
}

// Flagged returns the number of records with at least one flagged quantity.
func (t *Trajectory) Flagged() int {
	n := 0
	for _, d := range t.Derived {
		if d.Flags != 0 {
			n++
		}
	}
	return n
}

// MaxDeceleration returns the peak deceleration (G0) and where it occurred, ignoring non-finite values.
func (t *Trajectory) MaxDeceleration() (float64, VehicleState) {
	return t.peak(t.DecelerationG())
}

// PeakHeatFlux returns the peak total heat flux (W/cm^2) and where it occurred, ignoring non-finite values.
func (t *Trajectory) PeakHeatFlux() (float64, VehicleState) {
	return t.peak(t.TotalFlux())
}

func (t *Trajectory) peak(values []float64) (float64, VehicleState) {
	finite := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite[i] = math.Inf(-1)
		} else {
			finite[i] = v
		}
	}
	if len(finite) == 0 {
		return math.NaN(), VehicleState{}
	}
	idx := floats.MaxIdx(finite)
	if math.IsInf(finite[idx], -1) {
		return math.NaN(), VehicleState{}
	}
	return finite[idx], t.States[idx]
}

func (t *Trajectory) String() string {
	if len(t.States) == 0 {
		return fmt.Sprintf("%s: empty trajectory (%s)", t.Name, t.Termination)
	}
	return fmt.Sprintf("%s: %d records, %s, final %s", t.Name, len(t.States), t.Termination, t.Final())
}
