package amat

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ChristopherRabotin/ode"
	kitlog "github.com/go-kit/kit/log"

	"github.com/M2I-ui/AMAT-code/integrator"
)

const (
	// maxRecords caps the preallocation of a trajectory, not its length.
	maxRecords = 1 << 20
	// defaultLogEvery is the number of steps between two status logs.
	defaultLogEvery = 1000
)

// Scheme defines the integration scheme of a propagation.
type Scheme uint8

const (
	// DormandPrince is the embedded 5(4) scheme, sub-stepping to meet the tolerance.
	DormandPrince Scheme = iota
	// RK4 is the classical fixed step scheme, the tolerance is not used.
	RK4
)

func (s Scheme) String() string {
	switch s {
	case DormandPrince:
		return "dopri5"
	case RK4:
		return "rk4"
	}
	panic("cannot stringify unknown scheme")
}

// SchemeFromString returns the scheme from its name.
func SchemeFromString(name string) (Scheme, error) {
	switch strings.ToLower(name) {
	case "", "dopri5", "dormand-prince", "dormandprince":
		return DormandPrince, nil
	case "rk4":
		return RK4, nil
	}
	return DormandPrince, fmt.Errorf("unknown integration scheme '%s'", name)
}

// SolverParams configures the numerical integration.
type SolverParams struct {
	Tolerance     float64
	Scheme        Scheme
	MaxIterations uint64        // zero means no budget
	MaxWallTime   time.Duration // zero means no budget
}

// NewSolverParams returns the default Dormand-Prince parameters with the provided tolerance.
func NewSolverParams(tolerance float64) SolverParams {
	return SolverParams{Tolerance: tolerance, Scheme: DormandPrince}
}

// Validate returns a *ConfigurationError if the parameters cannot be used.
func (p SolverParams) Validate() error {
	if p.Tolerance < 0 || math.IsNaN(p.Tolerance) || math.IsInf(p.Tolerance, 0) {
		return &ConfigurationError{Field: "solver tolerance", Reason: fmt.Sprintf("must be non-negative and finite, got %g", p.Tolerance)}
	}
	if p.Scheme == DormandPrince && p.Tolerance == 0 {
		return &ConfigurationError{Field: "solver tolerance", Reason: "dopri5 requires a positive tolerance"}
	}
	if p.Scheme != DormandPrince && p.Scheme != RK4 {
		return &ConfigurationError{Field: "solver scheme", Reason: fmt.Sprintf("unknown scheme %d", p.Scheme)}
	}
	return nil
}

// Status is the state of an Entry.
type Status uint8

const (
	// Initialized means the configuration and the initial state are set.
	Initialized Status = iota
	// Propagating means steps are being applied.
	Propagating
	// Terminated means a termination condition was met.
	Terminated
	// Complete means the trajectory is finalized.
	Complete
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Propagating:
		return "propagating"
	case Terminated:
		return "terminated"
	case Complete:
		return "complete"
	}
	panic("cannot stringify unknown status")
}

// EntryOption configures an Entry.
type EntryOption func(*Entry)

// WithLogger sets the base logger of the entry, which adds its name to every line.
func WithLogger(logger kitlog.Logger) EntryOption {
	return func(e *Entry) { e.logger = logger }
}

// WithMetrics sets the metrics of the entry.
func WithMetrics(m *Metrics) EntryOption {
	return func(e *Entry) { e.metrics = m }
}

// WithHeating replaces the heat flux models of the planet.
func WithHeating(a Aerothermal) EntryOption {
	return func(e *Entry) { e.heating = a }
}

// WithEpoch sets the date of the initial state.
func WithEpoch(epoch time.Time) EntryOption {
	return func(e *Entry) { e.epoch = epoch.UTC() }
}

// WithName sets the name of the produced trajectories, defaults to the vehicle name.
func WithName(name string) EntryOption {
	return func(e *Entry) { e.name = name }
}

// WithLogEvery sets the number of steps between two status logs, zero disables them.
func WithLogEvery(n uint64) EntryOption {
	return func(e *Entry) { e.logEvery = n }
}

// Entry propagates the atmospheric entry of a vehicle. It implements ode.Integrable.
// An Entry is not safe for concurrent use; create one per propagation.
type Entry struct {
	Vehicle  *Vehicle
	solver   SolverParams
	init     VehicleState
	state    VehicleState
	heating  Aerothermal
	control  ControlProfile
	epoch    time.Time
	name     string
	duration float64 // s
	stepNo   uint64
	status   Status
	reason   Termination
	err      error
	warned   Flags
	traj     *Trajectory
	ctx      context.Context
	started  time.Time
	ceiling  float64 // m
	logger   kitlog.Logger
	metrics  *Metrics
	logEvery uint64
}

// NewEntry returns a new Entry after validating the vehicle, the initial state and the solver parameters.
func NewEntry(v *Vehicle, init VehicleState, solver SolverParams, opts ...EntryOption) (*Entry, error) {
	if v == nil {
		return nil, &ConfigurationError{Field: "vehicle", Reason: "may not be nil"}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := init.Validate(v.Planet); err != nil {
		return nil, err
	}
	if err := solver.Validate(); err != nil {
		return nil, err
	}
	e := &Entry{
		Vehicle:  v,
		solver:   solver,
		init:     init,
		state:    init,
		heating:  NewAerothermal(v.Planet),
		name:     v.Name,
		ceiling:  v.Planet.InterfaceAltitude(),
		logEvery: defaultLogEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	}
	e.logger = kitlog.With(e.logger, "entry", e.name)
	if e.init.Altitude > e.ceiling && e.init.FlightPathAngle > 0 {
		return nil, &ConfigurationError{Field: "initial state", Reason: fmt.Sprintf("climbing above the interface altitude of %.0f m", e.ceiling)}
	}
	return e, nil
}

// Status returns the status of the entry.
func (e *Entry) Status() Status {
	return e.status
}

// Termination returns why the last propagation stopped.
func (e *Entry) Termination() Termination {
	return e.reason
}

// State returns the current state.
func (e *Entry) State() VehicleState {
	return e.state
}

// LogStatus logs the current state of the propagation.
func (e *Entry) LogStatus() {
	e.logger.Log("level", "info", "subsys", "entry", "status", e.status, "step", e.stepNo, "state", e.state)
}

// Propagate is PropagateContext with a background context.
func (e *Entry) Propagate(duration, step time.Duration, control ControlProfile) (*Trajectory, error) {
	return e.PropagateContext(context.Background(), duration, step, control)
}

// PropagateContext propagates the initial state for at most duration, recording every step.
// A nil control flies a zero bank angle. Each call restarts from the initial state.
// The trajectory is returned even when the propagation fails, holding the records up to the failure.
func (e *Entry) PropagateContext(ctx context.Context, duration, step time.Duration, control ControlProfile) (*Trajectory, error) {
	if e.status == Propagating || e.status == Terminated {
		return nil, fmt.Errorf("entry %s is already %s", e.name, e.status)
	}
	if duration <= 0 {
		return nil, &ConfigurationError{Field: "duration", Reason: fmt.Sprintf("must be positive, got %s", duration)}
	}
	if step <= 0 || step > duration {
		return nil, &ConfigurationError{Field: "time step", Reason: fmt.Sprintf("must be in (0, %s], got %s", duration, step)}
	}
	if control == nil {
		control = ConstantBank(0)
	}
	e.control = control
	e.ctx = ctx
	e.state = e.init
	e.stepNo = 0
	e.reason = NotTerminated
	e.err = nil
	e.warned = 0
	e.duration = duration.Seconds()
	capacity := int(duration/step) + 2
	if capacity > maxRecords {
		capacity = maxRecords
	}
	e.traj = newTrajectory(e.name, e.Vehicle, e.epoch, capacity)
	e.record(e.init)

	var solver interface {
		Solve() (uint64, float64, error)
	}
	switch e.solver.Scheme {
	case RK4:
		solver = ode.NewRK4(e.init.T, step.Seconds(), e)
	default:
		dp, err := integrator.NewDormandPrince(e.init.T, step.Seconds(), e.solver.Tolerance, e)
		if err != nil {
			return nil, &ConfigurationError{Field: "solver", Reason: err.Error()}
		}
		solver = dp
	}

	e.status = Propagating
	e.started = time.Now()
	e.LogStatus()
	if _, _, serr := solver.Solve(); serr != nil && e.err == nil { // Blocking.
		e.reason = Divergence
		e.err = &NumericalDivergenceError{Time: e.state.T, Step: e.stepNo, State: e.state.vector(e.Vehicle.Planet.Radius), Cause: serr}
		e.logger.Log("level", "critical", "subsys", "entry", "err", serr)
	}
	e.status = Terminated
	e.finalize()
	return e.traj, e.err
}

func (e *Entry) finalize() {
	e.traj.Termination = e.reason
	e.traj.Err = e.err
	maxG, _ := e.traj.MaxDeceleration()
	peakQ, _ := e.traj.PeakHeatFlux()
	elapsed := time.Since(e.started)
	e.logger.Log("level", "notice", "subsys", "entry", "status", "finished", "termination", e.reason, "records", e.traj.Len(),
		"flagged", e.traj.Flagged(), "maxG", maxG, "peakFlux(W/cm2)", peakQ, "heatLoad(kJ/cm2)", e.state.HeatLoad/1e3, "wall", elapsed)
	e.LogStatus()
	e.metrics.observePropagation(e.reason, elapsed)
	e.status = Complete
}

// record evaluates the derived quantities of s, accumulates the heat load and appends it to the trajectory.
func (e *Entry) record(s VehicleState) {
	ρ, derr := e.Vehicle.Planet.Atmosphere.DensityAt(s.Altitude)
	σ := e.control.BankAngle(s.T, s)
	d, errs := e.heating.Evaluate(e.Vehicle, s, ρ, σ)
	if derr != nil {
		d.Flags |= DensityOutOfRange
		errs = append(errs, derr)
	}
	if n := e.traj.Len(); n > 0 {
		prev := e.traj.States[n-1]
		s.HeatLoad = prev.HeatLoad + HeatLoadStep(e.traj.Derived[n-1].QTotal, d.QTotal, s.T-prev.T)
	}
	d.HeatLoad = s.HeatLoad
	if newFlags := d.Flags &^ e.warned; newFlags != 0 {
		// Only the first occurrence of each flag is logged.
		e.warned |= newFlags
		e.logger.Log("level", "warning", "subsys", "aerothermal", "flagged", newFlags, "state", s, "err", fmt.Sprint(errs))
	}
	e.state = s
	e.traj.append(s, d, σ)
	e.metrics.observeStep(d.Flags)
	if e.logEvery > 0 && e.stepNo > 0 && e.stepNo%e.logEvery == 0 {
		e.logger.Log("level", "debug", "subsys", "entry", "step", e.stepNo, "state", s, "g", d.DecelerationG, "q(W/cm2)", d.QTotal)
	}
}

// GetState implements the ode.Integrable interface.
func (e *Entry) GetState() []float64 {
	return e.state.vector(e.Vehicle.Planet.Radius)
}

// SetState implements the ode.Integrable interface.
func (e *Entry) SetState(t float64, s []float64) {
	e.stepNo++
	if !allFinite(s) {
		e.reason = Divergence
		e.err = &NumericalDivergenceError{Time: t, Step: e.stepNo, State: append([]float64(nil), s...)}
		e.logger.Log("level", "critical", "subsys", "entry", "diverged", e.stepNo, "t", t, "last", e.state)
		return
	}
	next := e.state.withVector(t, e.Vehicle.Planet.Radius, s)
	if next.Speed <= 0 || math.Abs(next.FlightPathAngle) >= math.Pi/2 {
		// The equations of motion are singular there.
		e.reason = Divergence
		e.err = &NumericalDivergenceError{Time: t, Step: e.stepNo, State: append([]float64(nil), s...), Cause: ErrInvalidState}
		e.logger.Log("level", "critical", "subsys", "entry", "diverged", e.stepNo, "t", t, "speed", next.Speed, "fpa(deg)", next.FlightPathAngle*rad2deg, "last", e.state)
		return
	}
	e.record(next)
}

// Stop implements the ode.Integrable interface.
func (e *Entry) Stop(t float64) bool {
	if e.reason != NotTerminated {
		return true
	}
	planet := e.Vehicle.Planet
	switch {
	case e.ctx.Err() != nil:
		e.reason = Cancelled
		e.err = e.ctx.Err()
	case e.state.Altitude <= planet.TrapAltitude:
		e.reason = GroundImpact
	case e.state.Altitude > e.ceiling && e.state.FlightPathAngle > 0:
		e.reason = SkipOut
	case t-e.init.T >= e.duration*(1-1e-12):
		e.reason = TimeLimit
	case e.solver.MaxIterations > 0 && e.stepNo >= e.solver.MaxIterations:
		e.reason = IterationLimit
	case e.solver.MaxWallTime > 0 && time.Since(e.started) > e.solver.MaxWallTime:
		e.reason = WallClockLimit
	default:
		return false
	}
	e.logger.Log("level", "notice", "subsys", "entry", "terminated", e.reason, "t", t, "step", e.stepNo)
	return true
}

// Func implements the ode.Integrable interface with the non-rotating
// spherical planet equations of motion. The vector is [r θ φ v ψ γ s].
// The heading rate is singular at the poles and at a vertical flight path.
func (e *Entry) Func(t float64, f []float64) []float64 {
	planet := e.Vehicle.Planet
	r, φ, v, ψ, γ := f[0], f[2], f[3], f[4], f[5]
	ρ, _ := planet.Atmosphere.DensityAt(r - planet.Radius) // Out of range densities follow the atmosphere policy.
	σ := e.control.BankAngle(t, e.state.withVector(t, planet.Radius, f))
	g := planet.Gravity(r)
	drag := e.Vehicle.Drag(ρ, v)
	lift := e.Vehicle.Lift(ρ, v)
	sγ, cγ := math.Sincos(γ)
	sψ, cψ := math.Sincos(ψ)
	sσ, cσ := math.Sincos(σ)

	fDot := make([]float64, 7)
	fDot[0] = v * sγ
	fDot[1] = v * cγ * cψ / (r * math.Cos(φ))
	fDot[2] = v * cγ * sψ / r
	fDot[3] = -drag - g*sγ
	fDot[4] = lift*sσ/(v*cγ) - v*cγ*cψ*math.Tan(φ)/r
	fDot[5] = lift*cσ/v - (g/v-v/r)*cγ
	fDot[6] = planet.Radius * v * cγ / r
	return fDot
}
