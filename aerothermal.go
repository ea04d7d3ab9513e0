package amat

import (
	"math"
	"strings"
)

// Flags marks derived quantities which were evaluated outside of their validated domain.
type Flags uint8

const (
	// DensityOutOfRange is set when the altitude is outside of the atmosphere table.
	DensityOutOfRange Flags = 1 << iota
	// ConvectiveOutOfRange is set when the convective correlation returned NaN.
	ConvectiveOutOfRange
	// RadiativeOutOfRange is set when the radiative correlation returned NaN.
	RadiativeOutOfRange
)

// Has returns whether all the provided flags are set.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	if f.Has(DensityOutOfRange) {
		names = append(names, "density")
	}
	if f.Has(ConvectiveOutOfRange) {
		names = append(names, "convective")
	}
	if f.Has(RadiativeOutOfRange) {
		names = append(names, "radiative")
	}
	return strings.Join(names, "|")
}

// Derived stores the aerothermal quantities of one recorded state.
type Derived struct {
	Density       float64 // kg/m^3
	DecelerationG float64 // in G0
	QConvective   float64 // W/cm^2
	QRadiative    float64 // W/cm^2
	QTotal        float64 // W/cm^2
	HeatLoad      float64 // J/cm^2
	Flags         Flags
}

// Aerothermal computes the stagnation point heating and the deceleration of a vehicle.
type Aerothermal struct {
	Convective HeatFluxModel
	Radiative  HeatFluxModel
	G0         float64 // m/s^2
}

// NewAerothermal returns the default models of the provided planet.
func NewAerothermal(p Planet) Aerothermal {
	a := Aerothermal{Convective: p.Convective(), Radiative: p.Radiative, G0: p.G0}
	if a.Radiative == nil {
		a.Radiative = NoRadiation{}
	}
	if a.G0 == 0 {
		a.G0 = standardG0
	}
	return a
}

// Evaluate returns the derived quantities (without heat load) at state s, density ρ and bank σ.
// The errors returned by the correlations are also returned so they may be logged.
func (a Aerothermal) Evaluate(v *Vehicle, s VehicleState, ρ, σ float64) (Derived, []error) {
	var errs []error
	d := Derived{Density: ρ}
	drag := v.Drag(ρ, s.Speed)
	lift := v.Lift(ρ, s.Speed)
	sσ, cσ := math.Sincos(σ)
	// Drag along the velocity, lift rotated by the bank angle about it.
	d.DecelerationG = norm([]float64{drag, lift * cσ, lift * sσ}) / a.G0

	var err error
	if d.QConvective, err = a.Convective.StagnationFlux(ρ, s.Speed, v.NoseRadius); err != nil {
		d.Flags |= ConvectiveOutOfRange
		errs = append(errs, err)
	}
	if d.QRadiative, err = a.Radiative.StagnationFlux(ρ, s.Speed, v.NoseRadius); err != nil {
		d.Flags |= RadiativeOutOfRange
		errs = append(errs, err)
	}
	d.QTotal = d.QConvective + d.QRadiative
	return d, errs
}

// HeatLoadStep returns the heat load (J/cm^2) gained between two records dt seconds apart,
// with the trapezoidal rule. Flagged fluxes contribute nothing.
func HeatLoadStep(prev, curr, dt float64) float64 {
	return 0.5 * (finiteOrZero(prev) + finiteOrZero(curr)) * dt
}

// CumulativeHeatLoad integrates the flux history (W/cm^2 at times in s) starting at initial (J/cm^2).
// The result is non-decreasing whenever the fluxes are non-negative.
func CumulativeHeatLoad(times, flux []float64, initial float64) []float64 {
	load := make([]float64, len(times))
	if len(times) == 0 {
		return load
	}
	load[0] = initial
	for i := 1; i < len(times); i++ {
		load[i] = load[i-1] + HeatLoadStep(flux[i-1], flux[i], times[i]-times[i-1])
	}
	return load
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
