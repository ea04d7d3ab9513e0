package amat

import (
	"fmt"
	"math"
)

// Vehicle defines an entry vehicle flying in a planet atmosphere.
// It is immutable for the duration of a propagation.
type Vehicle struct {
	Name       string
	Mass       float64 // kg
	Beta       float64 // ballistic coefficient, kg/m^2
	LD         float64 // lift-to-drag ratio
	Area       float64 // reference area, m^2
	AoA        float64 // angle of attack, rad; informational, the aerodynamics follow Beta and LD
	NoseRadius float64 // m
	Planet     Planet
}

// NewVehicle returns a new vehicle, the angle of attack is in degrees.
// The planet must carry an atmosphere.
func NewVehicle(name string, mass, beta, ld, area, aoaDeg, noseRadius float64, planet Planet) (*Vehicle, error) {
	v := &Vehicle{Name: name, Mass: mass, Beta: beta, LD: ld, Area: area, AoA: aoaDeg * deg2rad, NoseRadius: noseRadius, Planet: planet}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate returns a *ConfigurationError if the vehicle is inconsistent.
func (v *Vehicle) Validate() error {
	checks := []struct {
		field string
		value float64
	}{{"mass", v.Mass}, {"ballistic coefficient", v.Beta}, {"reference area", v.Area}, {"nose radius", v.NoseRadius}}
	for _, c := range checks {
		if !(c.value > 0) || math.IsInf(c.value, 0) {
			return &ConfigurationError{Field: c.field, Reason: fmt.Sprintf("must be positive and finite, got %g", c.value)}
		}
	}
	if v.LD < 0 || !allFinite([]float64{v.LD, v.AoA}) {
		return &ConfigurationError{Field: "lift-to-drag ratio", Reason: fmt.Sprintf("must be non-negative and finite, got %g", v.LD)}
	}
	if v.Planet.Atmosphere == nil {
		return &ConfigurationError{Field: "planet", Reason: fmt.Sprintf("%s has no atmosphere loaded", v.Planet.Name)}
	}
	if !(v.Planet.Radius > 0) || !(v.Planet.GM() > 0) {
		return &ConfigurationError{Field: "planet", Reason: fmt.Sprintf("%s has no radius or gravitational parameter", v.Planet.Name)}
	}
	return nil
}

// CD returns the drag coefficient implied by the ballistic coefficient.
func (v *Vehicle) CD() float64 {
	return v.Mass / (v.Beta * v.Area)
}

// Drag returns the drag acceleration (m/s^2) at density ρ and speed s.
func (v *Vehicle) Drag(ρ, s float64) float64 {
	return ρ * s * s / (2 * v.Beta)
}

// Lift returns the lift acceleration (m/s^2) at density ρ and speed s.
func (v *Vehicle) Lift(ρ, s float64) float64 {
	return v.LD * v.Drag(ρ, s)
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("%s (m=%.1f kg, β=%.1f kg/m^2, L/D=%.2f, A=%.2f m^2, CD=%.3f, AoA=%.1f deg, Rn=%.2f m) @ %s", v.Name, v.Mass, v.Beta, v.LD, v.Area, v.CD(), v.AoA*rad2deg, v.NoseRadius, v.Planet.Name)
}
