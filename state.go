package amat

import (
	"fmt"
	"math"
)

// VehicleState is the point mass state of a vehicle.
type VehicleState struct {
	T               float64 // s since epoch
	Altitude        float64 // m
	Longitude       float64 // rad
	Latitude        float64 // rad
	Speed           float64 // m/s
	Heading         float64 // rad in (-π, π], from local east, positive toward north
	FlightPathAngle float64 // rad, positive above the local horizontal
	Downrange       float64 // m, along the surface
	HeatLoad        float64 // J/cm^2
}

// NewInitialState returns a state from the customary entry units:
// altitude in km, longitude, latitude, heading and flight path angle in degrees,
// speed in km/s, downrange in km and heat load in J/cm^2.
func NewInitialState(hKm, lonDeg, latDeg, vKms, hdgDeg, fpaDeg, downrangeKm, heatLoad float64) VehicleState {
	return VehicleState{
		Altitude:        hKm * 1e3,
		Longitude:       lonDeg * deg2rad,
		Latitude:        latDeg * deg2rad,
		Speed:           vKms * 1e3,
		Heading:         hdgDeg * deg2rad,
		FlightPathAngle: fpaDeg * deg2rad,
		Downrange:       downrangeKm * 1e3,
		HeatLoad:        heatLoad,
	}
}

// Validate returns a *ConfigurationError if this state cannot start a propagation at the provided planet.
func (s VehicleState) Validate(p Planet) error {
	if !allFinite(s.vector(p.Radius)) || !allFinite([]float64{s.T, s.HeatLoad}) {
		return &ConfigurationError{Field: "initial state", Reason: "non-finite value"}
	}
	if s.Speed <= 0 {
		return &ConfigurationError{Field: "initial speed", Reason: fmt.Sprintf("must be positive, got %g m/s", s.Speed)}
	}
	if s.Altitude <= p.TrapAltitude {
		return &ConfigurationError{Field: "initial altitude", Reason: fmt.Sprintf("%g m is not above the trap altitude of %g m", s.Altitude, p.TrapAltitude)}
	}
	if math.Abs(s.FlightPathAngle) >= math.Pi/2 {
		return &ConfigurationError{Field: "initial flight path angle", Reason: fmt.Sprintf("|%g deg| must be below 90 deg", s.FlightPathAngle*rad2deg)}
	}
	if math.Abs(s.Latitude) >= math.Pi/2 {
		return &ConfigurationError{Field: "initial latitude", Reason: "poles are singular in the equations of motion"}
	}
	if s.HeatLoad < 0 {
		return &ConfigurationError{Field: "initial heat load", Reason: fmt.Sprintf("must be non-negative, got %g", s.HeatLoad)}
	}
	return nil
}

// vector returns the integration vector [r θ φ v ψ γ s].
func (s VehicleState) vector(radius float64) []float64 {
	return []float64{radius + s.Altitude, s.Longitude, s.Latitude, s.Speed, s.Heading, s.FlightPathAngle, s.Downrange}
}

// withVector returns a copy of s at time t using the integration vector f.
func (s VehicleState) withVector(t, radius float64, f []float64) VehicleState {
	s.T = t
	s.Altitude = f[0] - radius
	s.Longitude = f[1]
	s.Latitude = f[2]
	s.Speed = f[3]
	s.Heading = wrapAngle(f[4])
	s.FlightPathAngle = f[5]
	s.Downrange = f[6]
	return s
}

// Position returns the planet-centered unit vector of this state.
func (s VehicleState) Position() []float64 {
	return sphericalUnit(s.Longitude, s.Latitude)
}

// Direction returns the unit vector of the horizontal component of the velocity.
func (s VehicleState) Direction() []float64 {
	east, north := localHorizontal(s.Longitude, s.Latitude)
	sψ, cψ := math.Sincos(s.Heading)
	return unit([]float64{cψ*east[0] + sψ*north[0], cψ*east[1] + sψ*north[1], cψ*east[2] + sψ*north[2]})
}

// String implements the Stringer interface.
func (s VehicleState) String() string {
	return fmt.Sprintf("t=%.1fs h=%.3fkm v=%.4fkm/s γ=%.3fdeg ψ=%.3fdeg lat=%.3fdeg lon=%.3fdeg", s.T, s.Altitude/1e3, s.Speed/1e3, s.FlightPathAngle*rad2deg, s.Heading*rad2deg, s.Latitude*rad2deg, s.Longitude*rad2deg)
}
