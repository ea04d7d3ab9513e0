package amat

import (
	"fmt"
	"math"
	"strings"
)

// Planet defines the body an entry is flown at.
// Planets are values: use WithAtmosphere to attach a table without altering the definitions below.
type Planet struct {
	Name          string
	Radius        float64 // m
	μ             float64 // m^3/s^2
	G0            float64 // reference gravity for decelerations, m/s^2
	SuttonGravesK float64 // convective heating constant, kg^0.5/m
	TrapAltitude  float64 // m, propagation stops below
	SkipAltitude  float64 // m, propagation stops above while climbing; zero means top of the atmosphere
	Atmosphere    *Atmosphere
	Radiative     HeatFluxModel
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (p Planet) GM() float64 {
	return p.μ
}

// Gravity returns the gravitational acceleration at radius r (m).
func (p Planet) Gravity(r float64) float64 {
	return p.μ / (r * r)
}

// SurfaceGravity returns the gravitational acceleration at the planet radius.
func (p Planet) SurfaceGravity() float64 {
	return p.Gravity(p.Radius)
}

// WithAtmosphere returns a copy of this planet using the provided atmosphere.
func (p Planet) WithAtmosphere(atm *Atmosphere) Planet {
	p.Atmosphere = atm
	return p
}

// InterfaceAltitude returns the altitude above which a climbing vehicle has skipped out.
func (p Planet) InterfaceAltitude() float64 {
	if p.SkipAltitude > 0 {
		return p.SkipAltitude
	}
	if p.Atmosphere == nil {
		return math.Inf(1)
	}
	_, top := p.Atmosphere.Bounds()
	return top
}

// Convective returns the Sutton-Graves model of this planet.
func (p Planet) Convective() SuttonGraves {
	return SuttonGraves{K: p.SuttonGravesK, MaxSpeed: suttonGravesMaxSpeed}
}

// Equals returns whether the provided planet is the same.
func (p Planet) Equals(b Planet) bool {
	return p.Name == b.Name && p.Radius == b.Radius && p.μ == b.μ
}

// String implements the Stringer interface.
func (p Planet) String() string {
	return p.Name + " body"
}

// PlanetFromString returns the planet from its name
func PlanetFromString(name string) (Planet, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "mars":
		return Mars, nil
	case "venus":
		return Venus, nil
	case "titan":
		return Titan, nil
	default:
		return Planet{}, fmt.Errorf("undefined planet '%s'", name)
	}
}

/* Definitions */

// Earth is home.
var Earth = Planet{Name: "Earth", Radius: 6371.0e3, μ: 3.986004418e14, G0: standardG0, SuttonGravesK: 1.7623e-4, Radiative: EarthTauberSutton}

// Mars is the vacation place.
var Mars = Planet{Name: "Mars", Radius: 3389.5e3, μ: 4.282837e13, G0: standardG0, SuttonGravesK: 1.9027e-4, Radiative: MarsTauberSutton}

// Venus is poisonous.
var Venus = Planet{Name: "Venus", Radius: 6051.8e3, μ: 3.24858592e14, G0: standardG0, SuttonGravesK: 1.896e-4, Radiative: NoRadiation{}}

// Titan is a moon, but it has a thicker atmosphere than Earth.
var Titan = Planet{Name: "Titan", Radius: 2574.7e3, μ: 8.978138e12, G0: standardG0, SuttonGravesK: 1.7407e-4, Radiative: NoRadiation{}}
