package amat

import (
	"math"
	"sort"
)

const suttonGravesMaxSpeed = 20e3 // m/s

// HeatFluxModel is a stagnation-point heating correlation.
// StagnationFlux returns W/cm^2 from the free stream density (kg/m^3),
// the speed (m/s) and the nose radius (m). Outside of its validated domain a
// model returns NaN along with a *DomainRangeError.
type HeatFluxModel interface {
	Name() string
	StagnationFlux(density, speed, noseRadius float64) (float64, error)
}

// SuttonGraves is the convective correlation q = K*sqrt(ρ/Rn)*v^3.
type SuttonGraves struct {
	K        float64 // kg^0.5/m
	MaxSpeed float64 // m/s, upper bound of the validated domain
}

// Name implements the HeatFluxModel interface.
func (m SuttonGraves) Name() string {
	return "Sutton-Graves"
}

// StagnationFlux implements the HeatFluxModel interface.
func (m SuttonGraves) StagnationFlux(density, speed, noseRadius float64) (float64, error) {
	if speed < 0 || (m.MaxSpeed > 0 && speed > m.MaxSpeed) || math.IsNaN(speed) {
		return math.NaN(), &DomainRangeError{Quantity: "Sutton-Graves speed (m/s)", Value: speed, Min: 0, Max: m.MaxSpeed}
	}
	if density < 0 || math.IsNaN(density) {
		return math.NaN(), &DomainRangeError{Quantity: "Sutton-Graves density (kg/m^3)", Value: density, Min: 0, Max: math.Inf(1)}
	}
	return m.K * math.Sqrt(density/noseRadius) * speed * speed * speed * 1e-4, nil
}

// TauberSutton is the radiative correlation q = C*Rn^a*ρ^b*f(v), with
// a = min(AMax, 1.072e6*v^-1.88*ρ^-0.325). The flux is zero below the first
// tabulated speed and undefined above the last one.
type TauberSutton struct {
	Body   string
	C      float64
	AMax   float64
	B      float64
	Speeds []float64 // km/s, increasing
	F      []float64
}

// EarthTauberSutton is the Tauber-Sutton correlation for air, 9 to 16 km/s.
var EarthTauberSutton = TauberSutton{
	Body: "Earth",
	C:    4.736e4,
	AMax: 1.0,
	B:    1.22,
	Speeds: []float64{9.0, 9.25, 9.5, 9.75, 10.0, 10.25, 10.5, 10.75, 11.0, 11.5, 12.0, 12.5, 13.0, 13.5, 14.0, 14.5,
		15.0, 15.5, 16.0},
	F: []float64{1.5, 4.3, 9.7, 19.5, 35, 55, 81, 115, 151, 238, 359, 495, 660, 850, 1065, 1313, 1550, 1780, 2040},
}

// MarsTauberSutton is the Tauber-Sutton correlation for CO2-N2, 6 to 9 km/s.
var MarsTauberSutton = TauberSutton{
	Body:   "Mars",
	C:      2.35e4,
	AMax:   0.526,
	B:      1.19,
	Speeds: []float64{6.0, 6.15, 6.3, 6.5, 6.7, 6.9, 7.0, 7.2, 7.4, 7.6, 7.8, 8.0, 8.2, 8.4, 8.6, 8.8, 9.0},
	F:      []float64{0.2, 1.0, 1.95, 3.42, 5.1, 7.1, 8.1, 10.2, 12.5, 14.8, 17.1, 19.2, 21.4, 24.1, 26.0, 28.9, 32.8},
}

// Name implements the HeatFluxModel interface.
func (m TauberSutton) Name() string {
	return "Tauber-Sutton (" + m.Body + ")"
}

// StagnationFlux implements the HeatFluxModel interface.
func (m TauberSutton) StagnationFlux(density, speed, noseRadius float64) (float64, error) {
	vkm := speed / 1e3
	lo, hi := m.Speeds[0], m.Speeds[len(m.Speeds)-1]
	if math.IsNaN(vkm) || vkm > hi {
		return math.NaN(), &DomainRangeError{Quantity: m.Name() + " speed (km/s)", Value: vkm, Min: lo, Max: hi}
	}
	if vkm < lo || density <= 0 {
		return 0, nil
	}
	i := sort.SearchFloat64s(m.Speeds, vkm)
	f := m.F[i]
	if m.Speeds[i] != vkm {
		f = m.F[i-1] + (vkm-m.Speeds[i-1])/(m.Speeds[i]-m.Speeds[i-1])*(m.F[i]-m.F[i-1])
	}
	a := math.Min(m.AMax, 1.072e6*math.Pow(speed, -1.88)*math.Pow(density, -0.325))
	return m.C * math.Pow(noseRadius, a) * math.Pow(density, m.B) * f, nil
}

// NoRadiation is used where no radiative correlation is carried.
type NoRadiation struct{}

// Name implements the HeatFluxModel interface.
func (NoRadiation) Name() string {
	return "none"
}

// StagnationFlux implements the HeatFluxModel interface.
func (NoRadiation) StagnationFlux(density, speed, noseRadius float64) (float64, error) {
	return 0, nil
}
