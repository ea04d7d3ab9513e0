package amat

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	airGasConstant = 287.053 // J/(kg.K)
	standardG0     = 9.80665 // m/s^2
)

// Sample is one row of an atmosphere table.
type Sample struct {
	Altitude    float64 // m
	Density     float64 // kg/m^3
	Pressure    float64 // Pa
	Temperature float64 // K
}

// OutOfRangePolicy defines what an Atmosphere returns outside of its table.
type OutOfRangePolicy uint8

const (
	// Extrapolate decays density and pressure exponentially above the table,
	// using the scale height of the two topmost samples, and clamps below it.
	Extrapolate OutOfRangePolicy = iota
	// Clamp returns the nearest end sample on either side.
	Clamp
)

func (p OutOfRangePolicy) String() string {
	switch p {
	case Extrapolate:
		return "extrapolate"
	case Clamp:
		return "clamp"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// OutOfRangePolicyFromString returns the policy from its name.
func OutOfRangePolicyFromString(name string) (OutOfRangePolicy, error) {
	switch strings.ToLower(name) {
	case "", "extrapolate":
		return Extrapolate, nil
	case "clamp":
		return Clamp, nil
	}
	return Extrapolate, fmt.Errorf("unknown out of range policy '%s'", name)
}

// AtmosphereColumns identifies the zero-based columns of an atmosphere file.
type AtmosphereColumns struct {
	Altitude, Density, Pressure, Temperature int
	AltitudeInKm                             bool
}

// DefaultColumns is the altitude, density, pressure, temperature ordering of the shipped tables.
var DefaultColumns = AtmosphereColumns{Altitude: 0, Density: 1, Pressure: 2, Temperature: 3}

// Atmosphere is a tabulated atmosphere. It is immutable once built and may be
// shared between concurrent propagations.
type Atmosphere struct {
	Name   string
	Policy OutOfRangePolicy
	alt    []float64
	rho    []float64
	pres   []float64
	temp   []float64
}

// LoadAtmosphereFile loads an atmosphere table from the provided file.
func LoadAtmosphereFile(path string, cols AtmosphereColumns) (*Atmosphere, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataFormatError{Source: path, Reason: err.Error()}
	}
	defer f.Close()
	return LoadAtmosphere(f, path, cols)
}

// LoadAtmosphere reads a whitespace or comma separated table. Anything after a '#' is ignored.
// Every data row must have the same number of fields.
func LoadAtmosphere(r io.Reader, source string, cols AtmosphereColumns) (*Atmosphere, error) {
	var (
		data  []float64
		lines []int
		width int
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(strings.Replace(line, ",", " ", -1))
		if len(fields) == 0 {
			continue
		}
		if width == 0 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, &DataFormatError{Source: source, Line: lineNo, Reason: fmt.Sprintf("expected %d fields, got %d", width, len(fields))}
		}
		for _, field := range fields {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &DataFormatError{Source: source, Line: lineNo, Reason: fmt.Sprintf("could not parse '%s'", field)}
			}
			data = append(data, val)
		}
		lines = append(lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, &DataFormatError{Source: source, Reason: err.Error()}
	}
	if len(lines) < 2 {
		return nil, &DataFormatError{Source: source, Reason: fmt.Sprintf("need at least two rows, got %d", len(lines))}
	}
	for name, col := range map[string]int{"altitude": cols.Altitude, "density": cols.Density, "pressure": cols.Pressure, "temperature": cols.Temperature} {
		if col < 0 || col >= width {
			return nil, &DataFormatError{Source: source, Reason: fmt.Sprintf("missing %s column %d (rows have %d columns)", name, col, width)}
		}
	}
	table := mat.NewDense(len(lines), width, data)
	atm := &Atmosphere{
		Name: source,
		alt:  mat.Col(nil, cols.Altitude, table),
		rho:  mat.Col(nil, cols.Density, table),
		pres: mat.Col(nil, cols.Pressure, table),
		temp: mat.Col(nil, cols.Temperature, table),
	}
	if cols.AltitudeInKm {
		floats.Scale(1e3, atm.alt)
	}
	if row, reason := atm.validate(); reason != "" {
		return nil, &DataFormatError{Source: source, Line: lines[row], Reason: reason}
	}
	return atm, nil
}

// NewAtmosphere builds an atmosphere from samples sorted by increasing altitude.
func NewAtmosphere(name string, samples []Sample) (*Atmosphere, error) {
	if len(samples) < 2 {
		return nil, &DataFormatError{Source: name, Reason: fmt.Sprintf("need at least two samples, got %d", len(samples))}
	}
	atm := &Atmosphere{Name: name}
	for _, s := range samples {
		atm.alt = append(atm.alt, s.Altitude)
		atm.rho = append(atm.rho, s.Density)
		atm.pres = append(atm.pres, s.Pressure)
		atm.temp = append(atm.temp, s.Temperature)
	}
	if row, reason := atm.validate(); reason != "" {
		return nil, &DataFormatError{Source: name, Reason: fmt.Sprintf("sample %d: %s", row, reason)}
	}
	return atm, nil
}

// ExponentialAtmosphere returns an isothermal table from 0 to top (m) every spacing meters.
func ExponentialAtmosphere(rho0, scaleHeight, top, spacing float64) (*Atmosphere, error) {
	if rho0 <= 0 || scaleHeight <= 0 || top <= 0 || spacing <= 0 {
		return nil, &ConfigurationError{Field: "exponential atmosphere", Reason: "all parameters must be positive"}
	}
	temp := scaleHeight * standardG0 / airGasConstant
	n := int(math.Ceil(top/spacing)) + 1
	samples := make([]Sample, n)
	for i := range samples {
		h := math.Min(float64(i)*spacing, top)
		ρ := rho0 * math.Exp(-h/scaleHeight)
		samples[i] = Sample{Altitude: h, Density: ρ, Pressure: ρ * airGasConstant * temp, Temperature: temp}
	}
	return NewAtmosphere(fmt.Sprintf("exponential(ρ0=%g, H=%g)", rho0, scaleHeight), samples)
}

// validate returns the offending row index and a reason, or an empty reason.
func (a *Atmosphere) validate() (int, string) {
	for i := range a.alt {
		if !allFinite([]float64{a.alt[i], a.rho[i], a.pres[i], a.temp[i]}) {
			return i, "non-finite value"
		}
		if a.rho[i] < 0 || a.pres[i] < 0 || a.temp[i] < 0 {
			return i, "negative density, pressure or temperature"
		}
		if i > 0 && a.alt[i] <= a.alt[i-1] {
			return i, fmt.Sprintf("altitude %g is not above previous altitude %g", a.alt[i], a.alt[i-1])
		}
	}
	return 0, ""
}

// Len returns the number of samples.
func (a *Atmosphere) Len() int {
	return len(a.alt)
}

// Sample returns the i-th tabulated sample.
func (a *Atmosphere) Sample(i int) Sample {
	return Sample{a.alt[i], a.rho[i], a.pres[i], a.temp[i]}
}

// Bounds returns the lowest and highest tabulated altitudes.
func (a *Atmosphere) Bounds() (min, max float64) {
	return a.alt[0], a.alt[len(a.alt)-1]
}

// DensityAt returns the density at altitude h (m).
// Outside of the table, the density follows the Policy and a *DomainRangeError is also returned.
func (a *Atmosphere) DensityAt(h float64) (float64, error) {
	s, err := a.At(h)
	return s.Density, err
}

// At returns the interpolated sample at altitude h (m). Density and pressure are
// interpolated in log space and temperature linearly; tabulated altitudes return
// the tabulated sample. Outside of the table the sample follows the Policy and
// a *DomainRangeError is also returned.
func (a *Atmosphere) At(h float64) (Sample, error) {
	n := len(a.alt)
	switch {
	case math.IsNaN(h):
		nan := math.NaN()
		return Sample{nan, nan, nan, nan}, a.rangeError(h)
	case h < a.alt[0]:
		s := a.Sample(0)
		s.Altitude = h
		return s, a.rangeError(h)
	case h > a.alt[n-1]:
		s := a.Sample(n - 1)
		if a.Policy == Extrapolate {
			s.Density = expExtrapolate(a.alt[n-2], a.alt[n-1], a.rho[n-2], a.rho[n-1], h)
			s.Pressure = expExtrapolate(a.alt[n-2], a.alt[n-1], a.pres[n-2], a.pres[n-1], h)
		}
		s.Altitude = h
		return s, a.rangeError(h)
	}
	i := sort.SearchFloat64s(a.alt, h)
	if a.alt[i] == h {
		return a.Sample(i), nil
	}
	f := (h - a.alt[i-1]) / (a.alt[i] - a.alt[i-1])
	return Sample{
		Altitude:    h,
		Density:     logInterp(a.rho[i-1], a.rho[i], f),
		Pressure:    logInterp(a.pres[i-1], a.pres[i], f),
		Temperature: a.temp[i-1] + f*(a.temp[i]-a.temp[i-1]),
	}, nil
}

func (a *Atmosphere) rangeError(h float64) error {
	return &DomainRangeError{Quantity: "altitude (m)", Value: h, Min: a.alt[0], Max: a.alt[len(a.alt)-1]}
}

func (a *Atmosphere) String() string {
	lo, hi := a.Bounds()
	return fmt.Sprintf("%s [%.0f m, %.0f m] (%d samples, %s)", a.Name, lo, hi, len(a.alt), a.Policy)
}

// logInterp interpolates between two positive values in log space, or linearly otherwise.
func logInterp(y0, y1, f float64) float64 {
	if y0 <= 0 || y1 <= 0 {
		return y0 + f*(y1-y0)
	}
	return math.Exp(math.Log(y0) + f*(math.Log(y1)-math.Log(y0)))
}

// expExtrapolate continues the exponential through (h0, y0) and (h1, y1) beyond h1.
// It clamps to y1 if the two samples do not decay.
func expExtrapolate(h0, h1, y0, y1, h float64) float64 {
	if y0 <= 0 || y1 <= 0 || y1 >= y0 {
		return y1
	}
	scaleHeight := (h1 - h0) / math.Log(y0/y1)
	return y1 * math.Exp(-(h-h1)/scaleHeight)
}
