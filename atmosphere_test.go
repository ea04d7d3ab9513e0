package amat

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func loadEarthAtmosphere(t *testing.T) *Atmosphere {
	atm, err := LoadAtmosphereFile("atmdata/earth-us76.dat", DefaultColumns)
	if err != nil {
		t.Fatal(err)
	}
	return atm
}

func TestAtmosphereTable(t *testing.T) {
	atm := loadEarthAtmosphere(t)
	if atm.Len() != 201 {
		t.Fatalf("expected 201 samples, got %d", atm.Len())
	}
	if lo, hi := atm.Bounds(); lo != 0 || hi != 200e3 {
		t.Fatalf("bounds [%f, %f]", lo, hi)
	}
	// Tabulated altitudes return the tabulated values.
	for i := 0; i < atm.Len(); i++ {
		exp := atm.Sample(i)
		got, err := atm.At(exp.Altitude)
		if err != nil {
			t.Fatal(err)
		}
		if got != exp {
			t.Fatalf("sample %d: %+v != %+v", i, got, exp)
		}
	}
	if ρ, _ := atm.DensityAt(120e3); ρ != 2.222e-08 {
		t.Fatalf("ρ(120 km)=%g", ρ)
	}
	// Log-linear density, linear temperature.
	s, err := atm.At(120.5e3)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinRel(s.Density, math.Sqrt(2.222e-08*2.01e-08), 1e-12) {
		t.Fatalf("ρ(120.5 km)=%g", s.Density)
	}
	if !scalar.EqualWithinAbs(s.Temperature, 0.5*(360+370.927), 1e-9) {
		t.Fatalf("T(120.5 km)=%f", s.Temperature)
	}
}

func TestAtmosphereContinuity(t *testing.T) {
	atm := loadEarthAtmosphere(t)
	for _, h := range []float64{1e3, 11e3, 50e3, 86e3, 120e3, 199e3} {
		below, _ := atm.At(h - 1e-6)
		above, _ := atm.At(h + 1e-6)
		if !scalar.EqualWithinRel(below.Density, above.Density, 1e-8) || !scalar.EqualWithinRel(below.Pressure, above.Pressure, 1e-8) {
			t.Fatalf("discontinuous at %f m: %+v %+v", h, below, above)
		}
	}
	prev := math.Inf(1)
	for h := 0.0; h <= 200e3; h += 250 {
		ρ, err := atm.DensityAt(h)
		if err != nil {
			t.Fatal(err)
		}
		if ρ >= prev {
			t.Fatalf("density is not decreasing at %f m", h)
		}
		prev = ρ
	}
}

func TestAtmosphereOutOfRange(t *testing.T) {
	atm := loadEarthAtmosphere(t)
	top := atm.Sample(atm.Len() - 1)
	var rerr *DomainRangeError

	ρ, err := atm.DensityAt(250e3)
	if !errors.As(err, &rerr) || rerr.Value != 250e3 {
		t.Fatalf("expected a DomainRangeError, got %v", err)
	}
	if ρ <= 0 || ρ >= top.Density {
		t.Fatalf("extrapolated density %g should decay below %g", ρ, top.Density)
	}
	ρ, err = atm.DensityAt(-100)
	if err == nil || ρ != atm.Sample(0).Density {
		t.Fatalf("below the table: %g (%v)", ρ, err)
	}

	clamped := *atm
	clamped.Policy = Clamp
	if ρ, err := clamped.DensityAt(250e3); err == nil || ρ != top.Density {
		t.Fatalf("clamped density %g (%v)", ρ, err)
	}
	if ρ, err := clamped.DensityAt(math.NaN()); err == nil || !math.IsNaN(ρ) {
		t.Fatalf("NaN altitude: %g (%v)", ρ, err)
	}
}

func TestLoadAtmosphereErrors(t *testing.T) {
	for name, data := range map[string]string{
		"width":    "0 1 2 3\n1000 1 2\n",
		"parse":    "0 1 2 3\n1000 abc 2 3\n",
		"order":    "0 1 2 3\n1000 1 2 3\n1000 1 2 3\n",
		"one row":  "# header\n0 1 2 3\n",
		"negative": "0 1 2 3\n1000 -1 2 3\n",
	} {
		_, err := LoadAtmosphere(strings.NewReader(data), name, DefaultColumns)
		var ferr *DataFormatError
		if !errors.As(err, &ferr) {
			t.Fatalf("%s: expected a DataFormatError, got %v", name, err)
		}
		if name != "one row" && ferr.Line != 2 && ferr.Line != 3 {
			t.Fatalf("%s: wrong line in %s", name, err)
		}
	}
	if _, err := LoadAtmosphere(strings.NewReader("0 1 2 3\n1000 1 2 3\n"), "columns", AtmosphereColumns{Altitude: 0, Density: 4}); err == nil {
		t.Fatal("missing column should fail")
	}
	if _, err := LoadAtmosphereFile("atmdata/does-not-exist.dat", DefaultColumns); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestLoadAtmosphereColumns(t *testing.T) {
	data := `# temperature, altitude (km), density, pressure
288.15, 0, 1.225, 101325 # sea level
223.25, 10, 0.4135, 26500
`
	cols := AtmosphereColumns{Altitude: 1, Density: 2, Pressure: 3, Temperature: 0, AltitudeInKm: true}
	atm, err := LoadAtmosphere(strings.NewReader(data), "reader", cols)
	if err != nil {
		t.Fatal(err)
	}
	if lo, hi := atm.Bounds(); lo != 0 || hi != 10e3 {
		t.Fatalf("bounds [%f, %f]", lo, hi)
	}
	if s := atm.Sample(1); s.Density != 0.4135 || s.Temperature != 223.25 || s.Pressure != 26500 {
		t.Fatalf("wrong columns: %+v", s)
	}
}

func TestExponentialAtmosphere(t *testing.T) {
	atm, err := ExponentialAtmosphere(1.225, 7200, 150e3, 1e3)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range []float64{0, 7200, 33333, 149e3} {
		ρ, err := atm.DensityAt(h)
		if err != nil {
			t.Fatal(err)
		}
		if !scalar.EqualWithinRel(ρ, 1.225*math.Exp(-h/7200), 1e-10) {
			t.Fatalf("ρ(%f)=%g", h, ρ)
		}
	}
	// The extrapolation continues the same exponential.
	ρ, _ := atm.DensityAt(180e3)
	if !scalar.EqualWithinRel(ρ, 1.225*math.Exp(-180e3/7200), 1e-8) {
		t.Fatalf("ρ(180 km)=%g", ρ)
	}
	if _, err := ExponentialAtmosphere(1.225, 0, 150e3, 1e3); err == nil {
		t.Fatal("zero scale height should fail")
	}
}
