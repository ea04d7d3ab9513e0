package amat

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/floats/scalar"
)

const testScenario = `# Earth return capsule
name = "return"
workers = 2

[planet]
name = "Earth"
trap_altitude = 0.0

[atmosphere]
file = "%s"
policy = "clamp"

[vehicle]
name = "capsule"
mass = 5000.0
beta = 190.0
ld = 0.3
area = 12.0
nose_radius = 1.0

[initial]
altitude = 120.0
speed = 7.5
fpa = -1.8

[solver]
tolerance = 1e-7
scheme = "%s"

[mission]
epoch = "2024-03-01 12:00:00"
duration = 2400
step = "100ms"

[[cases]]
name = "overshoot"
bank = 0.0

[[cases]]
name = "undershoot"
bank = 180.0

[[cases]]
name = "reversal"
schedule_times = [0, 120]
schedule_banks = [60.0, -60.0]

[export]
output_dir = "out"
flux = true
`

func atmospherePath(t *testing.T) string {
	path, err := filepath.Abs("atmdata/earth-us76.dat")
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func writeScenario(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, fmt.Sprintf(testScenario, atmospherePath(t), "dopri5"))
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "return" || sc.Workers != 2 {
		t.Fatalf("name=%s workers=%d", sc.Name, sc.Workers)
	}
	v := sc.Vehicle
	if v.Name != "capsule" || v.Mass != 5000 || v.Beta != 190 || v.LD != 0.3 || v.Area != 12 || v.NoseRadius != 1 {
		t.Fatalf("vehicle %s", v)
	}
	if !v.Planet.Equals(Earth) || v.Planet.Atmosphere.Policy != Clamp || v.Planet.Atmosphere.Len() != 201 {
		t.Fatalf("planet %s with %s", v.Planet, v.Planet.Atmosphere)
	}
	if sc.Initial.Altitude != 120e3 || sc.Initial.Speed != 7500 || !scalar.EqualWithinAbs(sc.Initial.FlightPathAngle*rad2deg, -1.8, 1e-12) {
		t.Fatalf("initial state %s", sc.Initial)
	}
	if sc.Solver.Tolerance != 1e-7 || sc.Solver.Scheme != DormandPrince {
		t.Fatalf("solver %+v", sc.Solver)
	}
	if sc.Duration != 2400*time.Second || sc.Step != 100*time.Millisecond {
		t.Fatalf("duration %s step %s", sc.Duration, sc.Step)
	}
	if exp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC); !sc.Epoch.Equal(exp) {
		t.Fatalf("epoch %s", sc.Epoch)
	}
	if len(sc.Cases) != 3 || sc.Cases[0].Name != "overshoot" || sc.Cases[1].Name != "undershoot" || sc.Cases[2].Name != "reversal" {
		t.Fatalf("cases %+v", sc.Cases)
	}
	if σ := sc.Cases[1].Control.BankAngle(0, sc.Initial); !scalar.EqualWithinAbs(σ*rad2deg, 180, 1e-12) {
		t.Fatalf("undershoot bank %f", σ*rad2deg)
	}
	if σ := sc.Cases[2].Control.BankAngle(200, sc.Initial); !scalar.EqualWithinAbs(σ*rad2deg, -60, 1e-12) {
		t.Fatalf("reversal bank %f", σ*rad2deg)
	}
	if sc.Export.OutputDir != filepath.Join(filepath.Dir(path), "out") || !sc.Export.Flux || sc.Export.History {
		t.Fatalf("export %+v", sc.Export)
	}
	e, err := sc.NewEntry(sc.Cases[0])
	if err != nil {
		t.Fatal(err)
	}
	if e.Status() != Initialized || e.name != "overshoot" || !e.epoch.Equal(sc.Epoch) {
		t.Fatalf("entry %s at %s", e.name, e.epoch)
	}
}

func TestLoadScenarioDefaults(t *testing.T) {
	content := fmt.Sprintf(`[planet]
name = "earth"
[atmosphere]
file = "%s"
[vehicle]
mass = 5000.0
beta = 190.0
ld = 0.3
area = 12.0
nose_radius = 1.0
[initial]
altitude = 120.0
speed = 7.5
fpa = -1.8
[mission]
epoch = 2451545.0
duration = "40m"
bank = 70.0
`, atmospherePath(t))
	sc, err := LoadScenario(writeScenario(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "scenario" || sc.Vehicle.Name != "vehicle" || sc.Workers != 1 {
		t.Fatalf("name=%s vehicle=%s workers=%d", sc.Name, sc.Vehicle.Name, sc.Workers)
	}
	if sc.Solver.Tolerance != 1e-6 || sc.Step != 100*time.Millisecond || sc.Duration != 40*time.Minute {
		t.Fatalf("solver %+v step %s duration %s", sc.Solver, sc.Step, sc.Duration)
	}
	if len(sc.Cases) != 1 || sc.Cases[0].Name != "nominal" {
		t.Fatalf("cases %+v", sc.Cases)
	}
	if σ := sc.Cases[0].Control.BankAngle(0, sc.Initial); !scalar.EqualWithinAbs(σ*rad2deg, 70, 1e-12) {
		t.Fatalf("bank %f", σ*rad2deg)
	}
	if exp := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC); sc.Epoch.Sub(exp).Abs() > time.Millisecond {
		t.Fatalf("epoch %s", sc.Epoch)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	base := fmt.Sprintf(testScenario, atmospherePath(t), "dopri5")
	var cerr *ConfigurationError
	for name, edit := range map[string][2]string{
		"planet":    {`name = "Earth"`, `name = "Vulcan"`},
		"scheme":    {`scheme = "dopri5"`, `scheme = "euler"`},
		"policy":    {`policy = "clamp"`, `policy = "guess"`},
		"mass":      {`mass = 5000.0`, `mass = -5000.0`},
		"speed":     {`speed = 7.5`, `speed = 0.0`},
		"duration":  {`duration = 2400`, `duration = "forever"`},
		"step":      {`step = "100ms"`, `step = "1h"`},
		"duplicate": {`name = "reversal"`, `name = "overshoot"`},
		"schedule":  {`schedule_banks = [60.0, -60.0]`, `schedule_banks = [60.0]`},
	} {
		content := strings.Replace(base, edit[0], edit[1], 1)
		if content == base {
			t.Fatalf("%s: edit did not apply", name)
		}
		if _, err := LoadScenario(writeScenario(t, content)); !errors.As(err, &cerr) {
			t.Fatalf("%s: expected a ConfigurationError, got %v", name, err)
		}
	}
	var ferr *DataFormatError
	missing := strings.Replace(base, atmospherePath(t), "missing.dat", 1)
	if _, err := LoadScenario(writeScenario(t, missing)); !errors.As(err, &ferr) {
		t.Fatalf("missing atmosphere: %v", err)
	}
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing scenario should fail")
	}
}

func TestStarshipScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("full entry propagation")
	}
	sc, err := LoadScenario(filepath.Join("cmd", "entry", "earth.toml"))
	if err != nil {
		t.Fatal(err)
	}
	v := sc.Vehicle
	if v.Name != "Starship" || v.Mass != 120000 || v.Beta != 190 || v.LD != 0.3 || v.Area != 65 || v.NoseRadius != 0.5 || !scalar.EqualWithinAbs(v.AoA*rad2deg, 80, 1e-12) {
		t.Fatalf("vehicle %s", v)
	}
	if sc.Solver.Scheme != DormandPrince || sc.Duration != 2400*time.Second || sc.Step != 100*time.Millisecond {
		t.Fatalf("solver %+v over %s every %s", sc.Solver, sc.Duration, sc.Step)
	}
	var nominal *Case
	for i := range sc.Cases {
		if sc.Cases[i].Name == "nominal" {
			nominal = &sc.Cases[i]
		}
	}
	if len(sc.Cases) != 4 || nominal == nil {
		t.Fatalf("cases %v", sc.Cases)
	}
	e, err := sc.NewEntry(*nominal, WithLogger(kitlog.NewNopLogger()))
	if err != nil {
		t.Fatal(err)
	}
	tr, err := e.Propagate(sc.Duration, sc.Step, nominal.Control)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Termination != GroundImpact || math.Abs(tr.Final().T-597.1) > 0.5 || tr.Len() < 5960 || tr.Len() > 5985 {
		t.Fatalf("%s at %s after %d records", tr.Termination, tr.Final(), tr.Len())
	}
	if maxG, _ := tr.MaxDeceleration(); !scalar.EqualWithinRel(maxG, 5.985, 1e-2) {
		t.Fatalf("max deceleration %f g", maxG)
	}
	if peakQ, _ := tr.PeakHeatFlux(); !scalar.EqualWithinRel(peakQ, 129.19, 1e-2) {
		t.Fatalf("peak heat flux %f W/cm2", peakQ)
	}
}
