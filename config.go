package amat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

const (
	dateFormat = "2006-01-02 15:04:05"
	// j2000 is the default epoch of a scenario.
	j2000 = 2451545.0
)

// Case is one propagation of a scenario, flown with its own control profile.
type Case struct {
	Name    string
	Control ControlProfile
}

// PlotConfig configures the rendering of a scenario.
type PlotConfig struct {
	OutputDir  string
	Formats    []string // png, pdf, eps, svg
	Summary    bool     // one 2x2 figure per case
	Comparison bool     // heat flux of all cases on one figure
}

// Scenario is everything needed to propagate and report the cases of one vehicle.
type Scenario struct {
	Name     string
	Vehicle  *Vehicle
	Initial  VehicleState
	Solver   SolverParams
	Epoch    time.Time
	Duration time.Duration
	Step     time.Duration
	Cases    []Case
	Export   ExportConfig
	Plots    PlotConfig
	Workers  int
}

type caseConfig struct {
	Name          string    `mapstructure:"name"`
	Bank          float64   `mapstructure:"bank"`
	ScheduleTimes []float64 `mapstructure:"schedule_times"`
	ScheduleBanks []float64 `mapstructure:"schedule_banks"`
}

// LoadScenario reads a TOML scenario. Relative paths in it are relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc, err := ReadScenario(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// ReadScenario reads a TOML scenario from r, resolving relative paths from baseDir.
func ReadScenario(r io.Reader, baseDir string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("solver.tolerance", 1e-6)
	v.SetDefault("mission.step", "100ms")
	v.SetDefault("atmosphere.columns", []int{0, 1, 2, 3})
	v.SetDefault("workers", 1)
	if err := v.ReadConfig(r); err != nil {
		return nil, err
	}

	// Planet and atmosphere
	planet, err := PlanetFromString(v.GetString("planet.name"))
	if err != nil {
		return nil, &ConfigurationError{Field: "planet.name", Reason: err.Error()}
	}
	planet.TrapAltitude = v.GetFloat64("planet.trap_altitude") * 1e3
	planet.SkipAltitude = v.GetFloat64("planet.skip_altitude") * 1e3
	atmFile := v.GetString("atmosphere.file")
	if atmFile == "" {
		return nil, &ConfigurationError{Field: "atmosphere.file", Reason: "missing"}
	}
	if !filepath.IsAbs(atmFile) {
		atmFile = filepath.Join(baseDir, atmFile)
	}
	colIdx := v.GetIntSlice("atmosphere.columns")
	if len(colIdx) != 4 {
		return nil, &ConfigurationError{Field: "atmosphere.columns", Reason: fmt.Sprintf("need altitude, density, pressure and temperature columns, got %v", colIdx)}
	}
	cols := AtmosphereColumns{Altitude: colIdx[0], Density: colIdx[1], Pressure: colIdx[2], Temperature: colIdx[3], AltitudeInKm: v.GetBool("atmosphere.altitude_in_km")}
	atm, err := LoadAtmosphereFile(atmFile, cols)
	if err != nil {
		return nil, err
	}
	if atm.Policy, err = OutOfRangePolicyFromString(v.GetString("atmosphere.policy")); err != nil {
		return nil, &ConfigurationError{Field: "atmosphere.policy", Reason: err.Error()}
	}
	planet = planet.WithAtmosphere(atm)

	// Vehicle and initial state
	sc := &Scenario{Name: v.GetString("name"), Workers: v.GetInt("workers")}
	sc.Vehicle, err = NewVehicle(v.GetString("vehicle.name"), v.GetFloat64("vehicle.mass"), v.GetFloat64("vehicle.beta"),
		v.GetFloat64("vehicle.ld"), v.GetFloat64("vehicle.area"), v.GetFloat64("vehicle.aoa"), v.GetFloat64("vehicle.nose_radius"), planet)
	if err != nil {
		return nil, err
	}
	if sc.Vehicle.Name == "" {
		sc.Vehicle.Name = "vehicle"
	}
	sc.Initial = NewInitialState(v.GetFloat64("initial.altitude"), v.GetFloat64("initial.longitude"), v.GetFloat64("initial.latitude"),
		v.GetFloat64("initial.speed"), v.GetFloat64("initial.heading"), v.GetFloat64("initial.fpa"), v.GetFloat64("initial.downrange"),
		v.GetFloat64("initial.heatload"))
	if err = sc.Initial.Validate(planet); err != nil {
		return nil, err
	}

	// Solver and mission
	scheme, err := SchemeFromString(v.GetString("solver.scheme"))
	if err != nil {
		return nil, &ConfigurationError{Field: "solver.scheme", Reason: err.Error()}
	}
	sc.Solver = SolverParams{Tolerance: v.GetFloat64("solver.tolerance"), Scheme: scheme, MaxIterations: uint64(v.GetInt64("solver.max_iterations"))}
	if sc.Solver.MaxWallTime, err = confReadSeconds(v, "solver.max_wall"); err != nil {
		return nil, err
	}
	if err = sc.Solver.Validate(); err != nil {
		return nil, err
	}
	if sc.Epoch, err = confReadJDEorTime(v, "mission.epoch"); err != nil {
		return nil, err
	}
	if sc.Duration, err = confReadSeconds(v, "mission.duration"); err != nil {
		return nil, err
	}
	if sc.Step, err = confReadSeconds(v, "mission.step"); err != nil {
		return nil, err
	}
	if sc.Duration <= 0 {
		return nil, &ConfigurationError{Field: "mission.duration", Reason: "must be positive"}
	}
	if sc.Step <= 0 || sc.Step > sc.Duration {
		return nil, &ConfigurationError{Field: "mission.step", Reason: fmt.Sprintf("must be in (0, %s], got %s", sc.Duration, sc.Step)}
	}

	// Cases
	var cases []caseConfig
	if err = v.UnmarshalKey("cases", &cases); err != nil {
		return nil, &ConfigurationError{Field: "cases", Reason: err.Error()}
	}
	if len(cases) == 0 {
		cases = []caseConfig{{Name: "nominal", Bank: v.GetFloat64("mission.bank")}}
	}
	seen := make(map[string]bool)
	for i, c := range cases {
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i)
		}
		if seen[c.Name] {
			return nil, &ConfigurationError{Field: "cases", Reason: fmt.Sprintf("duplicate case name '%s'", c.Name)}
		}
		seen[c.Name] = true
		var control ControlProfile = ConstantBankDeg(c.Bank)
		if len(c.ScheduleTimes) > 0 {
			schedule, serr := NewBankSchedule(c.ScheduleTimes, c.ScheduleBanks)
			if serr != nil {
				return nil, serr
			}
			control = schedule
		}
		sc.Cases = append(sc.Cases, Case{Name: c.Name, Control: control})
	}

	// Reporting
	sc.Export = ExportConfig{
		OutputDir: resolve(baseDir, v.GetString("export.output_dir")),
		Filename:  v.GetString("export.filename"),
		Flux:      v.GetBool("export.flux"),
		History:   v.GetBool("export.history"),
		Compress:  v.GetBool("export.compress"),
		Timestamp: v.GetBool("export.timestamp"),
	}
	sc.Plots = PlotConfig{
		OutputDir:  resolve(baseDir, v.GetString("plots.output_dir")),
		Formats:    v.GetStringSlice("plots.formats"),
		Summary:    v.GetBool("plots.summary"),
		Comparison: v.GetBool("plots.comparison"),
	}
	if sc.Workers < 1 {
		sc.Workers = 1
	}
	return sc, nil
}

// NewEntry returns a new Entry for the provided case of this scenario.
func (sc *Scenario) NewEntry(c Case, opts ...EntryOption) (*Entry, error) {
	opts = append([]EntryOption{WithEpoch(sc.Epoch), WithName(c.Name)}, opts...)
	return NewEntry(sc.Vehicle, sc.Initial, sc.Solver, opts...)
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// confReadJDEorTime reads a date either as a Julian date or as a "2006-01-02 15:04:05" or RFC3339 string.
func confReadJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if !v.IsSet(key) {
		return julian.JDToTime(j2000), nil
	}
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde), nil
	}
	str := v.GetString(key)
	for _, layout := range []string{dateFormat, time.RFC3339} {
		if dt, err := time.Parse(layout, str); err == nil {
			return dt.UTC(), nil
		}
	}
	if dt := v.GetTime(key); !dt.IsZero() {
		return dt.UTC(), nil
	}
	return time.Time{}, &ConfigurationError{Field: key, Reason: fmt.Sprintf("could not understand date '%s'", str)}
}

// confReadSeconds reads a duration either as a number of seconds or as a Go duration string.
func confReadSeconds(v *viper.Viper, key string) (time.Duration, error) {
	switch val := v.Get(key).(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &ConfigurationError{Field: key, Reason: err.Error()}
		}
		return d, nil
	default:
		return 0, &ConfigurationError{Field: key, Reason: fmt.Sprintf("unsupported value %v", val)}
	}
}
