package amat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/soniakeys/meeus/v3/julian"
)

// FluxCSVHeader is the header row of the flux export.
const FluxCSVHeader = "flux_W_cm2,time_sec"

var historyColumns = []string{"time_sec", "altitude_km", "longitude_deg", "latitude_deg", "speed_km_s", "heading_deg",
	"fpa_deg", "downrange_km", "bank_deg", "density_kg_m3", "decel_g", "q_conv_W_cm2", "q_rad_W_cm2", "q_total_W_cm2",
	"heatload_J_cm2", "flags"}

// FluxSample is one row of the flux export.
type FluxSample struct {
	Flux float64 // W/cm^2
	Time float64 // s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFluxCSV writes the convective stagnation point heat flux and the time of every record.
// Flagged fluxes are written as NaN.
func WriteFluxCSV(w io.Writer, tr *Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(FluxCSVHeader, ",")); err != nil {
		return err
	}
	for i, s := range tr.States {
		if err := cw.Write([]string{formatFloat(tr.Derived[i].QConvective), formatFloat(s.T)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFluxCSV parses the output of WriteFluxCSV.
func ReadFluxCSV(r io.Reader) ([]FluxSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.Comment = '#'
	header, err := cr.Read()
	if err != nil {
		return nil, &DataFormatError{Source: "flux csv", Line: 1, Reason: err.Error()}
	}
	if strings.Join(header, ",") != FluxCSVHeader {
		return nil, &DataFormatError{Source: "flux csv", Line: 1, Reason: fmt.Sprintf("unexpected header %v", header)}
	}
	var samples []FluxSample
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &DataFormatError{Source: "flux csv", Line: perr.Line, Reason: perr.Err.Error()}
			}
			return nil, &DataFormatError{Source: "flux csv", Reason: err.Error()}
		}
		line, _ := cr.FieldPos(0)
		flux, ferr := strconv.ParseFloat(record[0], 64)
		t, terr := strconv.ParseFloat(record[1], 64)
		if ferr != nil || terr != nil {
			return nil, &DataFormatError{Source: "flux csv", Line: line, Reason: fmt.Sprintf("could not parse %v", record)}
		}
		samples = append(samples, FluxSample{Flux: flux, Time: t})
	}
	return samples, nil
}

// WriteHistoryCSV writes every record of the trajectory after a commented header.
func WriteHistoryCSV(w io.Writer, tr *Trajectory) error {
	name := tr.Name
	if tr.Vehicle != nil {
		name = tr.Vehicle.String()
	}
	fmt.Fprintf(w, `# Creation date (UTC): %s
# Vehicle: %s
# Epoch (UTC): %s (JD %.6f)
# Termination: %s
# Angles in degrees, heat flux at the stagnation point
`, time.Now().UTC(), name, tr.Epoch.UTC(), julian.TimeToJD(tr.Epoch), tr.Termination)
	if tr.Err != nil {
		fmt.Fprintf(w, "# Error: %s\n", tr.Err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(historyColumns); err != nil {
		return err
	}
	row := make([]string, len(historyColumns))
	for i, s := range tr.States {
		d := tr.Derived[i]
		vals := []float64{s.T, s.Altitude / 1e3, s.Longitude * rad2deg, s.Latitude * rad2deg, s.Speed / 1e3, s.Heading * rad2deg,
			s.FlightPathAngle * rad2deg, s.Downrange / 1e3, tr.Bank[i] * rad2deg, d.Density, d.DecelerationG, d.QConvective,
			d.QRadiative, d.QTotal, s.HeatLoad}
		for j, v := range vals {
			row[j] = formatFloat(v)
		}
		row[len(row)-1] = strconv.Itoa(int(d.Flags))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportConfig configures the exporting of a trajectory.
type ExportConfig struct {
	OutputDir string
	Filename  string // prefix of the files, defaults to the trajectory name
	Flux      bool   // flux_vs_time CSV
	History   bool   // full history CSV
	Compress  bool   // zstd compress the history
	Timestamp bool
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.Flux && !c.History
}

func (c ExportConfig) path(tr *Trajectory, kind, ext string) string {
	name := c.Filename
	if name == "" {
		name = tr.Name
	}
	name = strings.Replace(strings.TrimSpace(name), " ", "_", -1)
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.OutputDir, fmt.Sprintf("%s-%s.%s", kind, name, ext))
}

// Export writes the configured files and returns their paths.
func Export(conf ExportConfig, tr *Trajectory) ([]string, error) {
	var written []string
	if conf.IsUseless() {
		return written, nil
	}
	if conf.OutputDir != "" {
		if err := os.MkdirAll(conf.OutputDir, 0o755); err != nil {
			return written, err
		}
	}
	if conf.Flux {
		path := conf.path(tr, "flux_vs_time", "csv")
		if err := writeFile(path, false, func(w io.Writer) error { return WriteFluxCSV(w, tr) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if conf.History {
		ext := "csv"
		if conf.Compress {
			ext = "csv.zst"
		}
		path := conf.path(tr, "history", ext)
		if err := writeFile(path, conf.Compress, func(w io.Writer) error { return WriteHistoryCSV(w, tr) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, compress bool, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if !compress {
		return write(f)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := write(enc); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
