// Package plots renders entry trajectories with gonum/plot.
package plots

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	amat "github.com/M2I-ui/AMAT-code"
)

const dpi = 200

// Formats are the supported output formats, the first one is the default.
var Formats = []string{"png", "pdf", "eps", "svg"}

var errEmpty = errors.New("plots: empty trajectory")

// Render draws the figures requested by conf for the provided trajectories
// and returns the written paths. Nil or empty trajectories are skipped.
func Render(conf amat.PlotConfig, name string, trs []*amat.Trajectory) ([]string, error) {
	var written []string
	var valid []*amat.Trajectory
	for _, tr := range trs {
		if tr != nil && tr.Len() > 0 {
			valid = append(valid, tr)
		}
	}
	if conf.Summary {
		for _, tr := range valid {
			paths, err := Summary(tr, conf.OutputDir, conf.Formats...)
			written = append(written, paths...)
			if err != nil {
				return written, err
			}
		}
	}
	if conf.Comparison && len(valid) > 0 {
		paths, err := HeatingComparison(name, valid, conf.OutputDir, conf.Formats...)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Summary draws the altitude profiles of the speed, the deceleration, the heat flux
// and the heat load of a trajectory in a 2x2 figure, once per format.
func Summary(tr *amat.Trajectory, dir string, formats ...string) ([]string, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, errEmpty
	}
	alt := tr.AltitudesKm()
	load := tr.HeatLoad()
	for i := range load {
		load[i] /= 1e3
	}

	speed := newPlot("", "Speed, km/s", "Altitude, km")
	decel := newPlot("", "Deceleration, Earth g", "Altitude, km")
	flux := newPlot("", "Stagnation-point heat rate, W/cm^2", "Altitude, km")
	heat := newPlot("", "Stagnation-point heat load, kJ/cm^2", "Altitude, km")
	speed.Title.Text = tr.Name

	if err := addCurve(speed, tr.SpeedsKms(), alt, plotutil.Color(0), ""); err != nil {
		return nil, err
	}
	if err := addCurve(decel, tr.DecelerationG(), alt, plotutil.Color(1), ""); err != nil {
		return nil, err
	}
	if err := addCurve(flux, tr.ConvectiveFlux(), alt, plotutil.Color(1), "convective"); err != nil {
		return nil, err
	}
	if err := addCurve(flux, tr.RadiativeFlux(), alt, plotutil.Color(2), "radiative"); err != nil {
		return nil, err
	}
	if err := addCurve(flux, tr.TotalFlux(), alt, color.Black, "total"); err != nil {
		return nil, err
	}
	if err := addCurve(heat, load, alt, plotutil.Color(4), ""); err != nil {
		return nil, err
	}
	rows := [][]*plot.Plot{{speed, decel}, {flux, heat}}
	return saveAll(rows, 12*vg.Inch, 9*vg.Inch, filepath.Join(dir, "summary-"+fileName(tr.Name)), formats)
}

// HeatingComparison draws the convective heat flux of every trajectory against time, in minutes.
func HeatingComparison(name string, trs []*amat.Trajectory, dir string, formats ...string) ([]string, error) {
	if len(trs) == 0 {
		return nil, errEmpty
	}
	p := newPlot(name, "Time, min", "Stagnation-point heat rate, W/cm^2")
	p.Legend.Top = true
	for i, tr := range trs {
		if tr == nil || tr.Len() == 0 {
			return nil, errEmpty
		}
		if err := addCurve(p, tr.TimesMinutes(), tr.ConvectiveFlux(), plotutil.Color(i), tr.Name); err != nil {
			return nil, err
		}
	}
	return saveAll([][]*plot.Plot{{p}}, 8*vg.Inch, 6*vg.Inch, filepath.Join(dir, "heating-"+fileName(name)), formats)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Title.Padding = vg.Points(8)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)
	p.X.LineStyle.Width = vg.Points(1.2)
	p.Y.LineStyle.Width = vg.Points(1.2)
	p.Add(plotter.NewGrid())
	return p
}

// addCurve adds ys against xs, one line per run of finite points.
func addCurve(p *plot.Plot, xs, ys []float64, c color.Color, label string) error {
	labelled := false
	for _, seg := range segments(xs, ys) {
		if len(seg) < 2 {
			continue
		}
		l, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		l.LineStyle.Width = vg.Points(2)
		l.LineStyle.Color = c
		p.Add(l)
		if label != "" && !labelled {
			p.Legend.Add(label, l)
			labelled = true
		}
	}
	return nil
}

// segments splits the curve wherever either coordinate is not finite.
func segments(xs, ys []float64) []plotter.XYs {
	var (
		segs []plotter.XYs
		cur  plotter.XYs
	)
	for i := range xs {
		if i >= len(ys) {
			break
		}
		if !finite(xs[i]) || !finite(ys[i]) {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func fileName(name string) string {
	name = strings.Replace(strings.TrimSpace(name), " ", "_", -1)
	if name == "" {
		return "trajectory"
	}
	return name
}

func saveAll(rows [][]*plot.Plot, w, h vg.Length, base string, formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = Formats[:1]
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, format := range formats {
		path := base + "." + strings.ToLower(strings.TrimPrefix(format, "."))
		if err := save(rows, w, h, path); err != nil {
			return written, fmt.Errorf("plots: %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// save draws the rows of plots on one canvas, the format is that of the path extension.
func save(rows [][]*plot.Plot, w, h vg.Length, path string) error {
	var c vg.CanvasWriterTo
	switch format := filepath.Ext(path)[1:]; format {
	case "png":
		c = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))}
	default:
		var err error
		if c, err = draw.NewFormattedCanvas(w, h, format); err != nil {
			return err
		}
	}
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      len(rows),
		Cols:      len(rows[0]),
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 6,
		PadX:      vg.Millimeter * 10,
		PadY:      vg.Millimeter * 10,
	}
	canvases := plot.Align(rows, tiles, dc)
	for j, row := range rows {
		for i, p := range row {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := c.WriteTo(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
