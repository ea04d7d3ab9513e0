package plots

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	kitlog "github.com/go-kit/kit/log"

	amat "github.com/M2I-ui/AMAT-code"
)

func propagate(t *testing.T, name string, bankDeg float64) *amat.Trajectory {
	atm, err := amat.ExponentialAtmosphere(1.225, 7200, 150e3, 1e3)
	if err != nil {
		t.Fatal(err)
	}
	v, err := amat.NewVehicle("capsule", 5000, 190, 0.3, 12, 0, 1, amat.Earth.WithAtmosphere(atm))
	if err != nil {
		t.Fatal(err)
	}
	e, err := amat.NewEntry(v, amat.NewInitialState(120, 0, 0, 7.5, 0, -1.8, 0, 0), amat.SolverParams{Scheme: amat.RK4},
		amat.WithName(name), amat.WithLogger(kitlog.NewNopLogger()))
	if err != nil {
		t.Fatal(err)
	}
	tr, err := e.Propagate(150*time.Second, time.Second, amat.ConstantBankDeg(bankDeg))
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestSegments(t *testing.T) {
	nan := math.NaN()
	segs := segments([]float64{0, 1, 2, 3, 4, 5}, []float64{0, 1, nan, 3, 4, math.Inf(1)})
	if len(segs) != 2 || len(segs[0]) != 2 || len(segs[1]) != 2 || segs[1][0].X != 3 {
		t.Fatalf("segments=%v", segs)
	}
	if len(segments([]float64{nan}, []float64{1})) != 0 {
		t.Fatal("no finite point means no segment")
	}
}

func TestRender(t *testing.T) {
	over := propagate(t, "overshoot", 0)
	under := propagate(t, "undershoot", 180)
	dir := t.TempDir()
	conf := amat.PlotConfig{OutputDir: dir, Formats: []string{"png", "svg"}, Summary: true, Comparison: true}
	written, err := Render(conf, "return capsule", []*amat.Trajectory{over, nil, under})
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"summary-overshoot.png", "summary-overshoot.svg", "summary-undershoot.png", "summary-undershoot.svg",
		"heating-return_capsule.png", "heating-return_capsule.svg"}
	if len(written) != len(expected) {
		t.Fatalf("wrote %v", written)
	}
	for i, name := range expected {
		if written[i] != filepath.Join(dir, name) {
			t.Fatalf("%s != %s", written[i], name)
		}
		info, err := os.Stat(written[i])
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestErrors(t *testing.T) {
	if _, err := Summary(nil, t.TempDir()); err == nil {
		t.Fatal("nil trajectory should fail")
	}
	if _, err := HeatingComparison("none", nil, t.TempDir()); err == nil {
		t.Fatal("no trajectory should fail")
	}
	tr := propagate(t, "bad format", 0)
	if _, err := Summary(tr, t.TempDir(), "bmp"); err == nil {
		t.Fatal("bmp is not supported")
	}
}
