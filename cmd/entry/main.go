package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	amat "github.com/M2I-ui/AMAT-code"
	"github.com/M2I-ui/AMAT-code/plots"
)

// This reads an entry scenario, propagates all of its cases, then exports and plots them.

const defaultScenario = "~~unset~~"

var (
	scenario    string
	verbose     bool
	metricsAddr string
)

func init() {
	// Read flags
	flag.StringVar(&scenario, "scenario", defaultScenario, "entry scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "log the propagation status periodically")
	flag.StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	sc, err := amat.LoadScenario(scenario)
	if err != nil {
		log.Fatal(err)
	}
	if verbose {
		log.Printf("[conf] %s", sc.Vehicle)
		log.Printf("[conf] %s", sc.Vehicle.Planet.Atmosphere)
		log.Printf("[conf] initial: %s", sc.Initial)
		log.Printf("[conf] %d case(s) on %d worker(s), %s every %s with %s", len(sc.Cases), sc.Workers, sc.Duration, sc.Step, sc.Solver.Scheme)
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "scenario", sc.Name)
	opts := []amat.EntryOption{amat.WithLogger(logger)}
	if !verbose {
		opts = append(opts, amat.WithLogEvery(0))
	}
	if metricsAddr != "" {
		m, err := amat.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, amat.WithMetrics(m))
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			logger.Log("level", "info", "subsys", "metrics", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				logger.Log("level", "critical", "subsys", "metrics", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results := sc.RunCases(ctx, opts...)

	failed := 0
	var trajectories []*amat.Trajectory
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Log("level", "error", "case", res.Case.Name, "err", res.Err)
		}
		if res.Trajectory == nil {
			continue
		}
		trajectories = append(trajectories, res.Trajectory)
		maxG, _ := res.Trajectory.MaxDeceleration()
		peakQ, _ := res.Trajectory.PeakHeatFlux()
		final := res.Trajectory.Final()
		log.Printf("%s: %s after %.1f s, max %.2f G, peak %.1f W/cm^2, heat load %.2f kJ/cm^2, downrange %.1f km",
			res.Case.Name, res.Trajectory.Termination, final.T, maxG, peakQ, final.HeatLoad/1e3, final.Downrange/1e3)
		written, err := amat.Export(sc.Export, res.Trajectory)
		if err != nil {
			log.Fatal(err)
		}
		for _, path := range written {
			log.Printf("%s: wrote %s", res.Case.Name, path)
		}
	}
	written, err := plots.Render(sc.Plots, sc.Name, trajectories)
	if err != nil {
		log.Fatal(err)
	}
	for _, path := range written {
		log.Printf("plotted %s", path)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
