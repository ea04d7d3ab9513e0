package amat

import (
	"context"
	"sync"
)

// Result is the outcome of one case.
type Result struct {
	Case       Case
	Trajectory *Trajectory // may be partial, or nil if the case could not start
	Err        error
}

// caseJob is a unit of work for the worker pool.
type caseJob struct {
	index int
	c     Case
}

// RunCases propagates every case of the scenario on a pool of workers.
// Cases share the vehicle and its atmosphere read-only, each one owns its Entry.
// Results are returned in the order of the cases.
func (sc *Scenario) RunCases(ctx context.Context, opts ...EntryOption) []Result {
	results := make([]Result, len(sc.Cases))
	ran := make([]bool, len(sc.Cases))
	workers := sc.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(sc.Cases) {
		workers = len(sc.Cases)
	}

	jobs := make(chan caseJob, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				// Each worker writes to its own index, no locking needed.
				results[job.index] = sc.runCase(ctx, job.c, opts)
				ran[job.index] = true
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, c := range sc.Cases {
			select {
			case jobs <- caseJob{index: i, c: c}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	for i := range results {
		if !ran[i] {
			// Never dispatched because the context was done.
			results[i] = Result{Case: sc.Cases[i], Err: ctx.Err()}
		}
	}
	return results
}

func (sc *Scenario) runCase(ctx context.Context, c Case, opts []EntryOption) Result {
	e, err := sc.NewEntry(c, opts...)
	if err != nil {
		return Result{Case: c, Err: err}
	}
	tr, err := e.PropagateContext(ctx, sc.Duration, sc.Step, c.Control)
	return Result{Case: c, Trajectory: tr, Err: err}
}
