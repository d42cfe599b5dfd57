package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/journal"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/replay"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/telemetry"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to readiness.db (journal mode)")
	runID := flag.String("run", "", "run ID to export (journal mode, default latest)")
	scenario := flag.String("scenario", "", "synthetic scenario to export (scenario mode)")
	samples := flag.Int("samples", 50, "number of samples (scenario mode)")
	tick := flag.Float64("tick", 0.5, "seconds between samples (scenario mode)")
	out := flag.String("out", "", "output fixture path")
	desc := flag.String("desc", "", "fixture description")
	flag.Parse()

	if *out == "" || (*dbPath == "" && *scenario == "") || (*dbPath != "" && *scenario != "") {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/readiness.db [--run id] --out fixture.json")
		fmt.Fprintln(os.Stderr, "       fixture-export --scenario name [--samples N] [--tick s] --out fixture.json")
		os.Exit(2)
	}

	var (
		f   *replay.Fixture
		err error
	)
	if *scenario != "" {
		f, err = fromScenario(*scenario, *samples, *tick, *desc)
	} else {
		f, err = fromJournal(*dbPath, *runID, *desc)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := replay.WriteFixture(*out, f); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d samples)\n", *out, len(f.Samples))
}

// #endregion main

// #region sources

func fromScenario(name string, samples int, tick float64, desc string) (*replay.Fixture, error) {
	scenario, err := telemetry.ParseScenario(name)
	if err != nil {
		return nil, err
	}
	if desc == "" {
		desc = fmt.Sprintf("synthetic %s scenario, %d samples at %.3fs tick", scenario, samples, tick)
	}
	signals := telemetry.NewGenerator(scenario).Sequence(samples, tick)
	return replay.BuildFixture(desc, readiness.DefaultConfig(), signals), nil
}

func fromJournal(dbPath, runID, desc string) (*replay.Fixture, error) {
	jnl, err := journal.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer jnl.Close()

	var run journal.RunRecord
	if runID != "" {
		run, err = jnl.Run(runID)
		if err != nil {
			return nil, fmt.Errorf("find run %s: %w", runID, err)
		}
	} else {
		latest, err := jnl.LatestRun()
		if err != nil {
			return nil, fmt.Errorf("find latest run: %w", err)
		}
		if latest == nil {
			return nil, fmt.Errorf("no runs found in journal")
		}
		run = *latest
	}

	evals, err := jnl.Evaluations(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	if len(evals) == 0 {
		return nil, fmt.Errorf("run %s has no evaluations", run.RunID)
	}

	signals := make([]readiness.Signals, len(evals))
	for i, ev := range evals {
		signals[i] = ev.Signals
	}
	if desc == "" {
		desc = fmt.Sprintf("exported from run %s (%d evaluations)", run.RunID, len(evals))
	}

	// Expected results come from a fresh engine under the recorded policy, so
	// the fixture is self-consistent even if the journal predates an engine fix.
	return replay.BuildFixture(desc, run.Policy, signals), nil
}

// #endregion sources
