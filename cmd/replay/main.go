package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/journal"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to readiness.db (journal mode)")
	runID := flag.String("run", "", "run ID to replay (journal mode, default latest)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/readiness.db [--run id]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runJournalMode(*dbPath, *runID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	signals := make([]readiness.Signals, len(f.Samples))
	for i := range f.Samples {
		signals[i] = f.Samples[i].ToSignals()
	}

	results := replay.Replay(f.Config, signals)
	divs := replay.Verify(results, f.ExpectedResults)
	printComparison(results, f.ExpectedResults)
	return report(results, divs)
}

// #endregion fixture-mode

// #region journal-mode

func runJournalMode(dbPath, runID string) int {
	jnl, err := journal.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		return 2
	}
	defer jnl.Close()

	var run journal.RunRecord
	if runID != "" {
		run, err = jnl.Run(runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "find run %s: %v\n", runID, err)
			return 2
		}
	} else {
		latest, err := jnl.LatestRun()
		if err != nil {
			fmt.Fprintf(os.Stderr, "find latest run: %v\n", err)
			return 2
		}
		if latest == nil {
			fmt.Fprintln(os.Stderr, "no runs found in journal")
			return 2
		}
		run = *latest
	}

	evals, err := jnl.Evaluations(run.RunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load evaluations: %v\n", err)
		return 2
	}
	if len(evals) == 0 {
		fmt.Fprintf(os.Stderr, "run %s has no evaluations\n", run.RunID)
		return 2
	}

	signals := make([]readiness.Signals, len(evals))
	expected := make([]replay.FixtureExpectedResult, len(evals))
	for i, ev := range evals {
		signals[i] = ev.Signals
		expected[i] = replay.ExpectedFromOutput(ev.Output)
	}

	fmt.Printf("replaying run %s (%d evaluations, started %s)\n",
		run.RunID, len(evals), run.StartedAt.Format("2006-01-02 15:04:05"))

	results := replay.Replay(run.Policy, signals)
	divs := replay.Verify(results, expected)
	printComparison(results, expected)
	return report(results, divs)
}

// #endregion journal-mode

// #region output

func printComparison(results []replay.Result, expected []replay.FixtureExpectedResult) {
	fmt.Printf("%-6s %-10s %-10s %-12s %-12s %s\n",
		"idx", "t", "readiness", "expected", "replayed", "match")
	for i, r := range results {
		actual := replay.ExpectedFromOutput(r.Output)
		expGate := "-"
		match := "-"
		if i < len(expected) {
			expGate = expected[i].Gate
			if actual == expected[i] {
				match = "ok"
			} else {
				match = "DIVERGED"
			}
		}
		fmt.Printf("%-6d %-10.3f %-10.4f %-12s %-12s %s\n",
			i, r.Signals.T, r.Output.Readiness, expGate, actual.Gate, match)
	}
}

func report(results []replay.Result, divs []replay.Divergence) int {
	s := replay.Summarize(results)
	fmt.Printf("\n%d samples: %d ALLOW, %d CAUTION, %d BLOCK (%d fail-safe)\n",
		s.Total, s.Allows, s.Cautions, s.Blocks, s.Failsafes)

	if len(divs) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d divergence(s):\n", len(divs))
		for _, d := range divs {
			fmt.Fprintf(os.Stderr, "  %s\n", d.String())
		}
		return 1
	}
	fmt.Println("replay matches recorded outcomes")
	return 0
}

// #endregion output
