package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/journal"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to readiness.db")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/readiness.db [--last N] [--run id] [--json]")
		os.Exit(2)
	}

	jnl, err := journal.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer jnl.Close()

	if *runID != "" {
		err = runDetailMode(jnl, *runID, *jsonOut)
	} else {
		err = runListMode(jnl, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type runRow struct {
	RunID       string `json:"run_id"`
	StartedAt   string `json:"started_at"`
	Evaluations int    `json:"evaluations"`
	TempBand    string `json:"temp_band"`
}

func runListMode(jnl *journal.Journal, last int, jsonOut bool) error {
	runs, err := jnl.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]runRow, len(runs))
	for i, run := range runs {
		evals, err := jnl.Evaluations(run.RunID)
		if err != nil {
			return err
		}
		rows[i] = runRow{
			RunID:       run.RunID,
			StartedAt:   run.StartedAt.Format("2006-01-02 15:04:05"),
			Evaluations: len(evals),
			TempBand:    fmt.Sprintf("[%g, %g]", run.Policy.TempMinC, run.Policy.TempMaxC),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-38s %-20s %-12s %s\n", "run_id", "started_at", "evaluations", "temp_band")
	for _, r := range rows {
		fmt.Printf("%-38s %-20s %-12d %s\n", r.RunID, r.StartedAt, r.Evaluations, r.TempBand)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type evalRow struct {
	Index     int      `json:"index"`
	T         float64  `json:"t"`
	TempC     float64  `json:"temp_c"`
	Readiness float64  `json:"readiness"`
	Gate      string   `json:"gate"`
	Flags     []string `json:"flags"`
}

func runDetailMode(jnl *journal.Journal, runID string, jsonOut bool) error {
	run, err := jnl.Run(runID)
	if err != nil {
		return fmt.Errorf("find run %s: %w", runID, err)
	}
	evals, err := jnl.Evaluations(run.RunID)
	if err != nil {
		return err
	}

	rows := make([]evalRow, len(evals))
	for i, ev := range evals {
		rows[i] = evalRow{
			Index:     i,
			T:         ev.Signals.T,
			TempC:     ev.Signals.TempC,
			Readiness: ev.Output.Readiness,
			Gate:      ev.Output.Gate.String(),
			Flags:     ev.Output.Flags.Names(),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("run %s started %s, %d evaluations\n\n",
		run.RunID, run.StartedAt.Format("2006-01-02 15:04:05"), len(evals))
	fmt.Printf("%-6s %-10s %-10s %-10s %-8s %s\n", "idx", "t", "temp_c", "readiness", "gate", "flags")
	for _, r := range rows {
		flags := strings.Join(r.Flags, ",")
		if flags == "" {
			flags = "-"
		}
		fmt.Printf("%-6d %-10.3f %-10.3f %-10.4f %-8s %s\n",
			r.Index, r.T, r.TempC, r.Readiness, r.Gate, flags)
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
