// Package replay re-evaluates recorded signal sequences against a fresh
// engine. Because the engine is deterministic, a recorded run replayed under
// the same policy must reproduce its gates and flags exactly; any divergence
// means the policy or the engine changed.
package replay

import (
	"fmt"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region types

// Result captures the outcome of replaying one sample.
type Result struct {
	Index   int
	Signals readiness.Signals
	Output  readiness.Output
}

// Divergence is one sample whose replayed outcome differs from expectation.
type Divergence struct {
	Index    int
	Expected FixtureExpectedResult
	Actual   FixtureExpectedResult
}

func (d Divergence) String() string {
	return fmt.Sprintf("sample %d: expected %s/%#x, got %s/%#x",
		d.Index, d.Expected.Gate, d.Expected.Flags, d.Actual.Gate, d.Actual.Flags)
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total     int
	Allows    int
	Cautions  int
	Blocks    int
	Failsafes int
}

// #endregion types

// #region replay

// Replay feeds the signals through a fresh engine under the given policy and
// returns one result per sample. Operates entirely in memory.
func Replay(cfg readiness.Config, signals []readiness.Signals) []Result {
	engine := readiness.NewEngine(cfg)
	results := make([]Result, 0, len(signals))
	for i, sig := range signals {
		results = append(results, Result{
			Index:   i,
			Signals: sig,
			Output:  engine.Evaluate(sig),
		})
	}
	return results
}

// Verify compares replayed results against expectations, returning one
// divergence per mismatched sample. Gates and flags must match exactly.
func Verify(results []Result, expected []FixtureExpectedResult) []Divergence {
	var divs []Divergence
	n := len(results)
	if len(expected) < n {
		n = len(expected)
	}
	for i := 0; i < n; i++ {
		actual := ExpectedFromOutput(results[i].Output)
		if actual != expected[i] {
			divs = append(divs, Divergence{Index: i, Expected: expected[i], Actual: actual})
		}
	}
	for i := n; i < len(results); i++ {
		divs = append(divs, Divergence{Index: i, Actual: ExpectedFromOutput(results[i].Output)})
	}
	for i := n; i < len(expected); i++ {
		divs = append(divs, Divergence{Index: i, Expected: expected[i]})
	}
	return divs
}

// Summarize computes aggregate gate counts from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Output.Gate {
		case readiness.GateAllow:
			s.Allows++
		case readiness.GateCaution:
			s.Cautions++
		case readiness.GateBlock:
			s.Blocks++
		}
		if r.Output.Flags.Has(readiness.FlagFailsafeDefault) {
			s.Failsafes++
		}
	}
	return s
}

// #endregion replay
