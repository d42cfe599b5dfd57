// Package telemetry produces synthetic signal streams for demos, fixtures,
// and the daemon's built-in source. Every scenario is a closed-form function
// of time, so two generators at the same timestamps emit identical signals.
package telemetry

import (
	"fmt"
	"math"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region scenarios

// Scenario names a synthetic signal profile.
type Scenario string

const (
	// ScenarioStable is a slow oscillation well inside every limit.
	ScenarioStable Scenario = "stable"
	// ScenarioWarming is a steady ramp that trips the persistence check.
	ScenarioWarming Scenario = "warming"
	// ScenarioGlitch is the stable profile with one implausible spike.
	ScenarioGlitch Scenario = "glitch"
	// ScenarioDropout is the stable profile with a window of invalid telemetry.
	ScenarioDropout Scenario = "dropout"
	// ScenarioHysteresis is the stable profile with a high hysteresis index.
	ScenarioHysteresis Scenario = "hysteresis"
	// ScenarioIncoherent is the stable profile with a low coherence index.
	ScenarioIncoherent Scenario = "incoherent"
)

// Scenarios lists all known scenario names.
func Scenarios() []Scenario {
	return []Scenario{
		ScenarioStable, ScenarioWarming, ScenarioGlitch,
		ScenarioDropout, ScenarioHysteresis, ScenarioIncoherent,
	}
}

// ParseScenario validates a scenario name.
func ParseScenario(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", name)
}

// #endregion scenarios

// #region generator

const (
	baseTempC    = 25.0
	ambientTempC = 22.0
)

// Generator emits one scenario's signals at caller-chosen timestamps.
type Generator struct {
	scenario Scenario
}

// NewGenerator creates a generator for the given scenario.
func NewGenerator(scenario Scenario) *Generator {
	return &Generator{scenario: scenario}
}

// At returns the scenario's signals at time t (seconds).
func (g *Generator) At(t float64) readiness.Signals {
	sig := readiness.Signals{
		T:               t,
		TempC:           baseTempC + 0.2*math.Sin(t*0.5),
		AmbientC:        ambientTempC,
		HysteresisIndex: 0.3 + 0.2*math.Sin(t*0.2),
		CoherenceIndex:  0.7 + 0.2*math.Sin(t*0.3),
		Valid:           true,
	}

	switch g.scenario {
	case ScenarioWarming:
		sig.TempC = baseTempC + 0.2*t
	case ScenarioGlitch:
		if t >= 5.0 && t < 5.1 {
			sig.TempC += 8.0
		}
	case ScenarioDropout:
		if t >= 4.0 && t < 6.0 {
			sig.Valid = false
		}
	case ScenarioHysteresis:
		if t >= 3.0 {
			sig.HysteresisIndex = 0.9
		}
	case ScenarioIncoherent:
		if t >= 3.0 {
			sig.CoherenceIndex = 0.2
		}
	}

	return sig
}

// Sequence samples the scenario n times at a fixed tick, starting at t=0.
func (g *Generator) Sequence(n int, tick float64) []readiness.Signals {
	signals := make([]readiness.Signals, 0, n)
	for i := 0; i < n; i++ {
		signals = append(signals, g.At(float64(i)*tick))
	}
	return signals
}

// #endregion generator
