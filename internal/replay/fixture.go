package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Samples and
// expected results are parallel arrays indexed by evaluation order.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          readiness.Config        `json:"config"`
	Samples         []FixtureSample         `json:"samples"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureSample mirrors readiness.Signals with JSON tags. Optional fields use
// pointers so absent values serialize as null rather than NaN, which JSON
// cannot represent. The same shape is the line format for streamed signals.
type FixtureSample struct {
	T               *float64 `json:"t"`
	TempC           *float64 `json:"temp_c"`
	AmbientC        *float64 `json:"ambient_c"`
	HysteresisIndex *float64 `json:"hysteresis_index"`
	CoherenceIndex  *float64 `json:"coherence_index"`
	Valid           bool     `json:"valid"`
}

// FixtureExpectedResult captures the expected outcome per sample.
type FixtureExpectedResult struct {
	Gate  string `json:"gate"`
	Flags uint32 `json:"flags"`
}

// #endregion fixture-types

// #region conversions

// ToSignals converts a fixture sample to domain signals. Null fields become NaN.
func (s *FixtureSample) ToSignals() readiness.Signals {
	return readiness.Signals{
		T:               floatOrNaN(s.T),
		TempC:           floatOrNaN(s.TempC),
		AmbientC:        floatOrNaN(s.AmbientC),
		HysteresisIndex: floatOrNaN(s.HysteresisIndex),
		CoherenceIndex:  floatOrNaN(s.CoherenceIndex),
		Valid:           s.Valid,
	}
}

// SampleFromSignals converts domain signals to the fixture form. Non-finite
// fields become null.
func SampleFromSignals(sig readiness.Signals) FixtureSample {
	return FixtureSample{
		T:               ptrOrNil(sig.T),
		TempC:           ptrOrNil(sig.TempC),
		AmbientC:        ptrOrNil(sig.AmbientC),
		HysteresisIndex: ptrOrNil(sig.HysteresisIndex),
		CoherenceIndex:  ptrOrNil(sig.CoherenceIndex),
		Valid:           sig.Valid,
	}
}

// ExpectedFromOutput captures the replay-checked slice of an output.
func ExpectedFromOutput(out readiness.Output) FixtureExpectedResult {
	return FixtureExpectedResult{
		Gate:  out.Gate.String(),
		Flags: uint32(out.Flags),
	}
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func ptrOrNil(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// #endregion conversions

// #region fixture-io

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.ExpectedResults) != 0 && len(f.ExpectedResults) != len(f.Samples) {
		return nil, fmt.Errorf("fixture %s: %d samples but %d expected results",
			path, len(f.Samples), len(f.ExpectedResults))
	}
	return &f, nil
}

// WriteFixture serializes a fixture to path as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// BuildFixture evaluates signals with a fresh engine and records the outcomes
// as the fixture's expected results.
func BuildFixture(description string, cfg readiness.Config, signals []readiness.Signals) *Fixture {
	f := &Fixture{
		Description: description,
		Config:      cfg,
		Samples:     make([]FixtureSample, 0, len(signals)),
	}
	results := Replay(cfg, signals)
	for i, sig := range signals {
		f.Samples = append(f.Samples, SampleFromSignals(sig))
		f.ExpectedResults = append(f.ExpectedResults, ExpectedFromOutput(results[i].Output))
	}
	return f
}

// #endregion fixture-io
