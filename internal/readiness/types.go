package readiness

// #region gate

// Gate is the discrete eligibility state consumed by control layers.
type Gate uint8

const (
	GateBlock   Gate = 0 // energy delivery prohibited
	GateCaution Gate = 1 // transitional/marginal state
	GateAllow   Gate = 2 // energy delivery permitted
)

// String returns the wire name used in logs, the journal, and the API.
func (g Gate) String() string {
	switch g {
	case GateBlock:
		return "BLOCK"
	case GateCaution:
		return "CAUTION"
	case GateAllow:
		return "ALLOW"
	default:
		return "UNKNOWN"
	}
}

// GateFromString parses a wire gate name back into a Gate.
// Unknown names map to GateBlock.
func GateFromString(s string) Gate {
	switch s {
	case "ALLOW":
		return GateAllow
	case "CAUTION":
		return GateCaution
	default:
		return GateBlock
	}
}

// #endregion gate

// #region flags

// Flags is a bit set of independent decision reasons. Bits are wire-stable:
// they are persisted numerically in the journal and served numerically by
// the API, so their values must not be reordered.
type Flags uint32

const (
	FlagNone              Flags = 0
	FlagInputInvalid      Flags = 1 << 0 // input data quality failure
	FlagStaleOrNonmono    Flags = 1 << 1 // timestamp issue (bootstrap, backwards, gap)
	FlagTempOutOfRange    Flags = 1 << 2 // outside operating band
	FlagGradientTooHigh   Flags = 1 << 3 // |dT/dt| exceeds limit
	FlagPersistentHeating Flags = 1 << 4 // sustained positive trend
	FlagPersistentCooling Flags = 1 << 5 // sustained negative trend
	FlagHysteresisHigh    Flags = 1 << 6 // hysteresis index too high
	FlagCoherenceLow      Flags = 1 << 7 // coherence index too low
	FlagFailsafeDefault   Flags = 1 << 31 // output is a safety fallback, not a scored result
)

// Has reports whether every bit in mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Names returns the human-readable names of all set bits, in bit order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.bit != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// Meanings reports every known flag name with whether its bit is set.
func (f Flags) Meanings() map[string]bool {
	m := make(map[string]bool, len(flagNames))
	for _, fn := range flagNames {
		m[fn.name] = f&fn.bit != 0
	}
	return m
}

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagInputInvalid, "input_invalid"},
	{FlagStaleOrNonmono, "stale_or_nonmono"},
	{FlagTempOutOfRange, "temp_out_of_range"},
	{FlagGradientTooHigh, "gradient_too_high"},
	{FlagPersistentHeating, "persistent_heating"},
	{FlagPersistentCooling, "persistent_cooling"},
	{FlagHysteresisHigh, "hysteresis_high"},
	{FlagCoherenceLow, "coherence_low"},
	{FlagFailsafeDefault, "failsafe_default"},
}

// #endregion flags

// #region signals

// Signals is one telemetry snapshot, immutable for the duration of a call.
// Optional indicators use NaN to mean "not supplied".
type Signals struct {
	T               float64 // monotonic timestamp (seconds)
	TempC           float64 // absolute temperature or thermal proxy
	AmbientC        float64 // optional ambient reference, not used in gating
	HysteresisIndex float64 // optional [0,1], higher = more hysteresis
	CoherenceIndex  float64 // optional [0,1], higher = more coherent
	Valid           bool    // telemetry validity from upstream
}

// #endregion signals

// #region output

// Output is the fully populated result of one Evaluate call.
type Output struct {
	Readiness      float64 // eligibility score in [0,1]
	Gate           Gate
	Flags          Flags
	Gradient       float64 // instantaneous dT/dt (C/s)
	Trend          float64 // EWMA-smoothed dT/dt (C/s)
	StabilityScore float64 // currently mirrors Readiness
}

// #endregion output

// #region config

// Config holds the policy parameters for one engine instance. Every field is
// a deployment decision supplied up front; nothing is inferred or learned.
// The JSON/YAML tags are the audit wire format used by the journal and the
// policy file.
type Config struct {
	// Valid operating temperature band.
	TempMinC float64 `json:"temp_min_c" yaml:"temp_min_c"`
	TempMaxC float64 `json:"temp_max_c" yaml:"temp_max_c"`

	// Derivative limit (C/s).
	MaxGradientCPerS float64 `json:"max_abs_dtdt_c_per_s" yaml:"max_abs_dtdt_c_per_s"`

	// Maximum plausible single-step temperature jump (C).
	MaxTempJumpC float64 `json:"max_abs_temp_jump_c" yaml:"max_abs_temp_jump_c"`

	// Trend smoothing and persistence. Alpha is clamped into [0,1] at use;
	// persistence is how long a trend must hold before it matters.
	TrendAlpha     float64 `json:"ewma_alpha" yaml:"ewma_alpha"`
	PersistenceSec float64 `json:"persistence_s" yaml:"persistence_s"`

	// Optional indicator thresholds.
	HysteresisBlockThreshold float64 `json:"hysteresis_block_threshold" yaml:"hysteresis_block_threshold"`
	CoherenceAllowThreshold  float64 `json:"coherence_allow_threshold" yaml:"coherence_allow_threshold"`

	// Maximum permitted sample gap (seconds) before the stream is stale.
	MaxSampleGapSec float64 `json:"max_dt_s" yaml:"max_dt_s"`
}

// DefaultConfig returns the reference deployment policy.
func DefaultConfig() Config {
	return Config{
		TempMinC:                 -20.0,
		TempMaxC:                 60.0,
		MaxGradientCPerS:         0.25,
		MaxTempJumpC:             5.0,
		TrendAlpha:               0.2,
		PersistenceSec:           3.0,
		HysteresisBlockThreshold: 0.85,
		CoherenceAllowThreshold:  0.35,
		MaxSampleGapSec:          1.0,
	}
}

// #endregion config
