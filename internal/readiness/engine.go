package readiness

import "math"

// #region engine

// Engine is the deterministic readiness evaluator. It holds only short-term
// memory (previous sample, smoothed trend, persistence age); identical
// (memory, signal) pairs always yield identical outputs. Not safe for
// concurrent use: one evaluation loop owns one engine.
type Engine struct {
	config Config

	hasPrev  bool
	prevT    float64
	prevTemp float64

	trend    float64 // EWMA of dT/dt
	trendAge float64 // seconds the trend sign has been consistent
}

// NewEngine creates an engine in its bootstrap state.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Config returns the policy the engine was constructed with.
func (e *Engine) Config() Config {
	return e.config
}

// Reset clears all engine memory. The next Evaluate call behaves exactly as
// the first call after construction.
func (e *Engine) Reset() {
	e.hasPrev = false
	e.prevT = 0
	e.prevTemp = 0
	e.trend = 0
	e.trendAge = 0
}

// #endregion engine

// #region evaluate

// Evaluate scores one telemetry snapshot. It never fails its caller: every
// input, however malformed, produces a fully populated Output, with
// untrustworthy inputs reported as fail-safe BLOCK outputs.
func (e *Engine) Evaluate(in Signals) Output {
	// 1. Required inputs. Memory is left untouched.
	if !in.Valid || !isFinite(in.T) || !isFinite(in.TempC) {
		return failSafe(FlagNone, FlagInputInvalid)
	}

	// 2. Bootstrap. A single sample carries no derivative information, so
	// eligibility cannot be asserted yet; record it and fail safe.
	if !e.hasPrev {
		e.hasPrev = true
		e.prevT = in.T
		e.prevTemp = in.TempC
		return failSafe(FlagNone, FlagStaleOrNonmono)
	}

	// 3. Temporal validation.
	dt := in.T - e.prevT
	if dt <= 0 {
		// Out-of-order or duplicate timestamp: keep the last good sample as
		// the reference for the next call.
		return failSafe(FlagNone, FlagStaleOrNonmono)
	}
	if dt > e.config.MaxSampleGapSec {
		// Stale stream: re-anchor on the current sample so the gap is
		// reported once instead of against ever-older data.
		e.prevT = in.T
		e.prevTemp = in.TempC
		return failSafe(FlagNone, FlagStaleOrNonmono)
	}

	// The band check precedes the glitch guard so a jump that also leaves
	// the operating band still reports the band violation on the fail-safe
	// output.
	var flags Flags
	if in.TempC < e.config.TempMinC || in.TempC > e.config.TempMaxC {
		flags |= FlagTempOutOfRange
	}

	// 4. Glitch guard: implausible single-step jump at a meaningful interval.
	// Treated as a rejected sample; memory is not advanced.
	if dt >= e.config.MaxSampleGapSec*0.5 && math.Abs(in.TempC-e.prevTemp) > e.config.MaxTempJumpC {
		return failSafe(flags, FlagInputInvalid)
	}

	// 5. Instantaneous derivative.
	gradient := (in.TempC - e.prevTemp) / dt

	// 6. Bounded EWMA trend and persistence age.
	alpha := clamp01(e.config.TrendAlpha)
	e.trend = alpha*gradient + (1-alpha)*e.trend
	signConsistent := (e.trend >= 0 && gradient >= 0) || (e.trend < 0 && gradient < 0)
	if signConsistent {
		e.trendAge += dt
	} else {
		e.trendAge = 0
	}

	// 7. Commit memory. Only past this point does the current sample become
	// the reference for the next call.
	e.prevT = in.T
	e.prevTemp = in.TempC

	// 8. Remaining eligibility constraints. Flags are independent and may
	// combine.
	if math.Abs(gradient) > e.config.MaxGradientCPerS {
		flags |= FlagGradientTooHigh
	}
	if e.trendAge >= e.config.PersistenceSec {
		if e.trend > 0 {
			flags |= FlagPersistentHeating
		} else if e.trend < 0 {
			flags |= FlagPersistentCooling
		}
	}
	if isFinite(in.HysteresisIndex) && in.HysteresisIndex >= e.config.HysteresisBlockThreshold {
		flags |= FlagHysteresisHigh
	}
	if isFinite(in.CoherenceIndex) && in.CoherenceIndex < e.config.CoherenceAllowThreshold {
		flags |= FlagCoherenceLow
	}

	// 9–10. Score, then map to a gate.
	out := Output{
		Flags:    flags,
		Gradient: gradient,
		Trend:    e.trend,
	}
	out.Readiness = scoreFlags(flags)
	out.StabilityScore = out.Readiness
	out.Gate = GateForReadiness(out.Readiness)

	// 11. Safety override: critical violations force BLOCK and zero the
	// score regardless of the penalty arithmetic.
	if flags&(FlagTempOutOfRange|FlagGradientTooHigh|FlagHysteresisHigh) != 0 {
		out.Readiness = 0
		out.StabilityScore = 0
		out.Gate = GateBlock
	}

	return out
}

// failSafe builds the forced-BLOCK output used on every untrusted-input path.
// Flags accumulated before the trigger are preserved on the output.
func failSafe(accumulated, reason Flags) Output {
	return Output{
		Readiness: 0,
		Gate:      GateBlock,
		Flags:     accumulated | reason | FlagFailsafeDefault,
	}
}

// #endregion evaluate

// #region scoring

// Readiness penalties per active constraint flag. Policy constants, not
// learned.
const (
	penaltyTempOutOfRange    = 0.60
	penaltyGradientTooHigh   = 0.60
	penaltyHysteresisHigh    = 0.70
	penaltyCoherenceLow      = 0.30
	penaltyPersistentHeating = 0.20
	penaltyPersistentCooling = 0.10
)

// scoreFlags computes the penalized readiness for a set of constraint flags,
// clamped to [0,1].
func scoreFlags(flags Flags) float64 {
	r := 1.0
	if flags&FlagTempOutOfRange != 0 {
		r -= penaltyTempOutOfRange
	}
	if flags&FlagGradientTooHigh != 0 {
		r -= penaltyGradientTooHigh
	}
	if flags&FlagHysteresisHigh != 0 {
		r -= penaltyHysteresisHigh
	}
	if flags&FlagCoherenceLow != 0 {
		r -= penaltyCoherenceLow
	}
	if flags&FlagPersistentHeating != 0 {
		r -= penaltyPersistentHeating
	}
	if flags&FlagPersistentCooling != 0 {
		r -= penaltyPersistentCooling
	}
	return clamp01(r)
}

// Gate mapping thresholds. Policy constants, independent of the scoring
// weights above.
const (
	allowThreshold   = 0.80
	cautionThreshold = 0.40
)

// GateForReadiness maps a readiness score to its discrete gate. It applies
// no safety override; that belongs to Evaluate.
func GateForReadiness(r float64) Gate {
	switch {
	case r >= allowThreshold:
		return GateAllow
	case r >= cautionThreshold:
		return GateCaution
	default:
		return GateBlock
	}
}

// #endregion scoring

// #region helpers

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion helpers
