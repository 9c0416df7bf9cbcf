package service

import (
	"fmt"
	"math"
)

// Insulin types recognized by the engine.
const (
	InsulinRapid        = "rapid"
	InsulinShort        = "short"
	InsulinIntermediate = "intermediate"
	InsulinLong         = "long"
	InsulinMixed        = "mixed"
)

// InsulinTypes lists the recognized insulin types in a stable order.
var InsulinTypes = []string{InsulinRapid, InsulinShort, InsulinIntermediate, InsulinLong, InsulinMixed}

// IsValidInsulinType reports whether t is one of the recognized insulin types.
func IsValidInsulinType(t string) bool {
	for _, v := range InsulinTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DefaultOnsetMinutes holds the per-type onset defaults applied when a
// prescription does not carry an explicit onset.
func DefaultOnsetMinutes() map[string]int {
	return map[string]int{
		InsulinRapid:        15,
		InsulinShort:        30,
		InsulinIntermediate: 90,
		InsulinLong:         60,
		InsulinMixed:        30,
	}
}

const fallbackOnsetMinutes = 30

// lateness policy per type: up to partialWindow minutes past the scheduled
// time a fraction of the dose is still useful, beyond that the dose is
// skipped (or, for long-acting, resumed at the next scheduled dose).
type latenessPolicy struct {
	partialWindow int
	fraction      float64
	tooLateAdvice string
	tooLateIsFull bool
}

var latenessPolicies = map[string]latenessPolicy{
	InsulinRapid:        {60, 0.6, "Too late for rapid dose; monitor blood sugar closely", false},
	InsulinShort:        {120, 0.5, "Too late for short-acting insulin; monitor blood sugar", false},
	InsulinIntermediate: {240, 0.75, "Missed dose; monitor blood sugar closely", false},
	InsulinLong:         {480, 0.5, "Too late for previous dose; continue next scheduled dose as planned", true},
	InsulinMixed:        {180, 0.7, "Too late for mixed dose; monitor blood sugar", false},
}

// DoseAdjuster computes onset-aware dose adjustments for missed doses. The
// onset defaults are fixed at construction so tests can run with alternate
// thresholds.
type DoseAdjuster struct {
	onsetDefaults map[string]int
}

func NewDoseAdjuster() *DoseAdjuster {
	return &DoseAdjuster{onsetDefaults: DefaultOnsetMinutes()}
}

// Adjust returns the adjusted dose and advice for a dose that is gapMinutes
// past its scheduled time. onsetMinutes <= 0 selects the per-type default.
// This is a pure decision table: an unrecognized insulin type is a normal
// branch returning a zero dose, not an error.
func (a *DoseAdjuster) Adjust(insulinType string, prescribedDose float64, gapMinutes, onsetMinutes int) (float64, string) {
	onset := onsetMinutes
	if onset <= 0 {
		var ok bool
		if onset, ok = a.onsetDefaults[insulinType]; !ok {
			onset = fallbackOnsetMinutes
		}
	}

	if gapMinutes <= onset {
		return prescribedDose, fmt.Sprintf("Take full dose now (%g units) - within onset period", prescribedDose)
	}

	policy, ok := latenessPolicies[insulinType]
	if !ok {
		return 0, "Unknown insulin type - consult healthcare provider"
	}

	if gapMinutes <= policy.partialWindow {
		partial := roundToTenth(prescribedDose * policy.fraction)
		return partial, fmt.Sprintf("Take partial dose (%.1f units) now - after onset", partial)
	}

	if policy.tooLateIsFull {
		return prescribedDose, policy.tooLateAdvice
	}
	return 0, policy.tooLateAdvice
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
