package service

import (
	"fmt"
	"log/slog"
)

// SafetyLimits holds the dose ceilings the validator enforces. The limits are
// fixed at construction so tests can run with alternate thresholds.
type SafetyLimits struct {
	// MaxSingleDose is the per-type maximum single dose in units.
	MaxSingleDose map[string]float64
	// DefaultMaxSingle applies to unrecognized insulin types.
	DefaultMaxSingle float64
	// AbsoluteCeiling is the type-independent emergency ceiling per dose.
	AbsoluteCeiling float64
	// RelativeCeilingFactor multiplies the type max to give the blocking
	// threshold for a single dose.
	RelativeCeilingFactor float64
	// MaxDailyTotal caps the summed actual doses across a day.
	MaxDailyTotal float64
	// MaxFastActingDaily caps the rapid+short subset of the daily total.
	MaxFastActingDaily float64
	// CriticalExcess is the summed units above prescribed considered critical.
	CriticalExcess float64
	// MaxBedtimeDose triggers the nighttime hypoglycemia warning.
	MaxBedtimeDose float64
}

// DefaultSafetyLimits returns the production thresholds.
func DefaultSafetyLimits() SafetyLimits {
	return SafetyLimits{
		MaxSingleDose: map[string]float64{
			InsulinRapid:        30,
			InsulinShort:        40,
			InsulinIntermediate: 60,
			InsulinLong:         80,
			InsulinMixed:        50,
		},
		DefaultMaxSingle:      30,
		AbsoluteCeiling:       200,
		RelativeCeilingFactor: 1.5,
		MaxDailyTotal:         200,
		MaxFastActingDaily:    100,
		CriticalExcess:        10,
		MaxBedtimeDose:        25,
	}
}

// DoseRecord is one dose as seen by the daily aggregate checks. Doses with a
// nil ActualDose are excluded from the sums.
type DoseRecord struct {
	ActualDose     *float64
	PrescribedDose float64
	InsulinType    string
}

// SafetyValidator enforces per-dose ceilings, daily aggregate ceilings and
// cross-meal overdose patterns. The three checks are independent: a single
// dangerous dose, cumulative overload across safe-looking doses, and a
// creeping pattern of moderate overdoses each trip a different one.
type SafetyValidator struct {
	limits SafetyLimits
}

func NewSafetyValidator() *SafetyValidator {
	return &SafetyValidator{limits: DefaultSafetyLimits()}
}

// NewSafetyValidatorWithLimits builds a validator with alternate thresholds.
func NewSafetyValidatorWithLimits(limits SafetyLimits) *SafetyValidator {
	return &SafetyValidator{limits: limits}
}

// ValidateSingleDose checks one dose against the blocking ceilings and returns
// non-fatal warnings. Blocking failures (InvalidDoseError, DoseTooHighError)
// must propagate to the caller and are never downgraded to warnings.
func (v *SafetyValidator) ValidateSingleDose(insulinType string, dose float64, meal string) ([]string, error) {
	if dose <= 0 {
		return nil, &InvalidDoseError{Dose: dose}
	}

	if dose > v.limits.AbsoluteCeiling {
		return nil, &DoseTooHighError{
			Dose:    dose,
			Message: fmt.Sprintf("dose %g units is extremely dangerous - seek immediate medical help", dose),
		}
	}

	maxDose, ok := v.limits.MaxSingleDose[insulinType]
	if !ok {
		maxDose = v.limits.DefaultMaxSingle
	}

	if dose > maxDose*v.limits.RelativeCeilingFactor {
		return nil, &DoseTooHighError{
			Dose:    dose,
			Message: fmt.Sprintf("dose %g units is dangerously high - contact doctor immediately", dose),
		}
	}

	var warnings []string
	if dose > maxDose {
		warnings = append(warnings, fmt.Sprintf("CRITICAL: %g units exceeds safe limit for %s insulin (%g units)", dose, insulinType, maxDose))
	}
	if meal == MealBedtime && dose > v.limits.MaxBedtimeDose {
		warnings = append(warnings, "HIGH BEDTIME DOSE: risk of nighttime hypoglycemia")
	}

	return warnings, nil
}

// ValidateDailyTotal checks the summed actual doses against the daily
// ceilings. Doses with no recorded actual value are excluded.
func (v *SafetyValidator) ValidateDailyTotal(doses []DoseRecord) []string {
	var warnings []string
	var total, fastActing float64

	for _, d := range doses {
		if d.ActualDose == nil {
			continue
		}
		total += *d.ActualDose
		if d.InsulinType == InsulinRapid || d.InsulinType == InsulinShort {
			fastActing += *d.ActualDose
		}
	}

	if total > v.limits.MaxDailyTotal {
		warnings = append(warnings, fmt.Sprintf("CRITICAL: daily total %g units exceeds safe limit (%g units)", total, v.limits.MaxDailyTotal))
	}
	if fastActing > v.limits.MaxFastActingDaily {
		warnings = append(warnings, fmt.Sprintf("WARNING: fast-acting insulin total %g units exceeds recommended daily limit (%g units)", fastActing, v.limits.MaxFastActingDaily))
	}

	return warnings
}

// CheckOverdosePattern scans a day's doses for a dangerous pattern: two or
// more overdoses, or summed excess beyond the critical threshold.
func (v *SafetyValidator) CheckOverdosePattern(doses []DoseRecord) (bool, []string) {
	var warnings []string
	overdoseCount := 0
	var totalExcess float64

	for _, d := range doses {
		if d.ActualDose == nil {
			continue
		}
		if *d.ActualDose > d.PrescribedDose {
			totalExcess += *d.ActualDose - d.PrescribedDose
			overdoseCount++
		}
	}

	isCritical := overdoseCount >= 2 || totalExcess > v.limits.CriticalExcess
	if isCritical {
		slog.Warn("critical overdose pattern detected", "overdose_count", overdoseCount, "total_excess_units", totalExcess)
		warnings = append(warnings,
			fmt.Sprintf("CRITICAL OVERDOSE PATTERN: %d overdoses, %g excess units", overdoseCount, totalExcess),
			"SEEK IMMEDIATE MEDICAL ATTENTION")
	}

	return isCritical, warnings
}
