package service

import (
	"fmt"
	"math"
)

// VerifyDose compares an actual dose against the prescribed dose and returns
// classification advice. Differences within 10% of the prescribed dose are
// acceptable in either direction; larger differences carry a monitoring
// warning. A zero prescribed dose is treated as a 0% difference so the check
// never divides by zero.
func VerifyDose(prescribedDose, actualDose float64) string {
	if actualDose == prescribedDose {
		return "Correct dose taken"
	}

	difference := math.Abs(actualDose - prescribedDose)
	var percentage float64
	if prescribedDose > 0 {
		percentage = difference / prescribedDose * 100
	}

	if actualDose > prescribedDose {
		if percentage <= 10 {
			return fmt.Sprintf("Close to prescribed dose (+%.1f units) - acceptable range", difference)
		}
		return fmt.Sprintf("Took %.1f units MORE than prescribed. Monitor for low blood sugar signs", difference)
	}

	if percentage <= 10 {
		return fmt.Sprintf("Close to prescribed dose (-%.1f units) - acceptable range", difference)
	}
	return fmt.Sprintf("Took %.1f units LESS than prescribed. Monitor blood sugar closely", difference)
}
