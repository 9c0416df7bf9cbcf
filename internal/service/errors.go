package service

import (
	"errors"
	"fmt"
)

// ErrNoActivePrescription aborts a questionnaire submission before any meal is
// processed; there is nothing to evaluate against.
var ErrNoActivePrescription = errors.New("no active prescription found")

// InvalidDoseError is a blocking failure for a non-positive dose.
type InvalidDoseError struct {
	Dose float64
}

func (e *InvalidDoseError) Error() string {
	return fmt.Sprintf("invalid dose %g: dose must be greater than 0", e.Dose)
}

// DoseTooHighError is a life-safety blocking failure. It must reach the caller
// as a rejected request and is never downgraded to a warning.
type DoseTooHighError struct {
	Dose    float64
	Message string
}

func (e *DoseTooHighError) Error() string {
	return e.Message
}

// ValidationError marks malformed prescription or meal-time input. It is
// recoverable at the questionnaire level: the offending meal is skipped with a
// warning and processing continues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
