package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSingleDoseInvalid(t *testing.T) {
	validator := NewSafetyValidator()

	for _, dose := range []float64{0, -5} {
		_, err := validator.ValidateSingleDose(InsulinRapid, dose, MealBreakfast)
		require.Error(t, err)

		var invalidDose *InvalidDoseError
		assert.True(t, errors.As(err, &invalidDose))
		assert.Equal(t, dose, invalidDose.Dose)
	}
}

func TestValidateSingleDoseBlockingCeilings(t *testing.T) {
	validator := NewSafetyValidator()

	// above the absolute ceiling regardless of type
	_, err := validator.ValidateSingleDose(InsulinLong, 250, MealDinner)
	require.Error(t, err)
	var tooHigh *DoseTooHighError
	require.True(t, errors.As(err, &tooHigh))
	assert.Contains(t, tooHigh.Message, "extremely dangerous")

	// above 1.5x the rapid limit of 30
	_, err = validator.ValidateSingleDose(InsulinRapid, 46, MealBreakfast)
	require.Error(t, err)
	require.True(t, errors.As(err, &tooHigh))
	assert.Contains(t, tooHigh.Message, "dangerously high")

	// unrecognized types fall back to the default single-dose limit
	_, err = validator.ValidateSingleDose("ultra", 46, MealBreakfast)
	require.Error(t, err)
	assert.True(t, errors.As(err, &tooHigh))
}

func TestValidateSingleDoseWarnings(t *testing.T) {
	validator := NewSafetyValidator()

	// within the blocking ceiling but above the type limit
	warnings, err := validator.ValidateSingleDose(InsulinRapid, 32, MealBreakfast)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "exceeds safe limit for rapid insulin")

	// at the boundary nothing fires
	warnings, err = validator.ValidateSingleDose(InsulinRapid, 30, MealBreakfast)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// large bedtime doses risk nighttime hypoglycemia
	warnings, err = validator.ValidateSingleDose(InsulinLong, 26, MealBedtime)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "HIGH BEDTIME DOSE")

	// the same dose at dinner carries no warning
	warnings, err = validator.ValidateSingleDose(InsulinLong, 26, MealDinner)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateDailyTotal(t *testing.T) {
	validator := NewSafetyValidator()

	warnings := validator.ValidateDailyTotal([]DoseRecord{
		{ActualDose: floatPtr(120), PrescribedDose: 120, InsulinType: InsulinLong},
		{ActualDose: floatPtr(90), PrescribedDose: 90, InsulinType: InsulinIntermediate},
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "daily total 210 units exceeds safe limit")

	warnings = validator.ValidateDailyTotal([]DoseRecord{
		{ActualDose: floatPtr(60), PrescribedDose: 60, InsulinType: InsulinRapid},
		{ActualDose: floatPtr(50), PrescribedDose: 50, InsulinType: InsulinShort},
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "fast-acting insulin total 110 units")

	// doses without a recorded actual value are excluded from the sums
	warnings = validator.ValidateDailyTotal([]DoseRecord{
		{ActualDose: nil, PrescribedDose: 300, InsulinType: InsulinLong},
		{ActualDose: floatPtr(20), PrescribedDose: 20, InsulinType: InsulinRapid},
	})
	assert.Empty(t, warnings)
}

func TestCheckOverdosePattern(t *testing.T) {
	validator := NewSafetyValidator()

	// two moderate overdoses trip the pattern even with low total excess
	isCritical, warnings := validator.CheckOverdosePattern([]DoseRecord{
		{ActualDose: floatPtr(13), PrescribedDose: 10, InsulinType: InsulinRapid},
		{ActualDose: floatPtr(11), PrescribedDose: 8, InsulinType: InsulinShort},
	})
	assert.True(t, isCritical)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "CRITICAL OVERDOSE PATTERN: 2 overdoses, 6 excess units")
	assert.Equal(t, "SEEK IMMEDIATE MEDICAL ATTENTION", warnings[1])

	// three moderate overdoses are a pattern regardless of their size
	isCritical, _ = validator.CheckOverdosePattern([]DoseRecord{
		{ActualDose: floatPtr(15), PrescribedDose: 10, InsulinType: InsulinRapid},
		{ActualDose: floatPtr(13), PrescribedDose: 8, InsulinType: InsulinShort},
		{ActualDose: floatPtr(25), PrescribedDose: 20, InsulinType: InsulinLong},
	})
	assert.True(t, isCritical)

	// a single large excess trips it too
	isCritical, _ = validator.CheckOverdosePattern([]DoseRecord{
		{ActualDose: floatPtr(22), PrescribedDose: 10, InsulinType: InsulinRapid},
	})
	assert.True(t, isCritical)

	// one small overdose is not a pattern
	isCritical, warnings = validator.CheckOverdosePattern([]DoseRecord{
		{ActualDose: floatPtr(15), PrescribedDose: 10, InsulinType: InsulinRapid},
	})
	assert.False(t, isCritical)
	assert.Empty(t, warnings)
}

func TestValidatorWithAlternateLimits(t *testing.T) {
	limits := DefaultSafetyLimits()
	limits.MaxSingleDose[InsulinRapid] = 10
	validator := NewSafetyValidatorWithLimits(limits)

	warnings, err := validator.ValidateSingleDose(InsulinRapid, 12, MealBreakfast)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "12 units exceeds safe limit")
}
