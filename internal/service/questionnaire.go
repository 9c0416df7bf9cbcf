package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gluvia/backend/internal/models"
	"github.com/gluvia/backend/internal/types"
)

// QuestionnaireService processes daily questionnaire submissions: for every
// meal up to the current zone it resolves taken/missed/unset, runs the dose
// adjustment and safety checks, records the outcome through the dose ledger
// and assembles the daily schedule with warnings and a summary.
type QuestionnaireService struct {
	db            *gorm.DB
	prescriptions *PrescriptionService
	doses         *DoseLogService
	adjuster      *DoseAdjuster
	safety        *SafetyValidator
	now           func() time.Time
}

func NewQuestionnaireService(db *gorm.DB, prescriptions *PrescriptionService, doses *DoseLogService) *QuestionnaireService {
	return &QuestionnaireService{
		db:            db,
		prescriptions: prescriptions,
		doses:         doses,
		adjuster:      NewDoseAdjuster(),
		safety:        NewSafetyValidator(),
		now:           time.Now,
	}
}

// Process evaluates one submission against the user's active prescription.
// Blocking safety failures abort the remaining meals and propagate; entries
// already written for earlier meals are not rolled back. Per-meal input
// problems become warnings and processing continues.
func (s *QuestionnaireService) Process(ctx context.Context, userID uuid.UUID, req *types.QuestionnaireRequest) (*types.QuestionnaireResult, error) {
	prescription, err := s.prescriptions.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	zone := CurrentMealZone(now)
	currentIndex := MealIndex(zone)
	plan := MealPlan(prescription)

	schedule := []types.ScheduleRow{}
	warnings := []string{}
	criticalWarnings := []string{}
	var dailyDoses []DoseRecord

	mealsProcessed := 0
	overdoseCount := 0
	var totalExcess float64

	for _, meal := range mealOrder {
		item, ok := plan[meal]
		if !ok {
			continue
		}

		if MealIndex(meal) > currentIndex {
			// future meals are never processed or logged
			schedule = append(schedule, types.ScheduleRow{
				Meal:           titleCase(meal),
				Insulin:        item.InsulinName,
				PrescribedDose: item.Dose,
				Status:         fmt.Sprintf("%g units (Take as scheduled)", item.Dose),
				Advice:         "Take as usual when time comes",
			})
			continue
		}

		response, answered := req.Responses[meal]
		if !answered {
			schedule = append(schedule, types.ScheduleRow{
				Meal:           titleCase(meal),
				Insulin:        item.InsulinName,
				PrescribedDose: item.Dose,
				Status:         fmt.Sprintf("%g units (Status unknown)", item.Dose),
				Advice:         "Please update your dose status",
			})
			continue
		}

		row, err := s.processResponse(ctx, userID, prescription.ID, item, meal, response, now, &warnings, &dailyDoses, &overdoseCount, &totalExcess)
		if err != nil {
			return nil, err
		}
		schedule = append(schedule, row)
		mealsProcessed++
	}

	if len(dailyDoses) > 0 {
		warnings = append(warnings, s.safety.ValidateDailyTotal(dailyDoses)...)
		if isCritical, patternWarnings := s.safety.CheckOverdosePattern(dailyDoses); isCritical {
			warnings = append(warnings, patternWarnings...)
		}
	}

	if overdoseCount >= 2 {
		criticalWarnings = append(criticalWarnings,
			fmt.Sprintf("CRITICAL: Multiple overdoses detected (%d meals)", overdoseCount),
			fmt.Sprintf("Total excess insulin: %g units - CONTACT DOCTOR IMMEDIATELY", totalExcess),
			"Monitor blood sugar every 30 minutes")
		slog.Error("multiple overdoses detected", "user_id", userID, "overdose_count", overdoseCount, "total_excess_units", totalExcess)
	} else if totalExcess > s.safety.limits.CriticalExcess {
		criticalWarnings = append(criticalWarnings,
			fmt.Sprintf("WARNING: High excess insulin detected (%g units)", totalExcess),
			"Monitor blood sugar closely and have glucose tablets ready")
	}

	result := &types.QuestionnaireResult{
		CurrentTime:      now.Format("15:04"),
		CurrentZone:      strings.ToUpper(zone),
		Schedule:         schedule,
		Warnings:         warnings,
		CriticalWarnings: criticalWarnings,
		Summary: types.QuestionnaireSummary{
			TotalMealsProcessed:      mealsProcessed,
			OverdosesDetected:        overdoseCount,
			TotalExcessUnits:         totalExcess,
			RequiresMedicalAttention: overdoseCount >= 2 || totalExcess > s.safety.limits.CriticalExcess,
		},
	}

	s.recordSubmission(ctx, userID, prescription.ID, result)
	return result, nil
}

func (s *QuestionnaireService) processResponse(
	ctx context.Context,
	userID, prescriptionID uuid.UUID,
	item models.PrescriptionItem,
	meal string,
	response types.MealResponse,
	now time.Time,
	warnings *[]string,
	dailyDoses *[]DoseRecord,
	overdoseCount *int,
	totalExcess *float64,
) (types.ScheduleRow, error) {
	row := types.ScheduleRow{
		Meal:           titleCase(meal),
		Insulin:        item.InsulinName,
		PrescribedDose: item.Dose,
	}

	switch {
	case response.Taken && response.ActualDose != nil:
		actualDose := *response.ActualDose

		doseWarnings, err := s.safety.ValidateSingleDose(item.InsulinType, actualDose, meal)
		if err != nil {
			slog.Error("dangerous dose detected", "user_id", userID, "meal", meal, "dose", actualDose, "error", err)
			return row, fmt.Errorf("dangerous dose detected for %s (%g units, user %s): %w", meal, actualDose, userID, err)
		}
		*warnings = append(*warnings, doseWarnings...)
		*dailyDoses = append(*dailyDoses, DoseRecord{
			ActualDose:     response.ActualDose,
			PrescribedDose: item.Dose,
			InsulinType:    item.InsulinType,
		})

		switch {
		case actualDose == item.Dose:
			row.Status = "Correct dose taken"
			row.Advice = fmt.Sprintf("Took %g units as prescribed", actualDose)
		case actualDose > item.Dose:
			excess := actualDose - item.Dose
			*totalExcess += excess
			*overdoseCount++
			row.Status = "OVERDOSE WARNING"
			row.Advice = fmt.Sprintf("You took %g units, which is %g units MORE than prescribed (%g). Monitor blood sugar closely", actualDose, excess, item.Dose)
			*warnings = append(*warnings, fmt.Sprintf("%s: OVERDOSE of %g units detected", strings.ToUpper(meal), excess))
		default:
			row.Status = "Underdose"
			row.Advice = fmt.Sprintf("You took %g units, which is LESS than prescribed (%g). Monitor sugar levels", actualDose, item.Dose)
		}
		row.AdjustedDose = response.ActualDose

		s.recordDose(ctx, RecordInput{
			UserID:         userID,
			PrescriptionID: prescriptionID,
			Meal:           meal,
			InsulinName:    item.InsulinName,
			InsulinType:    item.InsulinType,
			PrescribedDose: item.Dose,
			OnsetMinutes:   item.OnsetMinutes,
			Status:         StatusTaken,
			ActualDose:     response.ActualDose,
			ActualTime:     &now,
		}, warnings)

	case response.Taken:
		// taken without a reported amount: assume the prescribed dose
		row.Status = fmt.Sprintf("Taken: %g units", item.Dose)
		row.Advice = "Taken as prescribed"
		s.recordDose(ctx, RecordInput{
			UserID:         userID,
			PrescriptionID: prescriptionID,
			Meal:           meal,
			InsulinName:    item.InsulinName,
			InsulinType:    item.InsulinType,
			PrescribedDose: item.Dose,
			OnsetMinutes:   item.OnsetMinutes,
			Status:         StatusTaken,
			ActualTime:     &now,
		}, warnings)

	case response.MealTime != "":
		parsed, err := time.Parse("15:04", response.MealTime)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("Invalid time format for %s: %q", meal, response.MealTime))
			row.Status = "Invalid input"
			row.Advice = "Please provide a valid time format (HH:MM)"
			return row, nil
		}

		mealAt := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		gapMinutes := int(now.Sub(mealAt).Minutes())
		if gapMinutes < 0 {
			// the meal happened before midnight relative to now
			gapMinutes += 24 * 60
		}

		adjustedDose, advice := s.adjuster.Adjust(item.InsulinType, item.Dose, gapMinutes, item.OnsetMinutes)
		row.Status = "Missed dose"
		row.Advice = fmt.Sprintf("Missed dose handling: %g units recommended - %s", adjustedDose, advice)
		row.AdjustedDose = &adjustedDose

		s.recordDose(ctx, RecordInput{
			UserID:         userID,
			PrescriptionID: prescriptionID,
			Meal:           meal,
			InsulinName:    item.InsulinName,
			InsulinType:    item.InsulinType,
			PrescribedDose: item.Dose,
			OnsetMinutes:   item.OnsetMinutes,
			Status:         StatusMissed,
			ActualTime:     &mealAt,
		}, warnings)

	default:
		*warnings = append(*warnings, fmt.Sprintf("No meal time provided for %s", meal))
		row.Status = "Invalid input"
		row.Advice = "Please provide the time you had the meal (HH:MM)"
	}

	return row, nil
}

// recordDose writes through the ledger; a storage failure on one meal becomes
// a warning naming the meal, not an abort.
func (s *QuestionnaireService) recordDose(ctx context.Context, in RecordInput, warnings *[]string) {
	if _, err := s.doses.Record(ctx, in); err != nil {
		slog.Error("failed to log dose", "user_id", in.UserID, "meal", in.Meal, "error", err)
		*warnings = append(*warnings, fmt.Sprintf("Failed to log %s dose: %v", in.Meal, err))
	}
}

// recordSubmission persists the audit summary of a processed questionnaire.
func (s *QuestionnaireService) recordSubmission(ctx context.Context, userID, prescriptionID uuid.UUID, result *types.QuestionnaireResult) {
	warningsJSON, _ := json.Marshal(result.Warnings)
	criticalJSON, _ := json.Marshal(result.CriticalWarnings)

	record := models.QuestionnaireRecord{
		UserID:                   userID,
		PrescriptionID:           prescriptionID,
		Warnings:                 string(warningsJSON),
		CriticalWarnings:         string(criticalJSON),
		TotalMealsProcessed:      result.Summary.TotalMealsProcessed,
		OverdosesDetected:        result.Summary.OverdosesDetected,
		TotalExcessUnits:         result.Summary.TotalExcessUnits,
		RequiresMedicalAttention: result.Summary.RequiresMedicalAttention,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		slog.Error("failed to record questionnaire submission", "user_id", userID, "error", err)
	}
}

// Template builds the questionnaire template rows for the user's active
// prescription.
func (s *QuestionnaireService) Template(ctx context.Context, userID uuid.UUID) ([]types.TemplateRow, string, error) {
	prescription, err := s.prescriptions.GetActive(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	zone := CurrentMealZone(now)
	currentIndex := MealIndex(zone)
	plan := MealPlan(prescription)

	rows := []types.TemplateRow{}
	for i, meal := range mealOrder {
		item, ok := plan[meal]
		if !ok {
			continue
		}
		onset := item.OnsetMinutes
		if onset <= 0 {
			onset = DefaultOnsetMinutes()[item.InsulinType]
		}
		rows = append(rows, types.TemplateRow{
			Meal:            titleCase(meal),
			Insulin:         item.InsulinName,
			PrescribedDose:  item.Dose,
			InsulinType:     item.InsulinType,
			Onset:           onset,
			IsPastOrCurrent: i <= currentIndex,
		})
	}
	return rows, strings.ToUpper(zone), nil
}

func titleCase(meal string) string {
	if meal == "" {
		return meal
	}
	return strings.ToUpper(meal[:1]) + meal[1:]
}
