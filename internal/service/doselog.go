package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gluvia/backend/internal/models"
)

const logDateLayout = "2006-01-02"

// Dose log statuses.
const (
	StatusTaken  = "taken"
	StatusMissed = "missed"
)

// RecordInput carries one dose event into the ledger.
type RecordInput struct {
	UserID         uuid.UUID
	PrescriptionID uuid.UUID
	Meal           string
	InsulinName    string
	InsulinType    string
	PrescribedDose float64
	OnsetMinutes   int
	Status         string
	ActualDose     *float64
	ActualTime     *time.Time
}

// DoseLogService is the ledger over the dose log store: it computes gap,
// adjusted dose and advice at write time and keeps at most one row per
// (user, meal, calendar day) regardless of how often the questionnaire is
// resubmitted that day.
type DoseLogService struct {
	db       *gorm.DB
	adjuster *DoseAdjuster
	now      func() time.Time
}

func NewDoseLogService(db *gorm.DB) *DoseLogService {
	return &DoseLogService{
		db:       db,
		adjuster: NewDoseAdjuster(),
		now:      time.Now,
	}
}

// Record upserts the (user, meal, today) entry. The conditional write runs as
// a single insert-or-update under the store's transaction isolation, so
// concurrent submissions for the same meal converge to one surviving row with
// last-write-wins fields.
func (s *DoseLogService) Record(ctx context.Context, in RecordInput) (*models.DoseLog, error) {
	now := s.now()
	scheduledTime := ScheduledTime(in.Meal, now)

	actualTime := now
	if in.ActualTime != nil {
		actualTime = *in.ActualTime
	}

	// for taken doses the gap is lateness against the schedule; doses logged
	// ahead of schedule clamp to zero. For missed doses it is the time since
	// the reported (or scheduled) meal, wrapping across midnight.
	var gapMinutes int
	if in.Status == StatusMissed {
		reference := scheduledTime
		if in.ActualTime != nil {
			reference = *in.ActualTime
		}
		gapMinutes = int(now.Sub(reference).Minutes())
		if gapMinutes < 0 {
			gapMinutes += 24 * 60
		}
	} else {
		gapMinutes = int(actualTime.Sub(scheduledTime).Minutes())
		if gapMinutes < 0 {
			gapMinutes = 0
		}
	}

	var adjustedDose float64
	var advice string
	switch {
	case in.Status == StatusMissed:
		adjustedDose, advice = s.adjuster.Adjust(in.InsulinType, in.PrescribedDose, gapMinutes, in.OnsetMinutes)
	case in.Status == StatusTaken && in.ActualDose != nil:
		adjustedDose = *in.ActualDose
		advice = VerifyDose(in.PrescribedDose, *in.ActualDose)
	default:
		adjustedDose = in.PrescribedDose
		advice = "Taken as prescribed"
	}

	entry := models.DoseLog{
		UserID:         in.UserID,
		PrescriptionID: in.PrescriptionID,
		Meal:           in.Meal,
		LogDate:        now.Format(logDateLayout),
		InsulinName:    in.InsulinName,
		InsulinType:    in.InsulinType,
		PrescribedDose: in.PrescribedDose,
		ActualDose:     in.ActualDose,
		ScheduledTime:  scheduledTime,
		ActualTime:     actualTime,
		Status:         in.Status,
		GapMinutes:     gapMinutes,
		AdjustedDose:   &adjustedDose,
		Advice:         advice,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "meal"}, {Name: "log_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"prescription_id", "insulin_name", "insulin_type", "prescribed_dose",
				"actual_dose", "scheduled_time", "actual_time", "status",
				"gap_minutes", "adjusted_dose", "advice", "updated_at",
			}),
		}).Create(&entry).Error; err != nil {
			return err
		}
		// re-read so the caller sees the surviving row, not the candidate
		return tx.Where("user_id = ? AND meal = ? AND log_date = ?", in.UserID, in.Meal, entry.LogDate).
			First(&entry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record %s dose: %w", in.Meal, err)
	}

	return &entry, nil
}

// TodayEntry returns today's entry for the given meal, or nil.
func (s *DoseLogService) TodayEntry(ctx context.Context, userID uuid.UUID, meal string) (*models.DoseLog, error) {
	var entry models.DoseLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND meal = ? AND log_date = ?", userID, meal, s.now().Format(logDateLayout)).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// TodayEntries returns all of today's entries for the user.
func (s *DoseLogService) TodayEntries(ctx context.Context, userID uuid.UUID) ([]models.DoseLog, error) {
	var entries []models.DoseLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", userID, s.now().Format(logDateLayout)).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load today's doses: %w", err)
	}
	return entries, nil
}

// History returns the user's dose entries for the past days, most recent
// first.
func (s *DoseLogService) History(ctx context.Context, userID uuid.UUID, days int) ([]models.DoseLog, error) {
	since := s.now().AddDate(0, 0, -days)
	var entries []models.DoseLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load dose history: %w", err)
	}
	return entries, nil
}
