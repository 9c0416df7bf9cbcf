package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DoseLog holds one row per (user, meal, calendar day). LogDate carries the
// calendar day in YYYY-MM-DD form so the uniqueness constraint can enforce the
// upsert invariant inside the store instead of in application code.
type DoseLog struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID         uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_dose_user_meal_day;index" json:"user_id"`
	PrescriptionID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"prescription_id"`
	Meal           string    `gorm:"size:20;not null;uniqueIndex:idx_dose_user_meal_day" json:"meal"`
	LogDate        string    `gorm:"size:10;not null;uniqueIndex:idx_dose_user_meal_day" json:"log_date"`
	InsulinName    string    `gorm:"size:100" json:"insulin_name"`
	InsulinType    string    `gorm:"size:20;index" json:"insulin_type"`
	PrescribedDose float64   `json:"prescribed_dose"`
	ActualDose     *float64  `json:"actual_dose,omitempty"`
	ScheduledTime  time.Time `json:"scheduled_time"`
	ActualTime     time.Time `json:"actual_time"`
	Status         string    `gorm:"size:10;index" json:"status"`
	GapMinutes     int       `json:"gap_minutes"`
	AdjustedDose   *float64  `json:"adjusted_dose,omitempty"`
	Advice         string    `gorm:"type:text" json:"advice,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (d *DoseLog) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// QuestionnaireRecord is the persisted summary of one processed daily
// questionnaire submission.
type QuestionnaireRecord struct {
	ID                       uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID                   uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	PrescriptionID           uuid.UUID `gorm:"type:varchar(36);not null;index" json:"prescription_id"`
	Warnings                 string    `gorm:"type:text" json:"warnings,omitempty"`
	CriticalWarnings         string    `gorm:"type:text" json:"critical_warnings,omitempty"`
	TotalMealsProcessed      int       `json:"total_meals_processed"`
	OverdosesDetected        int       `json:"overdoses_detected"`
	TotalExcessUnits         float64   `json:"total_excess_units"`
	RequiresMedicalAttention bool      `gorm:"index" json:"requires_medical_attention"`
	CreatedAt                time.Time `gorm:"index" json:"created_at"`
}

func (q *QuestionnaireRecord) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
