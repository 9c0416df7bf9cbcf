package types

import "time"

// RegisterRequest represents the request body for user registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries a freshly issued access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// InsulinSpecInput is one meal's insulin entry in a prescription payload.
type InsulinSpecInput struct {
	Insulin string  `json:"insulin" binding:"required"`
	Dose    float64 `json:"dose" binding:"required"`
	Type    string  `json:"type" binding:"required"`
	Onset   int     `json:"onset"`
}

// CreatePrescriptionRequest represents the request body for creating a
// prescription. Meals maps meal name to its insulin spec.
type CreatePrescriptionRequest struct {
	Meals            map[string]InsulinSpecInput `json:"prescription_data" binding:"required"`
	DoctorName       string                      `json:"doctor_name"`
	DoctorPhone      string                      `json:"doctor_phone"`
	DoctorEmail      string                      `json:"doctor_email"`
	ClinicName       string                      `json:"clinic_name"`
	ScanURL          string                      `json:"scan_url"`
	PrescriptionDate *time.Time                  `json:"prescription_date"`
}

// MealResponse is one meal's answer in a daily questionnaire submission.
// ActualDose is required when the dose was taken; MealTime (HH:MM) is
// required when it was missed.
type MealResponse struct {
	Taken      bool     `json:"taken"`
	ActualDose *float64 `json:"actual_dose"`
	MealTime   string   `json:"meal_time"`
}

// QuestionnaireRequest represents a daily questionnaire submission keyed by
// meal name. An empty submission is valid: every processable meal then reads
// as status unknown.
type QuestionnaireRequest struct {
	Responses map[string]MealResponse `json:"responses"`
}

// ScheduleRow is one meal's outcome in the daily schedule.
type ScheduleRow struct {
	Meal           string   `json:"meal"`
	Insulin        string   `json:"insulin"`
	PrescribedDose float64  `json:"prescribed_dose"`
	Status         string   `json:"status"`
	Advice         string   `json:"advice"`
	AdjustedDose   *float64 `json:"adjusted_dose,omitempty"`
}

// QuestionnaireSummary aggregates the outcome of one submission.
type QuestionnaireSummary struct {
	TotalMealsProcessed      int     `json:"total_meals_processed"`
	OverdosesDetected        int     `json:"overdoses_detected"`
	TotalExcessUnits         float64 `json:"total_excess_units"`
	RequiresMedicalAttention bool    `json:"requires_medical_attention"`
}

// QuestionnaireResult is the caller-facing result of a processed daily
// questionnaire.
type QuestionnaireResult struct {
	CurrentTime      string               `json:"current_time"`
	CurrentZone      string               `json:"current_zone"`
	Schedule         []ScheduleRow        `json:"schedule"`
	Warnings         []string             `json:"warnings"`
	CriticalWarnings []string             `json:"critical_warnings"`
	Summary          QuestionnaireSummary `json:"summary"`
}

// TemplateRow is one meal's entry in the questionnaire template.
type TemplateRow struct {
	Meal            string  `json:"meal"`
	Insulin         string  `json:"insulin"`
	PrescribedDose  float64 `json:"prescribed_dose"`
	InsulinType     string  `json:"insulin_type"`
	Onset           int     `json:"onset"`
	IsPastOrCurrent bool    `json:"is_past_or_current"`
}
