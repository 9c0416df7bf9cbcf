package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prescription is immutable after creation except for IsActive. At most one
// prescription per user is active at any time; creating a new one deactivates
// all prior ones in the same transaction.
type Prescription struct {
	ID               uuid.UUID          `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID           uuid.UUID          `gorm:"type:varchar(36);not null;index:idx_prescription_user_active" json:"user_id"`
	DoctorName       string             `gorm:"size:100" json:"doctor_name,omitempty"`
	DoctorPhone      string             `gorm:"size:30" json:"doctor_phone,omitempty"`
	DoctorEmail      string             `gorm:"size:100" json:"doctor_email,omitempty"`
	ClinicName       string             `gorm:"size:100" json:"clinic_name,omitempty"`
	ScanURL          string             `gorm:"size:255" json:"scan_url,omitempty"`
	PrescriptionDate time.Time          `json:"prescription_date"`
	IsActive         bool               `gorm:"index:idx_prescription_user_active" json:"is_active"`
	Items            []PrescriptionItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PrescriptionItem is the insulin spec for one meal of the owning prescription.
type PrescriptionItem struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	PrescriptionID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"prescription_id"`
	Meal           string    `gorm:"size:20;not null" json:"meal"`
	InsulinName    string    `gorm:"size:100;not null" json:"insulin"`
	InsulinType    string    `gorm:"size:20;not null" json:"type"`
	Dose           float64   `gorm:"not null" json:"dose"`
	OnsetMinutes   int       `json:"onset,omitempty"`
}

func (p *Prescription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (i *PrescriptionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
