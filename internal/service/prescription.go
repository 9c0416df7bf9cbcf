package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gluvia/backend/internal/models"
	"github.com/gluvia/backend/internal/types"
)

const activePrescriptionTTL = 10 * time.Minute

// PrescriptionService manages prescriptions. At most one prescription per
// user is active; creating a new one deactivates all prior ones in the same
// transaction. The active prescription is cached in redis when a client is
// configured.
type PrescriptionService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewPrescriptionService(db *gorm.DB, redisClient *redis.Client) *PrescriptionService {
	return &PrescriptionService{db: db, redis: redisClient}
}

// Create validates the meal map at the boundary and stores the prescription,
// atomically deactivating any prior active prescription for the user.
func (s *PrescriptionService) Create(ctx context.Context, userID uuid.UUID, req *types.CreatePrescriptionRequest) (*models.Prescription, error) {
	if err := validateMealMap(req.Meals); err != nil {
		return nil, err
	}

	prescriptionDate := time.Now().UTC()
	if req.PrescriptionDate != nil {
		prescriptionDate = *req.PrescriptionDate
	}

	prescription := &models.Prescription{
		UserID:           userID,
		DoctorName:       req.DoctorName,
		DoctorPhone:      req.DoctorPhone,
		DoctorEmail:      req.DoctorEmail,
		ClinicName:       req.ClinicName,
		ScanURL:          req.ScanURL,
		PrescriptionDate: prescriptionDate,
		IsActive:         true,
	}
	for _, meal := range MealOrder() {
		spec, ok := req.Meals[meal]
		if !ok {
			continue
		}
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			Meal:         meal,
			InsulinName:  spec.Insulin,
			InsulinType:  spec.Type,
			Dose:         spec.Dose,
			OnsetMinutes: spec.Onset,
		})
	}
	// meals outside the processing order (e.g. bedtime) still belong to the
	// prescription
	for meal, spec := range req.Meals {
		if MealIndex(meal) < len(mealOrder) {
			continue
		}
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			Meal:         meal,
			InsulinName:  spec.Insulin,
			InsulinType:  spec.Type,
			Dose:         spec.Dose,
			OnsetMinutes: spec.Onset,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Prescription{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(prescription).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}

	s.invalidateCache(ctx, userID)
	slog.Info("prescription created", "user_id", userID, "prescription_id", prescription.ID, "meals", len(prescription.Items))
	return prescription, nil
}

// GetActive returns the user's active prescription, or ErrNoActivePrescription.
func (s *PrescriptionService) GetActive(ctx context.Context, userID uuid.UUID) (*models.Prescription, error) {
	if cached := s.cachedActive(ctx, userID); cached != nil {
		return cached, nil
	}

	var prescription models.Prescription
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&prescription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActivePrescription
		}
		return nil, fmt.Errorf("failed to load active prescription: %w", err)
	}

	s.cacheActive(ctx, &prescription)
	return &prescription, nil
}

// MealPlan indexes a prescription's items by meal name.
func MealPlan(p *models.Prescription) map[string]models.PrescriptionItem {
	plan := make(map[string]models.PrescriptionItem, len(p.Items))
	for _, item := range p.Items {
		plan[item.Meal] = item
	}
	return plan
}

func validateMealMap(meals map[string]types.InsulinSpecInput) error {
	if len(meals) == 0 {
		return newValidationError("invalid prescription data: no meal entries found")
	}
	for meal, spec := range meals {
		if spec.Insulin == "" {
			return newValidationError("missing insulin name for %s", meal)
		}
		if spec.Type == "" {
			return newValidationError("missing insulin type for %s", meal)
		}
		if !IsValidInsulinType(spec.Type) {
			return newValidationError("invalid insulin type %q for %s: must be one of %v", spec.Type, meal, InsulinTypes)
		}
		if spec.Dose <= 0 {
			return newValidationError("invalid dose for %s: must be greater than 0", meal)
		}
		if spec.Onset < 0 {
			return newValidationError("invalid onset for %s: must not be negative", meal)
		}
	}
	return nil
}

func activePrescriptionKey(userID uuid.UUID) string {
	return fmt.Sprintf("prescription:active:%s", userID)
}

func (s *PrescriptionService) cachedActive(ctx context.Context, userID uuid.UUID) *models.Prescription {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, activePrescriptionKey(userID)).Bytes()
	if err != nil {
		return nil
	}
	var prescription models.Prescription
	if err := json.Unmarshal(data, &prescription); err != nil {
		return nil
	}
	return &prescription
}

func (s *PrescriptionService) cacheActive(ctx context.Context, prescription *models.Prescription) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(prescription)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, activePrescriptionKey(prescription.UserID), data, activePrescriptionTTL).Err(); err != nil {
		slog.Warn("failed to cache active prescription", "user_id", prescription.UserID, "error", err)
	}
}

func (s *PrescriptionService) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, activePrescriptionKey(userID)).Err(); err != nil {
		slog.Warn("failed to invalidate prescription cache", "user_id", userID, "error", err)
	}
}
