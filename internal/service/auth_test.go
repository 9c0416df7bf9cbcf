package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluvia/backend/internal/models"
	"github.com/gluvia/backend/internal/types"
)

const testJWTSecret = "test-secret-at-least-32-characters!!"

func TestRegisterLoginAndValidate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testJWTSecret)
	ctx := context.Background()

	token, err := svc.Register(ctx, &types.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	// duplicate username or email is rejected
	_, err = svc.Register(ctx, &types.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrUserExists)

	loginToken, err := svc.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, loginToken)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsTamperedSecret(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testJWTSecret)

	token, err := svc.Register(context.Background(), &types.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	other := NewAuthService(db, "another-secret-at-least-32-chars!!!!")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestDeleteAccountRemovesAllData(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	ctx := context.Background()

	prescriptions := NewPrescriptionService(db, nil)
	_, err := prescriptions.Create(ctx, user.ID, validPrescriptionRequest())
	require.NoError(t, err)

	doses := NewDoseLogService(db)
	_, err = doses.Record(ctx, RecordInput{
		UserID: user.ID, Meal: MealBreakfast, InsulinType: InsulinRapid,
		PrescribedDose: 10, Status: StatusTaken, ActualDose: floatPtr(10),
	})
	require.NoError(t, err)

	svc := NewAuthService(db, testJWTSecret)
	require.NoError(t, svc.DeleteAccount(ctx, user.ID))

	for _, model := range []any{
		&models.User{}, &models.Prescription{}, &models.PrescriptionItem{},
		&models.DoseLog{}, &models.QuestionnaireRecord{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Equal(t, int64(0), count, "%T should be empty", model)
	}
}
