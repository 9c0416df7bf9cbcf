package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gluvia/backend/internal/models"
	"github.com/gluvia/backend/internal/service"
	"github.com/gluvia/backend/internal/types"
)

const testJWTSecret = "test-secret-at-least-32-characters!!"

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Prescription{},
		&models.PrescriptionItem{},
		&models.DoseLog{},
		&models.QuestionnaireRecord{},
	))

	authService := service.NewAuthService(db, testJWTSecret)
	prescriptionService := service.NewPrescriptionService(db, nil)
	doseLogService := service.NewDoseLogService(db)
	questionnaireService := service.NewQuestionnaireService(db, prescriptionService, doseLogService)

	router := gin.New()
	RegisterRoutes(router, db, Services{
		Auth:          authService,
		Prescriptions: prescriptionService,
		Doses:         doseLogService,
		Questionnaire: questionnaireService,
	})
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp types.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func prescriptionBody() types.CreatePrescriptionRequest {
	return types.CreatePrescriptionRequest{
		Meals: map[string]types.InsulinSpecInput{
			"breakfast": {Insulin: "NovoRapid", Dose: 10, Type: "rapid"},
			"lunch":     {Insulin: "Actrapid", Dose: 8, Type: "short"},
			"dinner":    {Insulin: "Lantus", Dose: 20, Type: "long"},
		},
		DoctorName: "Dr. Smith",
	}
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRegisterAndLogin(t *testing.T) {
	router := setupTestRouter(t)
	registerUser(t, router)

	// duplicate registration conflicts
	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Username: "testuser", Email: "test@example.com", Password: "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{
		Username: "testuser", Password: "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{
		Username: "testuser", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPrescriptionRequiresAuth(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/prescriptions", "", prescriptionBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/active", "bad-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPrescriptionLifecycle(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	// no prescription yet
	w := doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/active", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/prescriptions", token, prescriptionBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/active", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "NovoRapid")

	w = doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/template", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "current_zone")
}

func TestPrescriptionValidationRejected(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	body := prescriptionBody()
	body.Meals["breakfast"] = types.InsulinSpecInput{Insulin: "NovoRapid", Dose: 10, Type: "ultra"}

	w := doRequest(t, router, http.MethodPost, "/api/v1/prescriptions", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid insulin type")
}

func TestDailyQuestionnaire(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	// questionnaire before any prescription
	w := doRequest(t, router, http.MethodPost, "/api/v1/prescriptions/daily-questionnaire", token, types.QuestionnaireRequest{
		Responses: map[string]types.MealResponse{},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/prescriptions", token, prescriptionBody())
	require.Equal(t, http.StatusCreated, w.Code)

	// breakfast is first in the processing order, so it is evaluated at any
	// time of day
	actual := 10.0
	w = doRequest(t, router, http.MethodPost, "/api/v1/prescriptions/daily-questionnaire", token, types.QuestionnaireRequest{
		Responses: map[string]types.MealResponse{
			"breakfast": {Taken: true, ActualDose: &actual},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result types.QuestionnaireResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Schedule)
	assert.Equal(t, "Correct dose taken", scheduleStatus(result, "Breakfast"))

	w = doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/doses/history", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "breakfast")
}

func TestDailyQuestionnaireDangerousDose(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/v1/prescriptions", token, prescriptionBody())
	require.Equal(t, http.StatusCreated, w.Code)

	dangerous := 250.0
	w = doRequest(t, router, http.MethodPost, "/api/v1/prescriptions/daily-questionnaire", token, types.QuestionnaireRequest{
		Responses: map[string]types.MealResponse{
			"breakfast": {Taken: true, ActualDose: &dangerous},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "requires_medical_attention")
}

func TestDoseHistoryValidation(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	w := doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/doses/history?days=50", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/doses/history?days=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/prescriptions/doses/history?days=7", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadScanUnconfigured(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/v1/prescriptions/upload", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAccountProfileAndDeletion(t *testing.T) {
	router := setupTestRouter(t)
	token := registerUser(t, router)

	w := doRequest(t, router, http.MethodGet, "/api/v1/auth/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "testuser")

	w = doRequest(t, router, http.MethodDelete, "/api/v1/auth/account", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// the deleted account cannot log in again
	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{
		Username: "testuser", Password: "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func scheduleStatus(result types.QuestionnaireResult, meal string) string {
	for _, row := range result.Schedule {
		if row.Meal == meal {
			return row.Status
		}
	}
	return ""
}
