package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gluvia/backend/internal/database"
	"github.com/gluvia/backend/internal/middleware"
	"github.com/gluvia/backend/internal/service"
)

// HealthCheck returns the health status of the API
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Gluvia API is running",
			"version": "v1.0.0",
		})
	}
}

// Services bundles everything the route tree needs.
type Services struct {
	Auth          *service.AuthService
	Prescriptions *service.PrescriptionService
	Doses         *service.DoseLogService
	Questionnaire *service.QuestionnaireService
	Scans         *service.ScanStorageService
	Redis         *redis.Client
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, svcs Services) {
	router.GET("/health", HealthCheck(db))

	// questionnaire submissions are rate limited when redis is available
	var questionnaireLimiter *middleware.RateLimiter
	if svcs.Redis != nil {
		questionnaireLimiter = middleware.NewQuestionnaireRateLimiter(svcs.Redis)
	}

	authHandler := NewAuthHandler(svcs.Auth)
	prescriptionHandler := NewPrescriptionHandler(svcs.Prescriptions, svcs.Doses, svcs.Questionnaire, svcs.Scans)

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(svcs.Auth))
	prescriptionHandler.RegisterRoutes(protected, questionnaireLimiter)
}
