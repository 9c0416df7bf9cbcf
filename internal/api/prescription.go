package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gluvia/backend/internal/middleware"
	"github.com/gluvia/backend/internal/service"
	"github.com/gluvia/backend/internal/types"
)

const (
	historyDefaultDays = 7
	historyMaxDays     = 30
	scanMaxBytes       = 10 << 20
)

// PrescriptionHandler serves prescription, questionnaire and dose history
// endpoints.
type PrescriptionHandler struct {
	prescriptions *service.PrescriptionService
	doses         *service.DoseLogService
	questionnaire *service.QuestionnaireService
	scans         *service.ScanStorageService
}

func NewPrescriptionHandler(
	prescriptions *service.PrescriptionService,
	doses *service.DoseLogService,
	questionnaire *service.QuestionnaireService,
	scans *service.ScanStorageService,
) *PrescriptionHandler {
	return &PrescriptionHandler{
		prescriptions: prescriptions,
		doses:         doses,
		questionnaire: questionnaire,
		scans:         scans,
	}
}

func (h *PrescriptionHandler) RegisterRoutes(router *gin.RouterGroup, questionnaireLimiter *middleware.RateLimiter) {
	prescriptions := router.Group("/prescriptions")
	{
		prescriptions.POST("", h.Create)
		prescriptions.GET("/active", h.GetActive)
		prescriptions.GET("/status", h.Status)
		prescriptions.GET("/template", h.Template)
		prescriptions.GET("/doses/history", h.History)
		prescriptions.POST("/upload", h.UploadScan)

		daily := prescriptions.Group("")
		if questionnaireLimiter != nil {
			daily.Use(questionnaireLimiter.RateLimitMiddleware())
		}
		daily.POST("/daily-questionnaire", h.SubmitQuestionnaire)
	}
}

func (h *PrescriptionHandler) Create(c *gin.Context) {
	var req types.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	prescription, err := h.prescriptions.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, prescription)
}

func (h *PrescriptionHandler) GetActive(c *gin.Context) {
	prescription, err := h.prescriptions.GetActive(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, prescription)
}

// Status returns today's dose entries alongside the current meal zone.
func (h *PrescriptionHandler) Status(c *gin.Context) {
	userID := currentUserID(c)

	prescription, err := h.prescriptions.GetActive(c.Request.Context(), userID)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	entries, err := h.doses.TodayEntries(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to load today's doses", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dose status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"current_zone":    strings.ToUpper(service.CurrentMealZone(time.Now())),
		"prescription_id": prescription.ID,
		"doses":           entries,
	})
}

func (h *PrescriptionHandler) Template(c *gin.Context) {
	rows, zone, err := h.questionnaire.Template(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"current_zone": zone,
		"template":     rows,
	})
}

func (h *PrescriptionHandler) SubmitQuestionnaire(c *gin.Context) {
	var req types.QuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.questionnaire.Process(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PrescriptionHandler) History(c *gin.Context) {
	days := historyDefaultDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > historyMaxDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 30"})
			return
		}
		days = parsed
	}

	entries, err := h.doses.History(c.Request.Context(), currentUserID(c), days)
	if err != nil {
		slog.Error("failed to load dose history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dose history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":  days,
		"doses": entries,
	})
}

// UploadScan stores a prescription scan and returns its URL for use in a
// subsequent create request.
func (h *PrescriptionHandler) UploadScan(c *gin.Context) {
	if h.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan storage is not configured"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, scanMaxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	if len(data) > scanMaxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds 10MB limit"})
		return
	}

	url, err := h.scans.Upload(c.Request.Context(), currentUserID(c), data, header.Header.Get("Content-Type"))
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"scan_url": url})
}

// renderServiceError maps service errors onto HTTP responses.
func (h *PrescriptionHandler) renderServiceError(c *gin.Context, err error) {
	var (
		doseTooHigh *service.DoseTooHighError
		invalidDose *service.InvalidDoseError
		validation  *service.ValidationError
	)

	switch {
	case errors.Is(err, service.ErrNoActivePrescription):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active prescription found"})
	case errors.As(err, &doseTooHigh):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                      err.Error(),
			"requires_medical_attention": true,
		})
	case errors.As(err, &invalidDose):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
