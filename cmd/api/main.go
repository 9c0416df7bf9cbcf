package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gluvia/backend/config"
	"github.com/gluvia/backend/internal/api"
	"github.com/gluvia/backend/internal/database"
	"github.com/gluvia/backend/internal/logger"
	"github.com/gluvia/backend/internal/service"
)

func main() {
	logger.Init()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		// caching and rate limiting degrade gracefully without redis
		slog.Warn("redis unavailable, continuing without caching and rate limiting", "error", err)
		redisClient = nil
	}

	ctx := context.Background()
	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		slog.Warn("s3 unavailable, scan uploads disabled", "error", err)
		s3Config = nil
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	prescriptionService := service.NewPrescriptionService(db, redisClient)
	doseLogService := service.NewDoseLogService(db)
	questionnaireService := service.NewQuestionnaireService(db, prescriptionService, doseLogService)

	var scanService *service.ScanStorageService
	if s3Config != nil {
		scanService = service.NewScanStorageService(s3Config)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	api.RegisterRoutes(router, db, api.Services{
		Auth:          authService,
		Prescriptions: prescriptionService,
		Doses:         doseLogService,
		Questionnaire: questionnaireService,
		Scans:         scanService,
		Redis:         redisClient,
	})

	srv := &http.Server{
		Addr:    cfg.ServerHost + ":" + cfg.ServerPort,
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-quit:
		slog.Info("received signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
