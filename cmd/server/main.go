package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/api"
	"github.com/jstittsworth/survivor-optimizer/internal/api/handlers"
	"github.com/jstittsworth/survivor-optimizer/internal/api/middleware"
	"github.com/jstittsworth/survivor-optimizer/internal/features"
	"github.com/jstittsworth/survivor-optimizer/internal/ingest"
	"github.com/jstittsworth/survivor-optimizer/internal/services"
	"github.com/jstittsworth/survivor-optimizer/internal/store"
	"github.com/jstittsworth/survivor-optimizer/internal/winprob"
	"github.com/jstittsworth/survivor-optimizer/pkg/config"
	"github.com/jstittsworth/survivor-optimizer/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Core services
	dataStore := store.New(db)
	cacheService := services.NewCacheService(redisClient)
	webSocketHub := services.NewWebSocketHub()
	go webSocketHub.Run()

	// Win probability model; falls back to the SRS logistic when no trained
	// weights exist yet.
	model, err := winprob.Load(cfg.ModelPath, cfg.HomeFieldPts, cfg.FallbackScale)
	if err != nil {
		logrus.Fatalf("Failed to load win probability model: %v", err)
	}
	if model.IsTrained() {
		logrus.Infof("Loaded trained model from %s", cfg.ModelPath)
	} else {
		logrus.Warn("No trained model found, using SRS fallback")
	}

	assembler := features.NewAssembler(dataStore)
	updater := winprob.NewUpdater(dataStore, assembler, model)
	reconciler := services.NewReconciler(dataStore)

	// Ingestion pipeline
	nflverseClient := ingest.NewClient(
		cfg.NFLVerseBaseURL,
		cfg.ExternalAPITimeout,
		cfg.NFLVerseRateLimit,
		cfg.CircuitBreakerThreshold,
		logrus.StandardLogger(),
	)
	loader := ingest.NewLoader(nflverseClient, dataStore, logrus.StandardLogger())

	// SMS pick reminders
	var smsService services.SMSService
	if cfg.SMSProvider == "twilio" && cfg.TwilioAccountSID != "" {
		rateLimiter := services.NewSMSRateLimiter(5, time.Hour)
		smsService = services.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, rateLimiter)
		logrus.Info("Twilio SMS service enabled")
	} else {
		smsService = services.NewMockSMSService()
	}

	// Background refresher
	refresher := services.NewRefresher(cfg, dataStore, loader, updater, reconciler, cacheService, webSocketHub, smsService, logrus.StandardLogger())
	if cfg.EnableBackgroundJobs {
		if err := refresher.Start(); err != nil {
			logrus.Fatalf("Failed to start background refresher: %v", err)
		}
		defer refresher.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// API routes
	apiGroup := router.Group("/api")
	api.SetupRoutes(apiGroup, api.Deps{
		Store:      dataStore,
		Cache:      cacheService,
		Hub:        webSocketHub,
		Config:     cfg,
		Loader:     loader,
		Updater:    updater,
		Reconciler: reconciler,
	})

	// WebSocket endpoint at root level
	router.GET("/ws", webSocketHub.HandleWebSocket)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
