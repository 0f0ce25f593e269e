package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peakform/coaching-app/internal/api"
	"peakform/coaching-app/internal/config"
	"peakform/coaching-app/internal/events"
	"peakform/coaching-app/internal/generator"
	"peakform/coaching-app/internal/loader"
	"peakform/coaching-app/internal/quota"
	"peakform/coaching-app/internal/repository/mongo"
	"peakform/coaching-app/internal/service"
	"peakform/coaching-app/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.Info("Starting coaching app server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	log.Info("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Errorf("Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureCoachIndexes(ctx, appDB.Collection("coaches"))
		mongo.EnsureBillingIndexes(ctx, appDB.Collection("coach_billing"))
		mongo.EnsureAthleteIndexes(ctx, appDB.Collection("athletes"))
		mongo.EnsureGoalIndexes(ctx, appDB.Collection("goals"))
		mongo.EnsureSessionLogIndexes(ctx, appDB.Collection("session_logs"))
		mongo.EnsureTrainingPlanIndexes(ctx, appDB.Collection("training_plans"))
		log.Info("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	coachRepo := mongo.NewMongoCoachRepository(appDB)
	billingRepo := mongo.NewMongoBillingRepository(appDB)
	athleteRepo := mongo.NewMongoAthleteRepository(appDB)
	goalRepo := mongo.NewMongoGoalRepository(appDB)
	sessionLogRepo := mongo.NewMongoSessionLogRepository(appDB)
	trainingPlanRepo := mongo.NewMongoTrainingPlanRepository(appDB)

	// --- Core components ---
	enforcer := quota.NewEnforcer(cfg.Quota)
	bus := events.New()
	defer bus.Close()

	contentGenerator, err := generator.NewWebhookClient(cfg.Generator)
	if err != nil {
		log.Fatalf("Failed to initialize content generator: %v", err)
	}

	loaderRepos := loader.Repos{
		Coaches:       coachRepo,
		Athletes:      athleteRepo,
		Goals:         goalRepo,
		SessionLogs:   sessionLogRepo,
		TrainingPlans: trainingPlanRepo,
	}
	newBundle := func() *loader.Bundle { return loader.NewBundle(loaderRepos) }

	// --- Initialize Services ---
	authService := service.NewAuthService(coachRepo, billingRepo, enforcer, cfg.JWT.Secret, cfg.JWT.Expiration)
	rosterService := service.NewRosterService(coachRepo, billingRepo, athleteRepo, goalRepo, enforcer)
	generationService := service.NewGenerationService(trainingPlanRepo, sessionLogRepo, athleteRepo, billingRepo, contentGenerator, bus, newBundle)
	exportService := service.NewExportService(trainingPlanRepo, fileStorage)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	api.SetupRoutes(router, cfg.JWT.Secret, authService, rosterService, generationService, exportService, bus)

	// --- Start HTTP Server ---
	// No WriteTimeout: the SSE stream endpoint holds its response open for
	// the life of the subscription.
	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Infof("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting.")
}
