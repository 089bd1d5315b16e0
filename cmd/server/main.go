package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweatpoints/fitness-app/internal/api"
	"sweatpoints/fitness-app/internal/config"
	mongorepo "sweatpoints/fitness-app/internal/repository/mongo"
	"sweatpoints/fitness-app/internal/service"
	"sweatpoints/fitness-app/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Sweatpoints Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongorepo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongorepo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongorepo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongorepo.EnsureWorkoutIndexes(ctx, appDB.Collection("workouts"))
		mongorepo.EnsurePoolIndexes(ctx, appDB)
		mongorepo.EnsureSessionIndexes(ctx, appDB.Collection("sessions"))
		mongorepo.EnsureHistoryIndexes(ctx, appDB)
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	var archive storage.ArchiveStorage
	if cfg.S3.BucketName != "" {
		log.Println("Initializing archive storage service...")
		archive, err = storage.NewS3Storage(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("No S3 bucket configured; snapshot archiving disabled.")
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongorepo.NewMongoUserRepository(appDB)
	workoutRepo := mongorepo.NewMongoWorkoutRepository(appDB)
	actionRepo := mongorepo.NewMongoActionRepository(appDB)
	poolRepo := mongorepo.NewMongoPoolRepository(appDB)
	sessionRepo := mongorepo.NewMongoSessionRepository(appDB)
	completionRepo := mongorepo.NewMongoCompletionRepository(appDB)
	receivedRepo := mongorepo.NewMongoReceivedRepository(appDB)
	txRunner := mongorepo.NewTxRunner(dbClient)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	selector := service.NewRandomSelector(nil) // time-seeded in production
	sessionService := service.NewSessionService(
		sessionRepo, poolRepo, workoutRepo, actionRepo, completionRepo, receivedRepo,
		txRunner, selector, cfg.Policy)
	catalogService := service.NewCatalogService(
		workoutRepo, actionRepo, poolRepo, sessionRepo, completionRepo, receivedRepo, cfg.Policy)
	backupService := service.NewBackupService(
		workoutRepo, actionRepo, poolRepo, sessionRepo, completionRepo, receivedRepo,
		txRunner, archive)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, sessionService, catalogService, backupService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
