// Package main provides the entry point for the MotoLens auth API server
// @title MotoLens Auth API
// @version 1.0
// @description Authentication and session management for MotoLens.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"flag"
	"log"
	"motolens/internal/api/server"
	"motolens/internal/cleanup"
	"motolens/internal/config"
	"motolens/internal/database"
	"motolens/internal/email"
	"motolens/internal/repository/postgres"
	"motolens/internal/validation"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile == ".env" {
		log.Printf("Warning: %v", err)
	}

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize validators
	validation.Initialize()

	// Connect to the revocation store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Schedule the purge jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupManager := cleanup.NewManager()
	cleanupManager.Register(cleanup.NewSessionJob(postgres.NewSessionRepository(db)))
	cleanupManager.Register(cleanup.NewResetTokenJob(postgres.NewPasswordResetRepository(db)))
	cleanupManager.Register(cleanup.NewVerifyTokenJob(postgres.NewEmailVerificationRepository(db)))
	cleanupManager.Register(cleanup.NewEventJob(postgres.NewSecurityEventRepository(db)))
	cleanupManager.Register(cleanup.NewHistoryJob(postgres.NewPasswordHistoryRepository(db)))
	go func() {
		if err := cleanupManager.Start(ctx); err != nil {
			log.Printf("Cleanup scheduler stopped: %v", err)
		}
	}()

	emailService := email.NewService(cfg.Email)

	srv := server.New(cfg, db, redisClient, emailService)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
