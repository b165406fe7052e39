// Package server provides the HTTP server implementation
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"motolens/internal/api/routes"
	"motolens/internal/config"
	"motolens/internal/email"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// Server represents the HTTP server
type Server struct {
	cfg   *config.Config
	db    *sql.DB
	redis redis.UniversalClient
	email email.EmailSender
}

// New creates a new server instance
func New(cfg *config.Config, db *sql.DB, redisClient redis.UniversalClient, emailService email.EmailSender) *Server {
	return &Server{
		cfg:   cfg,
		db:    db,
		redis: redisClient,
		email: emailService,
	}
}

// Start runs the HTTP server until SIGINT or SIGTERM, then drains
// outstanding requests before returning
func (s *Server) Start() error {
	router := routes.SetupRoutes(s.cfg, s.db, s.redis, s.email)

	port, err := strconv.Atoi(s.cfg.API.Port)
	if err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
