// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"
	_ "motolens/docs" // Import swagger docs
	"motolens/internal/api/handlers"
	"motolens/internal/api/middleware"
	"motolens/internal/auth"
	"motolens/internal/blacklist"
	"motolens/internal/config"
	"motolens/internal/email"
	"motolens/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB, redisClient redis.UniversalClient, emailService email.EmailSender) *gin.Engine {
	r := gin.Default()

	// Routes without rate limiting
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Initialize repositories
	historyRepo := postgres.NewPasswordHistoryRepository(db)
	userRepo := postgres.NewUserRepository(db, historyRepo)
	sessionRepo := postgres.NewSessionRepository(db)
	resetRepo := postgres.NewPasswordResetRepository(db)
	verifyRepo := postgres.NewEmailVerificationRepository(db)
	eventRepo := postgres.NewSecurityEventRepository(db)

	// Initialize services
	revocations := blacklist.New(redisClient, cfg.Redis.KeyPrefix)
	authService := auth.NewService(cfg, revocations)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)
	limiter := middleware.NewRateLimiter()
	r.Use(limiter.Limit("general", cfg.RateLimit.General))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		userRepo,
		sessionRepo,
		resetRepo,
		verifyRepo,
		eventRepo,
		authService,
		emailService,
		cfg,
	)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, eventRepo)
	eventHandler := handlers.NewSecurityEventHandler(eventRepo)
	userHandler := handlers.NewUserHandler(userRepo)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", limiter.Limit("register", cfg.RateLimit.Register), authHandler.Register)
			authGroup.POST("/login", limiter.Limit("login", cfg.RateLimit.Login), authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/forgot-password", limiter.Limit("password-reset", cfg.RateLimit.PasswordReset), authHandler.ForgotPassword)
			authGroup.POST("/reset-password", limiter.Limit("password-reset", cfg.RateLimit.PasswordReset), authHandler.ResetPassword)
			authGroup.POST("/verify-email", limiter.Limit("verification", cfg.RateLimit.Verification), authHandler.VerifyEmail)
			authGroup.POST("/resend-verification", limiter.Limit("verification", cfg.RateLimit.Verification), authHandler.ResendVerification)
			authGroup.POST("/password-strength", authHandler.CheckPasswordStrength)

			authGroup.POST("/logout", authMiddleware.AuthRequired(), authHandler.Logout)
			authGroup.POST("/logout-all", authMiddleware.AuthRequired(), authHandler.LogoutAll)
			authGroup.POST("/change-password", authMiddleware.AuthRequired(), authHandler.ChangePassword)
			authGroup.GET("/me", authMiddleware.AuthRequired(), authHandler.Me)
		}

		// Session registry (requires authentication)
		sessions := v1.Group("/sessions")
		sessions.Use(authMiddleware.AuthRequired())
		{
			sessions.GET("", sessionHandler.List)
			sessions.DELETE("/:id", sessionHandler.Revoke)
		}

		// Account administration
		users := v1.Group("/users")
		users.Use(authMiddleware.AuthRequired())
		{
			users.GET("", authMiddleware.AdminRequired(), userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
		}

		// Security audit trail (admin only)
		events := v1.Group("/security-events")
		events.Use(authMiddleware.AuthRequired(), authMiddleware.AdminRequired())
		{
			events.GET("", eventHandler.List)
		}
	}

	return r
}
