// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"motolens/internal/api/routes"
	"motolens/internal/auth"
	"motolens/internal/blacklist"
	"motolens/internal/config"
	"motolens/internal/models"
	"motolens/internal/repository"
	"motolens/internal/repository/postgres"
	"motolens/internal/testutil/db"
	"motolens/internal/validation"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig loads the test configuration
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return db.LoadTestConfig(t)
}

// TestContext holds common test dependencies
type TestContext struct {
	T            *testing.T
	DB           *sql.DB
	Config       *config.Config
	Redis        *miniredis.Miniredis
	RedisClient  redis.UniversalClient
	UserRepo     repository.UserRepository
	SessionRepo  repository.SessionRepository
	HistoryRepo  repository.PasswordHistoryRepository
	ResetRepo    repository.PasswordResetRepository
	VerifyRepo   repository.EmailVerificationRepository
	EventRepo    repository.SecurityEventRepository
	AuthService  *auth.Service
	EmailService *MockEmailService
	Router       *gin.Engine
}

// SentEmail records one message handed to the mock email service
type SentEmail struct {
	To    string
	Kind  string
	Token string
}

// MockEmailService records messages instead of sending them
type MockEmailService struct {
	mu   sync.Mutex
	Sent []SentEmail
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (s *MockEmailService) record(email SentEmail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, email)
}

func (s *MockEmailService) SendVerificationEmail(to, firstName, token string) error {
	s.record(SentEmail{To: to, Kind: "verification", Token: token})
	return nil
}

func (s *MockEmailService) SendPasswordResetEmail(to, firstName, token string) error {
	s.record(SentEmail{To: to, Kind: "reset", Token: token})
	return nil
}

func (s *MockEmailService) SendPasswordChangedEmail(to, firstName string) error {
	s.record(SentEmail{To: to, Kind: "changed"})
	return nil
}

// LastToken returns the most recent token of the given kind sent to the address
func (s *MockEmailService) LastToken(to, kind string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Sent) - 1; i >= 0; i-- {
		if s.Sent[i].To == to && s.Sent[i].Kind == kind {
			return s.Sent[i].Token
		}
	}
	return ""
}

// WaitForEmail polls until a message of the given kind addressed to the
// account has been recorded. Handlers hand email off to a goroutine, so a
// test cannot read the mock synchronously after the response arrives.
func (s *MockEmailService) WaitForEmail(to, kind string) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, sent := range s.Sent {
			if sent.To == to && sent.Kind == kind {
				s.mu.Unlock()
				return true
			}
		}
		s.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForToken polls until a token of the given kind, different from seen,
// has been sent to the address. Pass an empty seen to wait for any token.
func (s *MockEmailService) WaitForToken(to, kind, seen string) string {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if token := s.LastToken(to, kind); token != "" && token != seen {
			return token
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ""
}

// NewTestContext creates a new test context with all dependencies
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Initialize validators
	validation.Initialize()

	// Load test config
	cfg := LoadTestConfig(t)

	// Setup test database
	testDB := db.SetupTestDB(t, &cfg.Database)

	// In-memory stand-in for the revocation store
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// Initialize repositories
	historyRepo := postgres.NewPasswordHistoryRepository(testDB)
	userRepo := postgres.NewUserRepository(testDB, historyRepo)
	sessionRepo := postgres.NewSessionRepository(testDB)
	resetRepo := postgres.NewPasswordResetRepository(testDB)
	verifyRepo := postgres.NewEmailVerificationRepository(testDB)
	eventRepo := postgres.NewSecurityEventRepository(testDB)

	// Initialize services
	authService := auth.NewService(cfg, blacklist.New(redisClient, cfg.Redis.KeyPrefix))
	emailService := NewMockEmailService()

	// The same wiring the server uses, with the mock email service and the
	// in-memory revocation store injected
	router := routes.SetupRoutes(cfg, testDB, redisClient, emailService)

	tc := &TestContext{
		T:            t,
		DB:           testDB,
		Config:       cfg,
		Redis:        mr,
		RedisClient:  redisClient,
		UserRepo:     userRepo,
		SessionRepo:  sessionRepo,
		HistoryRepo:  historyRepo,
		ResetRepo:    resetRepo,
		VerifyRepo:   verifyRepo,
		EventRepo:    eventRepo,
		AuthService:  authService,
		EmailService: emailService,
		Router:       router,
	}

	// Register cleanup function
	t.Cleanup(func() {
		tc.cleanup()
	})

	return tc
}

// cleanup performs necessary cleanup after tests
func (tc *TestContext) cleanup() {
	if tc.RedisClient != nil {
		tc.RedisClient.Close()
	}
	if tc.DB != nil {
		if err := db.ResetTestDB(tc.DB); err != nil {
			tc.T.Errorf("Failed to cleanup test database: %v", err)
		}
		tc.DB.Close()
	}
}

// CreateTestUser creates a user with the given details and returns it
func (tc *TestContext) CreateTestUser(email, password, role string, verified bool) *models.User {
	tc.T.Helper()

	hashedPassword, err := auth.HashPassword(password)
	require.NoError(tc.T, err, "Failed to hash password")

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}

	err = tc.UserRepo.Create(context.Background(), user)
	require.NoError(tc.T, err, "Failed to create test user")

	if verified {
		err = tc.UserRepo.MarkEmailVerified(context.Background(), user.ID)
		require.NoError(tc.T, err, "Failed to mark email verified")
		user.EmailVerified = true
	}

	return user
}

// GetTestJWT generates an access token for the given user
func (tc *TestContext) GetTestJWT(user *models.User) string {
	tc.T.Helper()

	pair, err := tc.AuthService.IssuePair(user)
	require.NoError(tc.T, err, "Failed to generate test JWT")
	return pair.AccessToken
}

// OpenTestSession mints a token pair and persists the matching session row,
// the way a real login does
func (tc *TestContext) OpenTestSession(user *models.User) (*auth.TokenPair, *models.Session) {
	tc.T.Helper()

	pair, err := tc.AuthService.IssuePair(user)
	require.NoError(tc.T, err, "Failed to issue token pair")

	session := &models.Session{
		UserID:           user.ID,
		RefreshTokenHash: auth.HashToken(pair.RefreshToken),
		UserAgent:        "testutil",
		IPAddress:        "127.0.0.1",
		IsActive:         true,
		ExpiresAt:        pair.RefreshExpiresAt,
	}
	err = tc.SessionRepo.Create(context.Background(), session)
	require.NoError(tc.T, err, "Failed to create test session")

	return pair, session
}
