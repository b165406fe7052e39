package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"motolens/internal/auth"
	"motolens/internal/config"
	"motolens/internal/email"
	"motolens/internal/models"
	"motolens/internal/repository"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles HTTP requests for registration, login and the full
// credential lifecycle
type AuthHandler struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	resetRepo    repository.PasswordResetRepository
	verifyRepo   repository.EmailVerificationRepository
	eventRepo    repository.SecurityEventRepository
	authService  *auth.Service
	emailService email.EmailSender
	config       *config.Config
	policy       auth.PasswordPolicy
}

// NewAuthHandler creates a new authentication handler with the given dependencies
func NewAuthHandler(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	resetRepo repository.PasswordResetRepository,
	verifyRepo repository.EmailVerificationRepository,
	eventRepo repository.SecurityEventRepository,
	authService *auth.Service,
	emailService email.EmailSender,
	config *config.Config,
) *AuthHandler {
	policy := auth.DefaultPasswordPolicy()
	if config.Auth.PasswordMinLength > policy.MinLength {
		policy.MinLength = config.Auth.PasswordMinLength
	}
	return &AuthHandler{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		resetRepo:    resetRepo,
		verifyRepo:   verifyRepo,
		eventRepo:    eventRepo,
		authService:  authService,
		emailService: emailService,
		config:       config,
		policy:       policy,
	}
}

// currentUser returns the authenticated user placed in the context by the
// auth middleware
func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// logEvent appends a security event. Failures are logged but never fail the
// request that triggered them.
func (h *AuthHandler) logEvent(c *gin.Context, userID *uuid.UUID, eventType models.SecurityEventType, description string, metadata map[string]interface{}) {
	encoded := ""
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			encoded = string(raw)
		}
	}
	event := &models.CreateSecurityEventRequest{
		UserID:      userID,
		EventType:   eventType,
		Description: description,
		Metadata:    encoded,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	}
	if err := h.eventRepo.Create(c.Request.Context(), event); err != nil {
		log.Printf("Failed to record security event %s: %v", eventType, err)
	}
}

// openSession mints a token pair and persists the matching session row
func (h *AuthHandler) openSession(c *gin.Context, user *models.User) (*auth.TokenPair, error) {
	pair, err := h.authService.IssuePair(user)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: auth.HashToken(pair.RefreshToken),
		UserAgent:        c.GetHeader("User-Agent"),
		IPAddress:        c.ClientIP(),
		IsActive:         true,
		ExpiresAt:        pair.RefreshExpiresAt,
		LastUsedAt:       time.Now(),
	}
	if err := h.sessionRepo.Create(c.Request.Context(), session); err != nil {
		return nil, err
	}
	return pair, nil
}

func lockedResponse(c *gin.Context, lockedUntil time.Time) {
	minutes := int(math.Ceil(time.Until(lockedUntil).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	c.JSON(http.StatusLocked, models.AccountLockedResponse{
		Error:            "account is locked due to too many failed login attempts",
		MinutesRemaining: minutes,
		LockedUntil:      lockedUntil.UTC().Format(time.RFC3339),
	})
}

func strengthResponse(c *gin.Context, result auth.StrengthResult) {
	c.JSON(http.StatusBadRequest, models.PasswordStrengthResponse{
		Error:    "password does not meet the strength requirements",
		Score:    result.Score,
		Strength: result.Strength,
		Feedback: result.Feedback,
	})
}

// Register godoc
// @Summary Register new account
// @Description Register a new account, log it in and send a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.AuthResponse "Account created"
// @Failure 400 {object} models.PasswordStrengthResponse "Validation or password strength error"
// @Failure 403 {object} models.ErrorResponse "Admin role requested without admin privileges"
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	req.Email = auth.NormalizeEmail(req.Email)

	// Only an authenticated admin may create another admin
	if req.Role == models.RoleAdmin && !c.GetBool("is_admin") {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "admin role requires admin privileges"})
		return
	}

	if result := h.policy.ValidateStrength(req.Password); !result.IsValid {
		strengthResponse(c, result)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process registration"})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleMechanic
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
	}
	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		if err == repository.ErrEmailExists {
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create account"})
		return
	}

	h.sendVerification(c, user)

	pair, err := h.openSession(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to open session"})
		return
	}

	h.logEvent(c, &user.ID, models.EventUserRegistered,
		fmt.Sprintf("Account %s registered", user.Email),
		map[string]interface{}{"email": user.Email, "role": user.Role})

	c.JSON(http.StatusCreated, models.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// sendVerification issues a fresh verification token and emails it without
// blocking the request
func (h *AuthHandler) sendVerification(c *gin.Context, user *models.User) {
	rawToken, _, err := h.verifyRepo.Create(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("Failed to create email verification token: %v", err)
		return
	}
	go func(to, firstName, token string) {
		if err := h.emailService.SendVerificationEmail(to, firstName, token); err != nil {
			log.Printf("Failed to send verification email: %v", err)
		}
	}(user.Email, user.FirstName, rawToken)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.LoginFailureResponse "Invalid credentials"
// @Failure 423 {object} models.AccountLockedResponse "Account locked"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), auth.NormalizeEmail(req.Email))
	if err == repository.ErrUserNotFound {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}

	if user.DeletedAt != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}

	if user.IsLocked(time.Now()) {
		lockedResponse(c, *user.LockedUntil)
		return
	}

	if err := auth.ComparePasswords(user.PasswordHash, req.Password); err != nil {
		state, recordErr := h.userRepo.RecordFailedLogin(c.Request.Context(), user.ID)
		if recordErr != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
			return
		}

		h.logEvent(c, &user.ID, models.EventLoginFailed,
			fmt.Sprintf("Failed login for %s", user.Email),
			map[string]interface{}{"failed_attempts": state.FailedAttempts})

		if state.IsLocked() {
			h.logEvent(c, &user.ID, models.EventAccountLocked,
				fmt.Sprintf("Account %s locked after %d failed attempts", user.Email, state.FailedAttempts),
				nil)
			lockedResponse(c, *state.LockedUntil)
			return
		}

		c.JSON(http.StatusUnauthorized, models.LoginFailureResponse{
			Error:             "invalid credentials",
			RemainingAttempts: state.RemainingAttempts(),
		})
		return
	}

	// A correct password before the lockout trips clears the counter
	if err := h.userRepo.ResetFailedLogin(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
		return
	}

	if err := h.userRepo.UpdateLastLogin(c.Request.Context(), user.ID, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update login time"})
		return
	}

	// Housekeeping: drop stale session rows, and under the single-session
	// policy kick every other device off before opening the new session
	if err := h.sessionRepo.DeleteInactiveForUser(c.Request.Context(), user.ID); err != nil {
		log.Printf("Failed to prune sessions for %s: %v", user.ID, err)
	}
	if h.config.Auth.SingleSession {
		if err := h.sessionRepo.DeactivateAllForUser(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process login"})
			return
		}
	}

	pair, err := h.openSession(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to open session"})
		return
	}

	h.logEvent(c, &user.ID, models.EventLoginSuccess,
		fmt.Sprintf("Account %s logged in", user.Email),
		nil)

	c.JSON(http.StatusOK, models.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh godoc
// @Summary Refresh token pair
// @Description Rotate a refresh token: the presented token is revoked and a new pair is issued
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.TokenPairResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid, expired or revoked refresh token"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	claims, err := h.authService.VerifyRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	session, err := h.sessionRepo.GetByTokenHash(c.Request.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}
	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || user.DeletedAt != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}
	if user.IsLocked(time.Now()) {
		lockedResponse(c, *user.LockedUntil)
		return
	}

	pair, err := h.authService.Rotate(c.Request.Context(), req.RefreshToken, user)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired refresh token"})
		return
	}

	// The old token is dead from this point on, even if it has time left
	if err := h.authService.Revoke(c.Request.Context(), req.RefreshToken, "rotated"); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to rotate token"})
		return
	}
	if err := h.sessionRepo.Deactivate(c.Request.Context(), session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to rotate token"})
		return
	}

	newSession := &models.Session{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: auth.HashToken(pair.RefreshToken),
		UserAgent:        session.UserAgent,
		IPAddress:        c.ClientIP(),
		IsActive:         true,
		ExpiresAt:        pair.RefreshExpiresAt,
		LastUsedAt:       time.Now(),
	}
	if err := h.sessionRepo.Create(c.Request.Context(), newSession); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to rotate token"})
		return
	}

	c.JSON(http.StatusOK, models.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout godoc
// @Summary Log out
// @Description Revoke the presented refresh token and deactivate its session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LogoutRequest true "Refresh token to revoke"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	// Revoke is idempotent: an expired or garbage token leaves nothing to do
	if err := h.authService.Revoke(c.Request.Context(), req.RefreshToken, "logout"); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to log out"})
		return
	}

	session, err := h.sessionRepo.GetByTokenHash(c.Request.Context(), auth.HashToken(req.RefreshToken))
	if err == nil {
		if err := h.sessionRepo.Deactivate(c.Request.Context(), session.ID); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to log out"})
			return
		}
	}

	h.logEvent(c, &user.ID, models.EventLogout,
		fmt.Sprintf("Account %s logged out", user.Email),
		nil)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "logged out"})
}

// LogoutAll godoc
// @Summary Log out everywhere
// @Description Deactivate every active session for the authenticated account
// @Tags auth
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	if err := h.sessionRepo.DeactivateAllForUser(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to log out"})
		return
	}

	h.logEvent(c, &user.ID, models.EventLogoutAllDevices,
		fmt.Sprintf("Account %s logged out of all devices", user.Email),
		nil)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "logged out of all devices"})
}

// ForgotPassword godoc
// @Summary Request password reset
// @Description Email a password reset link. Always acknowledges, whether or not the address exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "Account email"
// @Success 200 {object} models.SuccessResponse "Reset link will be sent if the email exists"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	// The acknowledgement is identical whether or not the account exists,
	// so the endpoint cannot be used to probe for registered addresses
	ack := models.SuccessResponse{Message: "if the email exists, a reset link will be sent"}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), auth.NormalizeEmail(req.Email))
	if err != nil || user.DeletedAt != nil {
		c.JSON(http.StatusOK, ack)
		return
	}

	rawToken, _, err := h.resetRepo.Create(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("Failed to create password reset token: %v", err)
		c.JSON(http.StatusOK, ack)
		return
	}

	go func(to, firstName, token string) {
		if err := h.emailService.SendPasswordResetEmail(to, firstName, token); err != nil {
			log.Printf("Failed to send password reset email: %v", err)
		}
	}(user.Email, user.FirstName, rawToken)

	h.logEvent(c, &user.ID, models.EventPasswordResetRequest,
		fmt.Sprintf("Password reset requested for %s", user.Email),
		nil)

	c.JSON(http.StatusOK, ack)
}

// ResetPassword godoc
// @Summary Complete password reset
// @Description Set a new password using a reset token. All sessions are revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} models.SuccessResponse "Password reset successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid or expired token, weak password, or password reuse"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if result := h.policy.ValidateStrength(req.NewPassword); !result.IsValid {
		strengthResponse(c, result)
		return
	}

	reset, err := h.resetRepo.GetByToken(c.Request.Context(), req.Token)
	switch err {
	case nil:
	case repository.ErrResetTokenExpired:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "reset token has expired"})
		return
	case repository.ErrResetTokenInvalid:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid reset token"})
		return
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to verify token"})
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process password"})
		return
	}

	if err := h.userRepo.UpdatePassword(c.Request.Context(), reset.UserID, req.NewPassword, hashedPassword); err != nil {
		if err == repository.ErrPasswordReuse {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "cannot reuse recent passwords"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update password"})
		return
	}

	if err := h.resetRepo.Consume(c.Request.Context(), reset.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to complete reset"})
		return
	}

	// A reset proves the old credential was lost: kick every session
	if err := h.sessionRepo.DeactivateAllForUser(c.Request.Context(), reset.UserID); err != nil {
		log.Printf("Failed to deactivate sessions after reset: %v", err)
	}

	h.logEvent(c, &reset.UserID, models.EventPasswordResetSuccess, "Password reset completed", nil)

	if user, err := h.userRepo.GetByID(c.Request.Context(), reset.UserID); err == nil {
		go func(to, firstName string) {
			if err := h.emailService.SendPasswordChangedEmail(to, firstName); err != nil {
				log.Printf("Failed to send password changed email: %v", err)
			}
		}(user.Email, user.FirstName)
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password reset successfully"})
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the authenticated account's password. All sessions are revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} models.SuccessResponse "Password changed successfully"
// @Failure 400 {object} models.ErrorResponse "Weak password or password reuse"
// @Failure 401 {object} models.ErrorResponse "Current password incorrect"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := auth.ComparePasswords(user.PasswordHash, req.CurrentPassword); err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "current password is incorrect"})
		return
	}

	if result := h.policy.ValidateStrength(req.NewPassword); !result.IsValid {
		strengthResponse(c, result)
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to process password"})
		return
	}

	if err := h.userRepo.UpdatePassword(c.Request.Context(), user.ID, req.NewPassword, hashedPassword); err != nil {
		if err == repository.ErrPasswordReuse {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "cannot reuse recent passwords"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update password"})
		return
	}

	if err := h.sessionRepo.DeactivateAllForUser(c.Request.Context(), user.ID); err != nil {
		log.Printf("Failed to deactivate sessions after password change: %v", err)
	}

	h.logEvent(c, &user.ID, models.EventPasswordChanged,
		fmt.Sprintf("Account %s changed its password", user.Email),
		nil)

	go func(to, firstName string) {
		if err := h.emailService.SendPasswordChangedEmail(to, firstName); err != nil {
			log.Printf("Failed to send password changed email: %v", err)
		}
	}(user.Email, user.FirstName)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password changed successfully"})
}

// VerifyEmail godoc
// @Summary Verify email address
// @Description Consume an email verification token and mark the account verified
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyEmailRequest true "Verification token"
// @Success 200 {object} models.SuccessResponse "Email verified successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid or expired token"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req models.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	userID, err := h.verifyRepo.Verify(c.Request.Context(), req.Token)
	switch err {
	case nil:
	case repository.ErrVerifyTokenExpired:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "verification token has expired"})
		return
	case repository.ErrVerifyTokenInvalid:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid verification token"})
		return
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to verify email"})
		return
	}

	h.logEvent(c, &userID, models.EventEmailVerified, "Email address verified", nil)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "email verified successfully"})
}

// ResendVerification godoc
// @Summary Resend verification email
// @Description Issue a fresh verification token, invalidating any prior one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResendVerificationRequest true "Account email"
// @Success 200 {object} models.SuccessResponse "Uniform ack, sent regardless of account state"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req models.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	ack := models.SuccessResponse{Message: "if the email exists, a verification link will be sent"}

	// The ack is identical for unknown, deleted and already-verified
	// accounts, so the response never confirms that an address is registered
	user, err := h.userRepo.GetByEmail(c.Request.Context(), auth.NormalizeEmail(req.Email))
	if err != nil || user.DeletedAt != nil || user.EmailVerified {
		c.JSON(http.StatusOK, ack)
		return
	}

	h.sendVerification(c, user)

	c.JSON(http.StatusOK, ack)
}

// CheckPasswordStrength godoc
// @Summary Check password strength
// @Description Score a candidate password against the active policy without storing it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest false "Candidate password"
// @Success 200 {object} auth.StrengthResult
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Router /auth/password-strength [post]
func (h *AuthHandler) CheckPasswordStrength(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.policy.ValidateStrength(req.Password))
}

// Me godoc
// @Summary Current account
// @Description Return the authenticated account's profile
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}
