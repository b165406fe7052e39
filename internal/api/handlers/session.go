package handlers

import (
	"fmt"
	"motolens/internal/models"
	"motolens/internal/repository"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles HTTP requests for the session registry
type SessionHandler struct {
	sessionRepo repository.SessionRepository
	eventRepo   repository.SecurityEventRepository
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionRepo repository.SessionRepository, eventRepo repository.SecurityEventRepository) *SessionHandler {
	return &SessionHandler{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
	}
}

// List godoc
// @Summary List active sessions
// @Description List the authenticated account's active sessions across devices
// @Tags sessions
// @Produce json
// @Success 200 {array} models.Session
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	sessions, err := h.sessionRepo.ListActiveByUserID(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// Revoke godoc
// @Summary Revoke a session
// @Description Deactivate one of the authenticated account's sessions by id
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid session id"
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 404 {object} models.ErrorResponse "Session not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Revoke(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid session id"})
		return
	}

	session, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err == repository.ErrSessionNotFound {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to revoke session"})
		return
	}

	// An account may only revoke its own sessions. A foreign session id is
	// reported as not found so ids cannot be probed.
	if session.UserID != user.ID {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}

	if err := h.sessionRepo.Deactivate(c.Request.Context(), session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to revoke session"})
		return
	}

	event := &models.CreateSecurityEventRequest{
		UserID:      &user.ID,
		EventType:   models.EventSessionRevoked,
		Description: fmt.Sprintf("Session %s revoked", session.ID),
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	}
	_ = h.eventRepo.Create(c.Request.Context(), event)

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "session revoked"})
}
