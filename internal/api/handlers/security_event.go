package handlers

import (
	"motolens/internal/models"
	"motolens/internal/repository"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SecurityEventHandler handles HTTP requests for the security audit trail
type SecurityEventHandler struct {
	eventRepo repository.SecurityEventRepository
}

// NewSecurityEventHandler creates a new security event handler
func NewSecurityEventHandler(eventRepo repository.SecurityEventRepository) *SecurityEventHandler {
	return &SecurityEventHandler{eventRepo: eventRepo}
}

// List godoc
// @Summary List security events
// @Description List security events, filtered by account, type, address or time range. Admin only.
// @Tags security-events
// @Produce json
// @Param user_id query string false "Filter by account id"
// @Param event_type query string false "Comma-separated event types"
// @Param ip_address query string false "Filter by client address"
// @Param created_after query string false "RFC3339 lower bound"
// @Param created_before query string false "RFC3339 upper bound"
// @Param limit query int false "Maximum number of events"
// @Param offset query int false "Number of events to skip"
// @Param order_desc query bool false "Newest first"
// @Success 200 {array} models.SecurityEvent
// @Failure 400 {object} models.ErrorResponse "Invalid filter"
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /security-events [get]
func (h *SecurityEventHandler) List(c *gin.Context) {
	var filter repository.SecurityEventFilter

	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user_id"})
			return
		}
		filter.UserID = &userID
	}

	if raw := c.Query("event_type"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			filter.EventTypes = append(filter.EventTypes, models.SecurityEventType(strings.TrimSpace(name)))
		}
	}

	if raw := c.Query("ip_address"); raw != "" {
		filter.IPAddress = &raw
	}

	if raw := c.Query("created_after"); raw != "" {
		after, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid created_after, expected RFC3339"})
			return
		}
		filter.CreatedAfter = &after
	}

	if raw := c.Query("created_before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid created_before, expected RFC3339"})
			return
		}
		filter.CreatedBefore = &before
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = &limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid offset"})
			return
		}
		filter.Offset = &offset
	}

	filter.OrderBy = "created_at"
	filter.OrderDesc = c.Query("order_desc") != "false"

	events, err := h.eventRepo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list security events"})
		return
	}

	c.JSON(http.StatusOK, events)
}
