package handlers

import (
	"motolens/internal/models"
	"motolens/internal/repository"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles HTTP requests for account administration
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// ListUsers godoc
// @Summary List accounts
// @Description List accounts filtered by role or free-text search. Admin only.
// @Tags users
// @Produce json
// @Param search query string false "Match against email and name"
// @Param role query string false "Filter by role"
// @Param limit query int false "Maximum number of accounts"
// @Param offset query int false "Number of accounts to skip"
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid filter"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var filter repository.UserFilter

	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	if role := c.Query("role"); role != "" {
		filter.Role = &role
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

	users, err := h.userRepo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get account
// @Description Get one account by id. Accounts may fetch themselves; admins may fetch anyone.
// @Tags users
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid account id"
// @Failure 403 {object} models.ErrorResponse "Not allowed"
// @Failure 404 {object} models.ErrorResponse "Account not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return
	}

	if id != caller.ID && !caller.IsAdmin() {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "admin access required"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), id)
	if err == repository.ErrUserNotFound {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, user)
}
