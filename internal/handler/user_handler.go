package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/service"
	"github.com/noah-isme/sma-library-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, actor policy.Actor, filter models.UserFilter) (*service.Page[models.User], error)
	Get(ctx context.Context, actor policy.Actor, id string) (*models.User, error)
	Create(ctx context.Context, actor policy.Actor, in dto.UserInput) (*models.User, error)
	Update(ctx context.Context, actor policy.Actor, id string, patch dto.UserPatch) (*models.User, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
}

// UserHandler manages user endpoints.
type UserHandler struct {
	users userService
}

// NewUserHandler constructs the handler.
func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param search query string false "Search username, email or name"
// @Param user_type query string false "admin, staff or teacher"
// @Param is_active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "username or created_at"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	q := newQueryParser(c)
	base := q.list()
	filter := models.UserFilter{
		IsActive:  q.optionalBool("is_active"),
		Search:    base.Search,
		Page:      base.Page,
		PageSize:  base.PageSize,
		SortBy:    base.SortBy,
		SortOrder: base.SortOrder,
	}
	if raw := strings.ToLower(q.str("user_type")); raw != "" {
		userType := models.UserType(raw)
		filter.UserType = &userType
	}
	if err := q.err(); err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.users.List(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page.Items, page.Pagination)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UserInput true "User payload"
// @Success 201 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var in dto.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.users.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UserPatch true "User fields"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [put]
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	var patch dto.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.users.Update(c.Request.Context(), actorOf(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
