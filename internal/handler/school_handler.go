package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/service"
	"github.com/noah-isme/sma-library-api/pkg/response"
)

type schoolService interface {
	List(ctx context.Context, actor policy.Actor, filter models.SchoolFilter) (*service.Page[models.School], error)
	Get(ctx context.Context, actor policy.Actor, id string) (*models.School, error)
	Create(ctx context.Context, actor policy.Actor, in dto.SchoolInput) (*models.School, error)
	Update(ctx context.Context, actor policy.Actor, id string, patch dto.SchoolPatch) (*models.School, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
}

// SchoolHandler exposes school endpoints.
type SchoolHandler struct {
	schools schoolService
}

// NewSchoolHandler constructs SchoolHandler.
func NewSchoolHandler(schools schoolService) *SchoolHandler {
	return &SchoolHandler{schools: schools}
}

// List godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Param search query string false "Search name, code or principal"
// @Param is_active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "name, code or established_date"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	q := newQueryParser(c)
	base := q.list()
	filter := models.SchoolFilter{
		IsActive:  q.optionalBool("is_active"),
		Search:    base.Search,
		Page:      base.Page,
		PageSize:  base.PageSize,
		SortBy:    base.SortBy,
		SortOrder: base.SortOrder,
	}
	if err := q.err(); err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.schools.List(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page.Items, page.Pagination)
}

// Get godoc
// @Summary Get school detail
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.schools.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, school)
}

// Create godoc
// @Summary Register school
// @Description A six character code is generated when none is supplied.
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body dto.SchoolInput true "School payload"
// @Success 201 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	var in dto.SchoolInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	school, err := h.schools.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// Update godoc
// @Summary Update school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.SchoolPatch true "School fields"
// @Success 200 {object} response.Envelope
// @Router /schools/{id} [put]
// @Router /schools/{id} [patch]
func (h *SchoolHandler) Update(c *gin.Context) {
	var patch dto.SchoolPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	school, err := h.schools.Update(c.Request.Context(), actorOf(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, school)
}

// Delete godoc
// @Summary Delete school
// @Tags Schools
// @Param id path string true "School ID"
// @Success 204
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	if err := h.schools.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
