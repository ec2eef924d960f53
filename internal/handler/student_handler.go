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

type studentService interface {
	List(ctx context.Context, actor policy.Actor, filter models.StudentFilter) (*service.Page[models.Student], error)
	Get(ctx context.Context, actor policy.Actor, id string) (*models.Student, error)
	Create(ctx context.Context, actor policy.Actor, in dto.StudentInput) (*models.Student, error)
	Update(ctx context.Context, actor policy.Actor, id string, patch dto.StudentPatch) (*models.Student, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search name, student ID or parent name"
// @Param grade query int false "Filter by grade"
// @Param section query string false "Filter by section"
// @Param gender query string false "Filter by gender"
// @Param is_active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "grade, section, first_name, last_name or admission_date"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	q := newQueryParser(c)
	base := q.list()
	filter := models.StudentFilter{
		Grade:     q.optionalInt("grade"),
		Section:   q.str("section"),
		Gender:    q.str("gender"),
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

	page, err := h.students.List(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page.Items, page.Pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create godoc
// @Summary Enroll student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.StudentInput true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var in dto.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.students.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.StudentPatch true "Student fields"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
// @Router /students/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	var patch dto.StudentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.students.Update(c.Request.Context(), actorOf(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
