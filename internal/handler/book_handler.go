package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/service"
	"github.com/noah-isme/sma-library-api/pkg/response"
)

type bookService interface {
	List(ctx context.Context, actor policy.Actor, filter models.BookFilter) (*service.Page[models.Book], error)
	Get(ctx context.Context, actor policy.Actor, id string) (*models.Book, error)
	Create(ctx context.Context, actor policy.Actor, in dto.BookInput) (*models.Book, error)
	Update(ctx context.Context, actor policy.Actor, id string, patch dto.BookPatch) (*models.Book, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
	Label(ctx context.Context, actor policy.Actor, id string) ([]byte, error)
}

// BookHandler exposes the book catalog.
type BookHandler struct {
	books bookService
}

// NewBookHandler constructs BookHandler.
func NewBookHandler(books bookService) *BookHandler {
	return &BookHandler{books: books}
}

// List godoc
// @Summary List books
// @Tags Books
// @Produce json
// @Param search query string false "Search title, author, isbn, barcode or publisher"
// @Param book_type query string false "Filter by book type"
// @Param condition query string false "Filter by condition"
// @Param publication_year query int false "Filter by publication year"
// @Param author query string false "Filter by author"
// @Param publisher query string false "Filter by publisher"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "title, author, publication_year or created_at"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /books [get]
func (h *BookHandler) List(c *gin.Context) {
	q := newQueryParser(c)
	base := q.list()
	filter := models.BookFilter{
		BookType:        q.str("book_type"),
		Condition:       q.str("condition"),
		PublicationYear: q.optionalInt("publication_year"),
		Author:          q.str("author"),
		Publisher:       q.str("publisher"),
		Search:          base.Search,
		Page:            base.Page,
		PageSize:        base.PageSize,
		SortBy:          base.SortBy,
		SortOrder:       base.SortOrder,
	}
	if err := q.err(); err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.books.List(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, page.Items, page.Pagination)
}

// Get godoc
// @Summary Get book detail
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.books.Get(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, book)
}

// Create godoc
// @Summary Add a book to the catalog
// @Description A barcode is generated when none is supplied.
// @Tags Books
// @Accept json
// @Produce json
// @Param payload body dto.BookInput true "Book payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var in dto.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	book, err := h.books.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, book)
}

// Update godoc
// @Summary Update book
// @Description PUT and PATCH both apply only the fields present in the body.
// @Tags Books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param payload body dto.BookPatch true "Book fields"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [put]
// @Router /books/{id} [patch]
func (h *BookHandler) Update(c *gin.Context) {
	var patch dto.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	book, err := h.books.Update(c.Request.Context(), actorOf(c), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, book)
}

// Delete godoc
// @Summary Delete book
// @Tags Books
// @Param id path string true "Book ID"
// @Success 204
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.books.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Label godoc
// @Summary Printable barcode label
// @Tags Books
// @Produce application/pdf
// @Param id path string true "Book ID"
// @Success 200 {file} binary
// @Router /books/{id}/label [get]
func (h *BookHandler) Label(c *gin.Context) {
	id := c.Param("id")
	pdf, err := h.books.Label(c.Request.Context(), actorOf(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "label-"+id+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
