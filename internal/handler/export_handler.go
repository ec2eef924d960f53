package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/service"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
	"github.com/noah-isme/sma-library-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, actor policy.Actor, req models.ExportRequest) (*models.ExportResult, error)
	Open(ctx context.Context, token string) (*service.Download, error)
}

// ExportHandler renders record lists to files and serves signed downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Export a record list
// @Tags Exports
// @Produce json
// @Param resource path string true "books, students, schools or users"
// @Param format query string false "csv (default) or pdf"
// @Param search query string false "Search applied before export"
// @Param sort query string false "Sort column"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exports/{resource} [post]
func (h *ExportHandler) Create(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(models.ExportFormatCSV))))
	req := models.ExportRequest{
		Resource: c.Param("resource"),
		Format:   models.ExportFormat(format),
		Search:   strings.TrimSpace(c.Query("search")),
		SortBy:   strings.TrimSpace(c.Query("sort")),
	}
	result, err := h.exports.Export(c.Request.Context(), actorOf(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Description The token comes from the export response and expires.
// @Tags Exports
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Validation(appErrors.FieldError{Field: "token", Kind: appErrors.KindRequired, Reason: "is required"}))
		return
	}
	download, err := h.exports.Open(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", download.ContentType)
	if _, err := io.Copy(c.Writer, download.File); err != nil {
		_ = c.Error(err)
	}
}
