package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/middleware"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/service"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var testTokens = stubTokens{
	"staff-token":   {UserID: "staff-1", UserType: models.UserTypeStaff},
	"teacher-token": {UserID: "teacher-1", UserType: models.UserTypeTeacher},
}

type bookServiceMock struct {
	actor      policy.Actor
	filter     models.BookFilter
	createIn   dto.BookInput
	patch      dto.BookPatch
	err        error
	deletedID  string
	labelBytes []byte
}

func (m *bookServiceMock) List(_ context.Context, actor policy.Actor, filter models.BookFilter) (*service.Page[models.Book], error) {
	m.actor, m.filter = actor, filter
	if m.err != nil {
		return nil, m.err
	}
	return &service.Page[models.Book]{
		Items:      []models.Book{{ID: "b-1", Title: "Laskar Pelangi", IsAvailable: true}},
		Pagination: models.Pagination{Page: 1, PageSize: 20, TotalCount: 1},
	}, nil
}

func (m *bookServiceMock) Get(_ context.Context, actor policy.Actor, id string) (*models.Book, error) {
	m.actor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &models.Book{ID: id}, nil
}

func (m *bookServiceMock) Create(_ context.Context, actor policy.Actor, in dto.BookInput) (*models.Book, error) {
	m.actor, m.createIn = actor, in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Book{ID: "b-9", Title: in.Title, Barcode: "NO2005ABCDEF12"}, nil
}

func (m *bookServiceMock) Update(_ context.Context, actor policy.Actor, id string, patch dto.BookPatch) (*models.Book, error) {
	m.actor, m.patch = actor, patch
	if m.err != nil {
		return nil, m.err
	}
	return &models.Book{ID: id}, nil
}

func (m *bookServiceMock) Delete(_ context.Context, actor policy.Actor, id string) error {
	m.actor, m.deletedID = actor, id
	return m.err
}

func (m *bookServiceMock) Label(_ context.Context, actor policy.Actor, _ string) ([]byte, error) {
	m.actor = actor
	return m.labelBytes, m.err
}

type exportServiceMock struct {
	req  models.ExportRequest
	err  error
	file string
}

func (m *exportServiceMock) Export(_ context.Context, _ policy.Actor, req models.ExportRequest) (*models.ExportResult, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ExportResult{ID: "exp-1", Resource: req.Resource, Format: req.Format, Token: "tok"}, nil
}

func (m *exportServiceMock) Open(_ context.Context, token string) (*service.Download, error) {
	if token != "tok" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	f, err := os.Open(m.file)
	if err != nil {
		return nil, err
	}
	return &service.Download{File: f, Filename: "exp-1.csv", ContentType: "text/csv"}, nil
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func newTestRouter(books *bookServiceMock, exports *exportServiceMock, checks map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterOptions{
		Env:          "test",
		APIPrefix:    "/api/v1",
		Tokens:       testTokens,
		LoginLimiter: middleware.NewIPRateLimiter(100, 100),
	}, Handlers{
		Auth:     NewAuthHandler(nil),
		Books:    NewBookHandler(books),
		Students: NewStudentHandler(nil),
		Schools:  NewSchoolHandler(nil),
		Users:    NewUserHandler(nil),
		Exports:  NewExportHandler(exports),
		Health:   NewHealthHandler(service.NewMetricsService(), checks),
	})
}

func do(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookListParsesFilters(t *testing.T) {
	books := &bookServiceMock{}
	r := newTestRouter(books, &exportServiceMock{}, nil)

	w := do(r, http.MethodGet, "/api/v1/books?book_type=novel&publication_year=2005&search=%20pelangi%20&page=2&limit=10&sort=title&order=desc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, policy.Anonymous(), books.actor)
	assert.Equal(t, "novel", books.filter.BookType)
	require.NotNil(t, books.filter.PublicationYear)
	assert.Equal(t, 2005, *books.filter.PublicationYear)
	assert.Equal(t, "pelangi", books.filter.Search)
	assert.Equal(t, 2, books.filter.Page)
	assert.Equal(t, 10, books.filter.PageSize)
	assert.Equal(t, "desc", books.filter.SortOrder)

	var body struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, true, body.Data[0]["is_available"])
	assert.Equal(t, 1, body.Pagination.TotalCount)
}

func TestBookListRejectsMalformedQuery(t *testing.T) {
	books := &bookServiceMock{}
	r := newTestRouter(books, &exportServiceMock{}, nil)

	w := do(r, http.MethodGet, "/api/v1/books?publication_year=soon&page=x", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code    string                 `json:"code"`
			Details []appErrors.FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrValidation.Code, body.Error.Code)
	assert.Len(t, body.Error.Details, 2)
}

func TestBookCreatePassesActorAndPayload(t *testing.T) {
	books := &bookServiceMock{}
	r := newTestRouter(books, &exportServiceMock{}, nil)

	w := do(r, http.MethodPost, "/api/v1/books", "teacher-token", map[string]interface{}{"title": "Bumi Manusia", "book_type": "novel"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "teacher-1", books.actor.UserID)
	assert.True(t, books.actor.Authenticated)
	assert.Equal(t, "Bumi Manusia", books.createIn.Title)
	assert.Contains(t, w.Body.String(), "NO2005ABCDEF12")
}

func TestBookPatchBindsOnlyPresentFields(t *testing.T) {
	books := &bookServiceMock{}
	r := newTestRouter(books, &exportServiceMock{}, nil)

	w := do(r, http.MethodPatch, "/api/v1/books/b-1", "staff-token", map[string]interface{}{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, books.patch.Quantity)
	assert.Equal(t, 4, *books.patch.Quantity)
	assert.Nil(t, books.patch.Title)
}

func TestBookErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"anonymous denied", appErrors.AccessDenied("book", "create", false), http.StatusUnauthorized},
		{"authenticated denied", appErrors.AccessDenied("book", "create", true), http.StatusForbidden},
		{"conflict", appErrors.Conflict("isbn", "9789792"), http.StatusConflict},
		{"not found", appErrors.NotFound("book", "b-404"), http.StatusNotFound},
		{"exhausted", appErrors.ExhaustedRetries("book barcode generation"), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&bookServiceMock{err: tc.err}, &exportServiceMock{}, nil)
			w := do(r, http.MethodPost, "/api/v1/books", "", map[string]string{"title": "x"})
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestInvalidTokenRejectedOnPublicRoute(t *testing.T) {
	books := &bookServiceMock{}
	r := newTestRouter(books, &exportServiceMock{}, nil)

	w := do(r, http.MethodGet, "/api/v1/books", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookDeleteAndLabel(t *testing.T) {
	books := &bookServiceMock{labelBytes: []byte("%PDF-1.3 label")}
	r := newTestRouter(books, &exportServiceMock{}, nil)

	w := do(r, http.MethodDelete, "/api/v1/books/b-1", "staff-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "b-1", books.deletedID)

	w = do(r, http.MethodGet, "/api/v1/books/b-1/label", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "label-b-1.pdf")
}

func TestExportRoutes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "exp-1.csv")
	require.NoError(t, os.WriteFile(file, []byte("barcode,title\n"), 0o600))
	exports := &exportServiceMock{file: file}
	r := newTestRouter(&bookServiceMock{}, exports, nil)

	w := do(r, http.MethodPost, "/api/v1/exports/books?format=PDF&search=sejarah", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/v1/exports/books?format=PDF&search=sejarah", "staff-token", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ExportFormatPDF, exports.req.Format)
	assert.Equal(t, "sejarah", exports.req.Search)

	w = do(r, http.MethodGet, "/api/v1/exports/download?token=tok", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "barcode,title\n", w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/exports/download?token=bad", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/exports/download", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	r := newTestRouter(&bookServiceMock{}, &exportServiceMock{}, map[string]Pinger{
		"database": pingStub{},
		"cache":    PingFunc(func(context.Context) error { return errors.New("redis: connection refused") }),
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", nil).Code)

	w := do(r, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w = do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
