package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
	"github.com/noah-isme/sma-library-api/pkg/export"
	"github.com/noah-isme/sma-library-api/pkg/storage"
)

const exportPageSize = 100

type fileStorage interface {
	Save(name string, data []byte) error
	Open(name string) (*os.File, error)
	Purge(cutoff time.Time) ([]string, error)
}

type downloadSigner interface {
	Sign(exportID, path string) (string, time.Time, error)
	Verify(token string) (storage.Grant, error)
}

type bookLister interface {
	List(ctx context.Context, actor policy.Actor, filter models.BookFilter) (*Page[models.Book], error)
}

type studentLister interface {
	List(ctx context.Context, actor policy.Actor, filter models.StudentFilter) (*Page[models.Student], error)
}

type schoolLister interface {
	List(ctx context.Context, actor policy.Actor, filter models.SchoolFilter) (*Page[models.School], error)
}

type userLister interface {
	List(ctx context.Context, actor policy.Actor, filter models.UserFilter) (*Page[models.User], error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	MaxRows   int
	ResultTTL time.Duration
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Books    bookLister
	Students studentLister
	Schools  schoolLister
	Users    userLister
	Storage  fileStorage
	Signer   downloadSigner
	Audit    *AuditService
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   ExportConfig
}

// ExportService renders record lists to CSV or PDF files behind signed links.
type ExportService struct {
	guard
	books    bookLister
	students studentLister
	schools  schoolLister
	users    userLister
	storage  fileStorage
	signer   downloadSigner
	audit    *AuditService
	logger   *zap.Logger
	cfg      ExportConfig
}

// Download is an opened export file ready to stream.
type Download struct {
	File        *os.File
	Filename    string
	ContentType string
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Config.MaxRows <= 0 {
		params.Config.MaxRows = 5000
	}
	if params.Config.ResultTTL <= 0 {
		params.Config.ResultTTL = 30 * time.Minute
	}
	return &ExportService{
		guard:    guard{metrics: params.Metrics},
		books:    params.Books,
		students: params.Students,
		schools:  params.Schools,
		users:    params.Users,
		storage:  params.Storage,
		signer:   params.Signer,
		audit:    params.Audit,
		logger:   params.Logger,
		cfg:      params.Config,
	}
}

// Export renders the filtered list of req.Resource and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, actor policy.Actor, req models.ExportRequest) (_ *models.ExportResult, err error) {
	resource, ok := exportResources[req.Resource]
	if !ok {
		return nil, appErrors.Validation(appErrors.FieldError{Field: "resource", Kind: appErrors.KindChoice, Reason: "must be one of books, students, schools, users"})
	}
	ctx, span := startSpan(ctx, resource, policy.ActionExport, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(resource, policy.ActionExport, actor, ""); err != nil {
		return nil, err
	}
	renderer, rerr := export.RendererFor(string(req.Format))
	if rerr != nil {
		return nil, appErrors.Validation(appErrors.FieldError{Field: "format", Kind: appErrors.KindChoice, Reason: "must be csv or pdf"})
	}

	table, err := s.collect(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	name := path.Join(req.Resource, id+"."+renderer.Extension())
	if err := s.storage.Save(name, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(id, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	s.metrics.AddExportRows(req.Resource, string(req.Format), len(table.Rows))
	s.audit.Record(ctx, AuditEntry{
		Actor: actor, Action: models.AuditActionExport, Resource: resource, ResourceID: id,
		After: map[string]interface{}{"format": req.Format, "rows": len(table.Rows), "search": req.Search},
	})
	s.logger.Info("export generated", zap.String("export_id", id), zap.String("resource", req.Resource), zap.Int("rows", len(table.Rows)))

	return &models.ExportResult{
		ID:        id,
		Resource:  req.Resource,
		Format:    req.Format,
		Rows:      len(table.Rows),
		Token:     token,
		URL:       s.cfg.APIPrefix + "/exports/download?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open verifies a download token and opens the referenced file.
func (s *ExportService) Open(ctx context.Context, token string) (*Download, error) {
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	f, err := s.storage.Open(grant.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.NotFound("export", grant.ExportID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	contentType := "application/octet-stream"
	if r, err := export.RendererFor(extensionOf(grant.Path)); err == nil {
		contentType = r.ContentType()
	}
	return &Download{File: f, Filename: path.Base(grant.Path), ContentType: contentType}, nil
}

// PurgeExpired removes export files older than the result TTL.
func (s *ExportService) PurgeExpired(ctx context.Context) (int, error) {
	removed, err := s.storage.Purge(time.Now().Add(-s.cfg.ResultTTL))
	if len(removed) > 0 {
		s.logger.Info("expired exports purged", zap.Int("files", len(removed)))
	}
	return len(removed), err
}

var exportResources = map[string]policy.Resource{
	"books":    policy.ResourceBook,
	"students": policy.ResourceStudent,
	"schools":  policy.ResourceSchool,
	"users":    policy.ResourceUser,
}

// collect pages through the list operation until MaxRows rows are gathered.
func (s *ExportService) collect(ctx context.Context, actor policy.Actor, req models.ExportRequest) (export.Table, error) {
	var table export.Table
	for page := 1; ; page++ {
		var (
			total int
			count int
			err   error
		)
		switch req.Resource {
		case "books":
			var p *Page[models.Book]
			if p, err = s.books.List(ctx, actor, models.BookFilter{Search: req.Search, SortBy: req.SortBy, Page: page, PageSize: exportPageSize}); err == nil {
				table.Title, table.Columns = "Books", bookColumns
				for _, b := range p.Items {
					table.Append(b.Barcode, b.Title, b.Author, b.ISBN, b.BookType, b.Publisher, itoa(b.PublicationYear), b.Price, itoa(b.Quantity), itoa(b.AvailableQuantity), b.Condition, b.Location)
				}
				total, count = p.Pagination.TotalCount, len(p.Items)
			}
		case "students":
			var p *Page[models.Student]
			if p, err = s.students.List(ctx, actor, models.StudentFilter{Search: req.Search, SortBy: req.SortBy, Page: page, PageSize: exportPageSize}); err == nil {
				table.Title, table.Columns = "Students", studentColumns
				for _, st := range p.Items {
					table.Append(st.StudentID, st.FirstName, st.LastName, itoa(st.Grade), st.Section, st.Gender, st.DateOfBirth.String(), itoa(st.Age), st.ParentName, st.ParentPhone, strconv.FormatBool(st.IsActive))
				}
				total, count = p.Pagination.TotalCount, len(p.Items)
			}
		case "schools":
			var p *Page[models.School]
			if p, err = s.schools.List(ctx, actor, models.SchoolFilter{Search: req.Search, SortBy: req.SortBy, Page: page, PageSize: exportPageSize}); err == nil {
				table.Title, table.Columns = "Schools", schoolColumns
				for _, sc := range p.Items {
					table.Append(sc.Code, sc.Name, sc.PrincipalName, sc.Phone, sc.Email, sc.Website, sc.EstablishedDate.String(), strconv.FormatBool(sc.IsActive))
				}
				total, count = p.Pagination.TotalCount, len(p.Items)
			}
		case "users":
			var p *Page[models.User]
			if p, err = s.users.List(ctx, actor, models.UserFilter{Search: req.Search, SortBy: req.SortBy, Page: page, PageSize: exportPageSize}); err == nil {
				table.Title, table.Columns = "Users", userColumns
				for _, u := range p.Items {
					table.Append(u.Username, u.Email, u.FirstName, u.LastName, string(u.UserType), strconv.FormatBool(u.IsActive))
				}
				total, count = p.Pagination.TotalCount, len(p.Items)
			}
		default:
			return table, fmt.Errorf("unknown export resource %q", req.Resource)
		}
		if err != nil {
			return table, err
		}
		if len(table.Rows) >= s.cfg.MaxRows {
			table.Rows = table.Rows[:s.cfg.MaxRows]
			return table, nil
		}
		if count == 0 || page*exportPageSize >= total {
			return table, nil
		}
	}
}

var (
	bookColumns    = []string{"barcode", "title", "author", "isbn", "book_type", "publisher", "publication_year", "price", "quantity", "available_quantity", "condition", "location"}
	studentColumns = []string{"student_id", "first_name", "last_name", "grade", "section", "gender", "date_of_birth", "age", "parent_name", "parent_phone", "is_active"}
	schoolColumns  = []string{"code", "name", "principal_name", "phone", "email", "website", "established_date", "is_active"}
	userColumns    = []string{"username", "email", "first_name", "last_name", "user_type", "is_active"}
)

func itoa(v int) string { return strconv.Itoa(v) }

func extensionOf(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}
