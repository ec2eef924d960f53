package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-library-api/internal/barcode"
	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/validation"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
	"github.com/noah-isme/sma-library-api/pkg/export"
)

const bookCachePrefix = "catalog:books:"

type bookRepository interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, int, error)
	FindByID(ctx context.Context, id string) (*models.Book, error)
	ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error)
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id string) error
}

type labelRenderer interface {
	Render(l export.Label) ([]byte, error)
}

// BookServiceParams groups constructor dependencies.
type BookServiceParams struct {
	Repo        bookRepository
	Validator   *validation.Validator
	Codes       *barcode.Generator
	Labels      labelRenderer
	Cache       *CacheService
	Audit       *AuditService
	Metrics     *MetricsService
	Logger      *zap.Logger
	MaxAttempts int
}

// BookService manages the catalog.
type BookService struct {
	guard
	repo        bookRepository
	validator   *validation.Validator
	codes       *barcode.Generator
	labels      labelRenderer
	cache       *CacheService
	audit       *AuditService
	logger      *zap.Logger
	maxAttempts int
}

// NewBookService constructs a BookService with defaults for optional dependencies.
func NewBookService(params BookServiceParams) *BookService {
	if params.Validator == nil {
		params.Validator = validation.New()
	}
	if params.Codes == nil {
		params.Codes = barcode.NewGenerator(nil)
	}
	if params.Labels == nil {
		params.Labels = export.NewLabelRenderer()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = defaultCodeAttempts
	}
	return &BookService{
		guard:       guard{metrics: params.Metrics},
		repo:        params.Repo,
		validator:   params.Validator,
		codes:       params.Codes,
		labels:      params.Labels,
		cache:       params.Cache,
		audit:       params.Audit,
		logger:      params.Logger,
		maxAttempts: params.MaxAttempts,
	}
}

// List returns a page of books. Results are served from the catalog cache when enabled.
func (s *BookService) List(ctx context.Context, actor policy.Actor, filter models.BookFilter) (_ *Page[models.Book], err error) {
	ctx, span := startSpan(ctx, policy.ResourceBook, policy.ActionList, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceBook, policy.ActionList, actor, ""); err != nil {
		return nil, err
	}
	filter.BookType = strings.ToLower(strings.TrimSpace(filter.BookType))
	filter.Condition = strings.ToLower(strings.TrimSpace(filter.Condition))

	key := bookCacheKey(filter)
	var cached Page[models.Book]
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	books, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list books")
	}
	for i := range books {
		decorateBook(&books[i])
	}
	page := newPage(books, total, filter.Page, filter.PageSize)
	s.cache.Set(ctx, key, page)
	return page, nil
}

// Get returns a single book.
func (s *BookService) Get(ctx context.Context, actor policy.Actor, id string) (_ *models.Book, err error) {
	ctx, span := startSpan(ctx, policy.ResourceBook, policy.ActionRetrieve, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceBook, policy.ActionRetrieve, actor, id); err != nil {
		return nil, err
	}
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "book", id)
	}
	decorateBook(book)
	return book, nil
}

// Create validates and stores a book, generating a barcode when none is given.
func (s *BookService) Create(ctx context.Context, actor policy.Actor, in dto.BookInput) (_ *models.Book, err error) {
	ctx, span := startSpan(ctx, policy.ResourceBook, policy.ActionCreate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceBook, policy.ActionCreate, actor, ""); err != nil {
		return nil, err
	}
	book, err := s.validator.Book(ctx, in, s.uniqueExcluding(""))
	if err != nil {
		return nil, err
	}

	if book.Barcode != "" {
		if err := s.repo.Create(ctx, book); err != nil {
			return nil, writeError(err, "book", "", "failed to create book")
		}
	} else if err := s.allocateBarcode(book).run(ctx); err != nil {
		return nil, err
	}

	decorateBook(book)
	s.cache.Invalidate(ctx, bookCachePrefix+"*")
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: policy.ResourceBook, ResourceID: book.ID, After: book})
	s.logger.Info("book created", zap.String("book_id", book.ID), zap.String("barcode", book.Barcode))
	return book, nil
}

// Update applies patch to the stored book and re-validates the result. An
// emptied barcode keeps the stored one.
func (s *BookService) Update(ctx context.Context, actor policy.Actor, id string, patch dto.BookPatch) (_ *models.Book, err error) {
	ctx, span := startSpan(ctx, policy.ResourceBook, policy.ActionUpdate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceBook, policy.ActionUpdate, actor, id); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "book", id)
	}

	in := dto.BookInputFrom(*current)
	patch.Apply(&in)
	book, err := s.validator.Book(ctx, in, s.uniqueExcluding(id))
	if err != nil {
		return nil, err
	}
	book.ID = current.ID
	book.CreatedAt = current.CreatedAt
	if book.Barcode == "" {
		book.Barcode = current.Barcode
	}

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, writeError(err, "book", id, "failed to update book")
	}
	decorateBook(book)
	s.cache.Invalidate(ctx, bookCachePrefix+"*")
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: policy.ResourceBook, ResourceID: id, Before: current, After: book})
	return book, nil
}

// Delete removes a book permanently.
func (s *BookService) Delete(ctx context.Context, actor policy.Actor, id string) (err error) {
	ctx, span := startSpan(ctx, policy.ResourceBook, policy.ActionDelete, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceBook, policy.ActionDelete, actor, id); err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "book", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "book", id, "failed to delete book")
	}
	s.cache.Invalidate(ctx, bookCachePrefix+"*")
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: policy.ResourceBook, ResourceID: id, Before: current})
	return nil
}

// Label renders the printable barcode label for a book.
func (s *BookService) Label(ctx context.Context, actor policy.Actor, id string) ([]byte, error) {
	book, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	caption := book.Location
	if book.Edition != "" {
		caption = strings.TrimSpace(book.Edition + " " + caption)
	}
	pdf, err := s.labels.Render(export.Label{Barcode: book.Barcode, Title: book.Title, Author: book.Author, Caption: caption})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render label")
	}
	return pdf, nil
}

func (s *BookService) allocateBarcode(book *models.Book) codeAllocation {
	return codeAllocation{
		kind:      "book_barcode",
		field:     "barcode",
		operation: "book barcode generation",
		attempts:  s.maxAttempts,
		metrics:   s.metrics,
		generate: func() (string, error) {
			return s.codes.BookBarcode(book.BookType, book.PublicationYear)
		},
		taken: func(ctx context.Context, code string) (bool, error) {
			return s.repo.ExistsBy(ctx, "barcode", code, "")
		},
		persist: func(ctx context.Context, code string) error {
			book.Barcode = code
			err := s.repo.Create(ctx, book)
			if err != nil && !isDuplicateOf(err, "barcode") {
				return writeError(err, "book", "", "failed to create book")
			}
			return err
		},
	}
}

func (s *BookService) uniqueExcluding(id string) validation.UniqueFunc {
	return func(ctx context.Context, field, value string) (bool, error) {
		return s.repo.ExistsBy(ctx, field, value, id)
	}
}

func decorateBook(b *models.Book) {
	b.IsAvailable = b.AvailableQuantity > 0
}

func bookCacheKey(f models.BookFilter) string {
	year := ""
	if f.PublicationYear != nil {
		year = fmt.Sprint(*f.PublicationYear)
	}
	return bookCachePrefix + strings.Join([]string{
		f.BookType, f.Condition, year, f.Author, f.Publisher, f.Search,
		fmt.Sprint(f.Page), fmt.Sprint(f.PageSize), f.SortBy, f.SortOrder,
	}, "|")
}
