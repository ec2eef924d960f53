package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-library-api/internal/models"
)

const bookColumns = `id, title, author, isbn, barcode, book_type, publisher, publication_year, edition, price, quantity, available_quantity, condition, location, description, created_at, updated_at`

var (
	bookSorts = map[string]string{
		"title":            "title",
		"author":           "author",
		"publication_year": "publication_year",
		"created_at":       "created_at",
	}
	bookUniqueColumns = map[string]bool{"isbn": true, "barcode": true}
)

// BookRepository manages persistence for catalog books.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// List returns books matching the filter plus the total match count.
func (r *BookRepository) List(ctx context.Context, filter models.BookFilter) ([]models.Book, int, error) {
	var where whereBuilder
	if filter.BookType != "" {
		where.eq("book_type", filter.BookType)
	}
	if filter.Condition != "" {
		where.eq("condition", filter.Condition)
	}
	if filter.PublicationYear != nil {
		where.eq("publication_year", *filter.PublicationYear)
	}
	if filter.Author != "" {
		where.eq("author", filter.Author)
	}
	if filter.Publisher != "" {
		where.eq("publisher", filter.Publisher)
	}
	where.search(filter.Search, "title", "author", "isbn", "barcode", "publisher")

	order := orderBy(bookSorts, filter.SortBy, filter.SortOrder, "title ASC, author ASC, id ASC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM books %s ORDER BY %s LIMIT %d OFFSET %d", bookColumns, where.clause(), order, limit, offset)
	books := make([]models.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM books "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}
	return books, total, nil
}

// FindByID fetches a book by id. Missing rows return sql.ErrNoRows.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	query := fmt.Sprintf("SELECT %s FROM books WHERE id = $1", bookColumns)
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &book, nil
}

// ExistsBy reports whether another book already holds value in a unique column.
func (r *BookRepository) ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error) {
	if !bookUniqueColumns[field] {
		return false, fmt.Errorf("books.%s is not a unique column", field)
	}
	return existsBy(ctx, r.db, "books", field, value, excludeID)
}

// Create inserts a book, assigning id and timestamps.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	const query = `INSERT INTO books (id, title, author, isbn, barcode, book_type, publisher, publication_year, edition, price, quantity, available_quantity, condition, location, description, created_at, updated_at)
        VALUES (:id, :title, :author, :isbn, :barcode, :book_type, :publisher, :publication_year, :edition, :price, :quantity, :available_quantity, :condition, :location, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return translateWriteError(err, "books", "create book")
	}
	return nil
}

// Update overwrites every mutable column of book.
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	const query = `UPDATE books SET title = :title, author = :author, isbn = :isbn, barcode = :barcode, book_type = :book_type, publisher = :publisher, publication_year = :publication_year, edition = :edition, price = :price, quantity = :quantity, available_quantity = :available_quantity, condition = :condition, location = :location, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, book)
	if err != nil {
		return translateWriteError(err, "books", "update book")
	}
	return requireAffected(res, "update book")
}

// Delete removes a book permanently.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return requireAffected(res, "delete book")
}
