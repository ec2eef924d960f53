package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func columns(list string) []string {
	return strings.Split(list, ", ")
}

func TestBookRepositoryListFiltersAndSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	now := time.Now()
	where := "WHERE book_type = $1 AND (LOWER(title) LIKE $2 ESCAPE '\\' OR LOWER(author) LIKE $2 ESCAPE '\\' OR LOWER(isbn) LIKE $2 ESCAPE '\\' OR LOWER(barcode) LIKE $2 ESCAPE '\\' OR LOWER(publisher) LIKE $2 ESCAPE '\\')"
	rows := sqlmock.NewRows(columns(bookColumns)).
		AddRow("b1", "Go Basics", "Ana", "9780000000001", "TE2023ABCDEF55", "textbook", "Gramedia", 2023, "2nd", "45000.00", 3, 2, "good", "R1", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+bookColumns+" FROM books "+where+" ORDER BY title ASC, author ASC, id ASC LIMIT 20 OFFSET 0")).
		WithArgs("textbook", "%go%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM books "+where)).
		WithArgs("textbook", "%go%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	books, total, err := repo.List(context.Background(), models.BookFilter{BookType: "textbook", Search: " Go "})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "45000.00", books[0].Price)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryListSortAndPage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE 1=1 ORDER BY publication_year DESC, id ASC LIMIT 100 OFFSET 200")).
		WillReturnRows(sqlmock.NewRows(columns(bookColumns)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM books WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	books, total, err := repo.List(context.Background(), models.BookFilter{SortBy: "publication_year", SortOrder: "desc", Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryCreateDuplicateBarcode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec("INSERT INTO books").
		WillReturnError(&pq.Error{
			Code:       "23505",
			Constraint: "books_barcode_key",
			Detail:     "Key (barcode)=(TE2023ABCDEF55) already exists.",
		})

	err := repo.Create(context.Background(), &models.Book{Title: "Go", Barcode: "TE2023ABCDEF55"})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "barcode", dup.Field)
	assert.Equal(t, "TE2023ABCDEF55", dup.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryCreateAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec("INSERT INTO books").WillReturnResult(sqlmock.NewResult(1, 1))

	book := &models.Book{Title: "Go", ISBN: "1", Barcode: "X", Price: "0.00"}
	require.NoError(t, repo.Create(context.Background(), book))
	assert.NotEmpty(t, book.ID)
	assert.False(t, book.CreatedAt.IsZero())
	assert.Equal(t, book.CreatedAt, book.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepositoryExistsByRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookRepository(db)

	_, err := repo.ExistsBy(context.Background(), "title; DROP TABLE books", "x", "")
	assert.Error(t, err)
}

func TestFieldFromConstraint(t *testing.T) {
	assert.Equal(t, "student_id", fieldFromConstraint("students", "students_student_id_key"))
	assert.Equal(t, "code", fieldFromConstraint("schools", "schools_code_key"))
}
