package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/models"
)

func TestWhereBuilderSearchEscapesWildcards(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"Negeri", "%negeri%"},
		{"%", `%\%%`},
		{"10_A", `%10\_a%`},
		{`C:\dir`, `%c:\\dir%`},
	}
	for _, tt := range tests {
		var w whereBuilder
		w.search(tt.term, "name")
		require.Len(t, w.args, 1)
		assert.Equal(t, tt.want, w.args[0], tt.term)
		assert.Equal(t, `WHERE (LOWER(name) LIKE $1 ESCAPE '\')`, w.clause())
	}
}

func TestPageWindowClampsHugePage(t *testing.T) {
	limit, offset := pageWindow(int(^uint(0)>>1), 50)
	assert.Equal(t, 50, limit)
	assert.Equal(t, (maxPage-1)*50, offset)
	assert.Positive(t, offset)

	page, size := NormalizePage(-3, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)

	page, _ = NormalizePage(int(^uint(0)>>1), 10)
	assert.Equal(t, maxPage, page)
}

func TestSchoolRepositorySearchPercentIsLiteral(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	where := `WHERE (LOWER(name) LIKE $1 ESCAPE '\' OR LOWER(code) LIKE $1 ESCAPE '\' OR LOWER(principal_name) LIKE $1 ESCAPE '\')`
	mock.ExpectQuery(regexp.QuoteMeta("FROM schools " + where)).
		WithArgs(`%\%%`).
		WillReturnRows(sqlmock.NewRows(columns(schoolColumns)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools " + where)).
		WithArgs(`%\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	schools, total, err := repo.List(context.Background(), models.SchoolFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, schools)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
