package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/barcode"
	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/repository"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
	"github.com/noah-isme/sma-library-api/pkg/export"
)

type recordingLabels struct {
	last export.Label
}

func (r *recordingLabels) Render(l export.Label) ([]byte, error) {
	r.last = l
	return []byte("%PDF-label"), nil
}

func bookInput() dto.BookInput {
	return dto.BookInput{
		Title:           "Laskar Pelangi",
		Author:          "Andrea Hirata",
		ISBN:            "9789793062792",
		BookType:        "novel",
		PublicationYear: 2005,
		Price:           json.Number("85000"),
	}
}

func newBookService(repo *fakeBookRepo, codes *barcode.Generator) *BookService {
	return NewBookService(BookServiceParams{
		Repo:        repo,
		Validator:   testValidator(),
		Codes:       codes,
		Labels:      &recordingLabels{},
		Metrics:     NewMetricsService(),
		MaxAttempts: 3,
	})
}

func TestBookServiceListIsPublic(t *testing.T) {
	repo := newFakeBookRepo()
	repo.seed(
		models.Book{ID: "b1", Title: "A", AvailableQuantity: 2},
		models.Book{ID: "b2", Title: "B", AvailableQuantity: 0},
	)
	svc := newBookService(repo, nil)

	page, err := svc.List(context.Background(), anonymous, models.BookFilter{BookType: " Novel ", Page: 0, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].IsAvailable)
	assert.False(t, page.Items[1].IsAvailable)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 100, TotalCount: 2}, page.Pagination)
	assert.Equal(t, "novel", repo.lastFilter.BookType)
}

func TestBookServiceAnonymousCannotWrite(t *testing.T) {
	svc := newBookService(newFakeBookRepo(), nil)

	_, err := svc.Create(context.Background(), anonymous, bookInput())
	appErr := requireAppError(t, err, appErrors.ErrAccessDenied.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)

	err = svc.Delete(context.Background(), anonymous, "b1")
	requireAppError(t, err, appErrors.ErrAccessDenied.Code)
}

func TestBookServiceCreateGeneratesBarcode(t *testing.T) {
	repo := newFakeBookRepo()
	svc := newBookService(repo, sequenceSource("abcdef0123456789abcdef0123456789"))

	book, err := svc.Create(context.Background(), teacher, bookInput())
	require.NoError(t, err)
	assert.Len(t, book.Barcode, barcode.BookBarcodeLength)
	assert.True(t, strings.HasPrefix(book.Barcode, "NO2005ABCDEF"))
	assert.True(t, barcode.ValidBookBarcode(book.Barcode))
	assert.True(t, book.IsAvailable)
	assert.NotEmpty(t, book.ID)
}

func TestBookServiceCreateRetriesOnCollision(t *testing.T) {
	repo := newFakeBookRepo()
	gen := sequenceSource("111111aa", "222222bb", "333333cc")
	taken, err := barcode.NewGenerator(barcode.SourceFunc(func() string { return "111111aa" })).BookBarcode("novel", 2005)
	require.NoError(t, err)
	repo.seed(models.Book{ID: "existing", ISBN: "1111111111", Barcode: taken})
	// The second code passes the pre-check but loses the insert race.
	repo.createErrs = []error{&repository.DuplicateError{Table: "books", Field: "barcode", Value: "x"}}
	svc := newBookService(repo, gen)

	book, err := svc.Create(context.Background(), teacher, bookInput())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(book.Barcode, "NO2005333333"))
	assert.Equal(t, 2, repo.creates)
}

func TestBookServiceCreateExhaustsRetries(t *testing.T) {
	repo := newFakeBookRepo()
	code, err := barcode.NewGenerator(barcode.SourceFunc(func() string { return "deadbeef" })).BookBarcode("novel", 2005)
	require.NoError(t, err)
	repo.seed(models.Book{ID: "existing", ISBN: "1", Barcode: code})
	svc := newBookService(repo, sequenceSource("deadbeef"))

	_, err = svc.Create(context.Background(), teacher, bookInput())
	appErr := requireAppError(t, err, appErrors.ErrExhaustedRetries.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
	assert.Equal(t, 0, repo.creates)
}

func TestBookServiceCreateConflicts(t *testing.T) {
	repo := newFakeBookRepo()
	repo.seed(models.Book{ID: "b1", ISBN: "9789793062792", Barcode: "NO2005AAAAAA00"})
	svc := newBookService(repo, nil)

	_, err := svc.Create(context.Background(), teacher, bookInput())
	appErr := requireAppError(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, appErrors.ConflictDetail{Field: "isbn", Value: "9789793062792"}, appErr.Details)

	in := bookInput()
	in.ISBN = "123"
	in.Barcode = "NO2005AAAAAA00"
	_, err = svc.Create(context.Background(), teacher, in)
	appErr = requireAppError(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, appErrors.ConflictDetail{Field: "barcode", Value: "NO2005AAAAAA00"}, appErr.Details)
}

func TestBookServiceCreateSurfacesStoreDuplicate(t *testing.T) {
	repo := newFakeBookRepo()
	repo.createErrs = []error{&repository.DuplicateError{Table: "books", Field: "isbn", Value: "9789793062792"}}
	svc := newBookService(repo, nil)

	in := bookInput()
	in.Barcode = "MANUAL01"
	_, err := svc.Create(context.Background(), teacher, in)
	appErr := requireAppError(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, appErrors.ConflictDetail{Field: "isbn", Value: "9789793062792"}, appErr.Details)
}

func TestBookServiceUpdateMergesPatch(t *testing.T) {
	repo := newFakeBookRepo()
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.seed(models.Book{
		ID: "b1", Title: "Old", Author: "Andrea Hirata", ISBN: "9789793062792", Barcode: "NO2005AAAAAA00",
		BookType: "novel", PublicationYear: 2005, Price: "85000.00", Quantity: 3, AvailableQuantity: 1,
		Condition: "good", CreatedAt: created,
	})
	svc := newBookService(repo, nil)

	title := "Laskar Pelangi"
	empty := ""
	book, err := svc.Update(context.Background(), teacher, "b1", dto.BookPatch{Title: &title, Barcode: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Laskar Pelangi", book.Title)
	assert.Equal(t, "NO2005AAAAAA00", book.Barcode)
	assert.Equal(t, 3, book.Quantity)
	assert.Equal(t, 1, book.AvailableQuantity)
	assert.Equal(t, created, book.CreatedAt)

	stored, err := repo.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Laskar Pelangi", stored.Title)
}

func TestBookServiceUpdateValidatesMergedRecord(t *testing.T) {
	repo := newFakeBookRepo()
	repo.seed(models.Book{ID: "b1", Title: "T", Author: "A", ISBN: "1", Barcode: "X", BookType: "novel", PublicationYear: 2005, Price: "0.00", Quantity: 2, AvailableQuantity: 2, Condition: "good"})
	svc := newBookService(repo, nil)

	avail := 5
	_, err := svc.Update(context.Background(), teacher, "b1", dto.BookPatch{AvailableQuantity: &avail})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Update(context.Background(), teacher, "missing", dto.BookPatch{})
	appErr := requireAppError(t, err, appErrors.ErrNotFound.Code)
	assert.Equal(t, appErrors.NotFoundDetail{Entity: "book", ID: "missing"}, appErr.Details)
}

func TestBookServiceDelete(t *testing.T) {
	repo := newFakeBookRepo()
	repo.seed(models.Book{ID: "b1"})
	svc := newBookService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), teacher, "b1"))
	_, err := svc.Get(context.Background(), anonymous, "b1")
	requireAppError(t, err, appErrors.ErrNotFound.Code)

	err = svc.Delete(context.Background(), teacher, "b1")
	requireAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestBookServiceLabel(t *testing.T) {
	repo := newFakeBookRepo()
	repo.seed(models.Book{ID: "b1", Title: "Laskar Pelangi", Author: "Andrea Hirata", Barcode: "NO2005AAAAAA00", Edition: "2nd", Location: "Rak A3"})
	labels := &recordingLabels{}
	svc := NewBookService(BookServiceParams{Repo: repo, Labels: labels})

	pdf, err := svc.Label(context.Background(), anonymous, "b1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-label", string(pdf))
	assert.Equal(t, export.Label{Barcode: "NO2005AAAAAA00", Title: "Laskar Pelangi", Author: "Andrea Hirata", Caption: "2nd Rak A3"}, labels.last)
}

type memCache struct {
	values map[string][]byte
	hits   int
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memCache) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

func TestBookServiceListUsesCatalogCache(t *testing.T) {
	repo := newFakeBookRepo()
	repo.seed(models.Book{ID: "b1", Title: "A", AvailableQuantity: 1})
	cache := &memCache{values: map[string][]byte{}}
	svc := NewBookService(BookServiceParams{
		Repo:      repo,
		Validator: testValidator(),
		Cache:     NewCacheService(cache, nil, time.Minute, nil, true),
	})
	ctx := context.Background()

	_, err := svc.List(ctx, anonymous, models.BookFilter{})
	require.NoError(t, err)
	page, err := svc.List(ctx, anonymous, models.BookFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)
	assert.Equal(t, 1, cache.hits)
	assert.True(t, page.Items[0].IsAvailable)

	_, err = svc.Create(ctx, teacher, bookInput())
	require.NoError(t, err)
	page, err = svc.List(ctx, anonymous, models.BookFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists)
	assert.Len(t, page.Items, 2)
}

func TestBookServiceCreateThenGetRoundTrips(t *testing.T) {
	svc := newBookService(newFakeBookRepo(), sequenceSource("abcdef0123456789"))
	ctx := context.Background()
	qty, avail := 4, 3
	in := bookInput()
	in.Publisher = "Bentang Pustaka"
	in.Edition = "3rd"
	in.Price = json.Number("85000.5")
	in.Quantity = &qty
	in.AvailableQuantity = &avail
	in.Condition = "new"
	in.Location = "Rak A-2"
	in.Description = "Novel wajib kelas 8"

	created, err := svc.Create(ctx, teacher, in)
	require.NoError(t, err)
	got, err := svc.Get(ctx, anonymous, created.ID)
	require.NoError(t, err)

	assert.Equal(t, *created, *got)
	assert.Equal(t, "Laskar Pelangi", got.Title)
	assert.Equal(t, "Andrea Hirata", got.Author)
	assert.Equal(t, "9789793062792", got.ISBN)
	assert.Equal(t, "novel", got.BookType)
	assert.Equal(t, "Bentang Pustaka", got.Publisher)
	assert.Equal(t, 2005, got.PublicationYear)
	assert.Equal(t, "3rd", got.Edition)
	assert.Equal(t, "85000.50", got.Price)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, 3, got.AvailableQuantity)
	assert.Equal(t, "new", got.Condition)
	assert.Equal(t, "Rak A-2", got.Location)
	assert.Equal(t, "Novel wajib kelas 8", got.Description)
	assert.True(t, got.IsAvailable)
	assert.True(t, barcode.ValidBookBarcode(got.Barcode))
}
