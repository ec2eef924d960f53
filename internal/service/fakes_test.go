package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-library-api/internal/barcode"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/repository"
	"github.com/noah-isme/sma-library-api/internal/validation"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

var (
	anonymous = policy.Anonymous()
	staff     = policy.ActorFor("staff-1", models.UserTypeStaff)
	teacher   = policy.ActorFor("teacher-1", models.UserTypeTeacher)
)

func testValidator() *validation.Validator {
	return validation.New(validation.WithClock(func() time.Time { return fixedNow }))
}

// sequenceSource replays hex strings, repeating the last one.
func sequenceSource(values ...string) *barcode.Generator {
	var mu sync.Mutex
	i := 0
	return barcode.NewGenerator(barcode.SourceFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}))
}

// memRepo is an in-memory store enforcing unique columns like the database does.
type memRepo[T any] struct {
	mu         sync.Mutex
	table      string
	rows       map[string]T
	order      []string
	id         func(*T) *string
	unique     map[string]func(T) string
	createErrs []error
	creates    int
	lists      int
	listErr    error
}

func newMemRepo[T any](table string, id func(*T) *string, unique map[string]func(T) string) *memRepo[T] {
	return &memRepo[T]{table: table, rows: map[string]T{}, id: id, unique: unique}
}

func (m *memRepo[T]) seed(rows ...T) {
	for i := range rows {
		id := *m.id(&rows[i])
		m.rows[id] = rows[i]
		m.order = append(m.order, id)
	}
}

func (m *memRepo[T]) all() ([]T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		if row, ok := m.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, len(out), nil
}

func (m *memRepo[T]) FindByID(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (m *memRepo[T]) ExistsBy(_ context.Context, field, value, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	get, ok := m.unique[field]
	if !ok {
		return false, fmt.Errorf("%s.%s is not unique", m.table, field)
	}
	for id, row := range m.rows {
		if id != excludeID && get(row) == value {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo[T]) duplicate(row T, selfID string) error {
	for field, get := range m.unique {
		value := get(row)
		if value == "" {
			continue
		}
		for id, other := range m.rows {
			if id != selfID && get(other) == value {
				return &repository.DuplicateError{Table: m.table, Field: field, Value: value}
			}
		}
	}
	return nil
}

func (m *memRepo[T]) Create(_ context.Context, row *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if err := m.duplicate(*row, ""); err != nil {
		return err
	}
	id := m.id(row)
	if *id == "" {
		*id = fmt.Sprintf("%s-%d", m.table, len(m.order)+1)
	}
	m.rows[*id] = *row
	m.order = append(m.order, *id)
	return nil
}

func (m *memRepo[T]) Update(_ context.Context, row *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := *m.id(row)
	if _, ok := m.rows[id]; !ok {
		return sql.ErrNoRows
	}
	if err := m.duplicate(*row, id); err != nil {
		return err
	}
	m.rows[id] = *row
	return nil
}

func (m *memRepo[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

type fakeBookRepo struct {
	*memRepo[models.Book]
	lastFilter models.BookFilter
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{memRepo: newMemRepo("books", func(b *models.Book) *string { return &b.ID }, map[string]func(models.Book) string{
		"isbn":    func(b models.Book) string { return b.ISBN },
		"barcode": func(b models.Book) string { return b.Barcode },
	})}
}

func (f *fakeBookRepo) List(_ context.Context, filter models.BookFilter) ([]models.Book, int, error) {
	f.lastFilter = filter
	return f.all()
}

type fakeStudentRepo struct {
	*memRepo[models.Student]
	lastFilter models.StudentFilter
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{memRepo: newMemRepo("students", func(s *models.Student) *string { return &s.ID }, map[string]func(models.Student) string{
		"student_id": func(s models.Student) string { return s.StudentID },
	})}
}

func (f *fakeStudentRepo) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	f.lastFilter = filter
	return f.all()
}

type fakeSchoolRepo struct {
	*memRepo[models.School]
}

func newFakeSchoolRepo() *fakeSchoolRepo {
	return &fakeSchoolRepo{memRepo: newMemRepo("schools", func(s *models.School) *string { return &s.ID }, map[string]func(models.School) string{
		"code": func(s models.School) string { return s.Code },
	})}
}

func (f *fakeSchoolRepo) List(_ context.Context, _ models.SchoolFilter) ([]models.School, int, error) {
	return f.all()
}

type fakeUserRepo struct {
	*memRepo[models.User]
	tokens    map[string]*models.RefreshToken
	lastLogin map[string]time.Time
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		memRepo: newMemRepo("users", func(u *models.User) *string { return &u.ID }, map[string]func(models.User) string{
			"username": func(u models.User) string { return u.Username },
			"email":    func(u models.User) string { return u.Email },
		}),
		tokens:    map[string]*models.RefreshToken{},
		lastLogin: map[string]time.Time{},
	}
}

func (f *fakeUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	return f.all()
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeUserRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (f *fakeAuditRepo) Create(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAuditRepo) snapshot() []models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AuditLog(nil), f.logs...)
}

// requireAppError asserts err is an *appErrors.Error with code and returns it.
func requireAppError(t require.TestingT, err error, code string) *appErrors.Error {
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}
