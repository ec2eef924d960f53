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

const schoolColumns = `id, name, code, address, phone, email, website, principal_name, established_date, is_active, created_at, updated_at`

var schoolSorts = map[string]string{
	"name":             "name",
	"code":             "code",
	"established_date": "established_date",
}

// SchoolRepository manages persistence for schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// List returns schools matching the filter plus the total match count.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	var where whereBuilder
	if filter.IsActive != nil {
		where.eq("is_active", *filter.IsActive)
	}
	where.search(filter.Search, "name", "code", "principal_name")

	order := orderBy(schoolSorts, filter.SortBy, filter.SortOrder, "name ASC, id ASC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM schools %s ORDER BY %s LIMIT %d OFFSET %d", schoolColumns, where.clause(), order, limit, offset)
	schools := make([]models.School, 0)
	if err := r.db.SelectContext(ctx, &schools, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schools "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// FindByID fetches a school by id. Missing rows return sql.ErrNoRows.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf("SELECT %s FROM schools WHERE id = $1", schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// ExistsBy checks the code column; it is the only unique school field.
func (r *SchoolRepository) ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error) {
	if field != "code" {
		return false, fmt.Errorf("schools.%s is not a unique column", field)
	}
	return existsBy(ctx, r.db, "schools", field, value, excludeID)
}

// Create inserts a school, assigning id and timestamps.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now
	const query = `INSERT INTO schools (id, name, code, address, phone, email, website, principal_name, established_date, is_active, created_at, updated_at)
        VALUES (:id, :name, :code, :address, :phone, :email, :website, :principal_name, :established_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return translateWriteError(err, "schools", "create school")
	}
	return nil
}

// Update overwrites every mutable column of school.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, code = :code, address = :address, phone = :phone, email = :email, website = :website, principal_name = :principal_name, established_date = :established_date, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, school)
	if err != nil {
		return translateWriteError(err, "schools", "update school")
	}
	return requireAffected(res, "update school")
}

// Delete removes a school permanently.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	return requireAffected(res, "delete school")
}
