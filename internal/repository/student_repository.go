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

const studentColumns = `id, student_id, first_name, last_name, date_of_birth, gender, grade, section, admission_date, parent_name, parent_phone, parent_email, address, is_active, created_at, updated_at`

var (
	studentSorts = map[string]string{
		"grade":          "grade",
		"section":        "section",
		"first_name":     "first_name",
		"last_name":      "last_name",
		"admission_date": "admission_date",
	}
	studentUniqueColumns = map[string]bool{"student_id": true}
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var where whereBuilder
	if filter.Grade != nil {
		where.eq("grade", *filter.Grade)
	}
	if filter.Section != "" {
		where.eq("section", filter.Section)
	}
	if filter.Gender != "" {
		where.eq("gender", filter.Gender)
	}
	if filter.IsActive != nil {
		where.eq("is_active", *filter.IsActive)
	}
	where.search(filter.Search, "first_name", "last_name", "student_id", "parent_name")

	order := orderBy(studentSorts, filter.SortBy, filter.SortOrder, "grade ASC, section ASC, first_name ASC, last_name ASC, id ASC")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM students %s ORDER BY %s LIMIT %d OFFSET %d", studentColumns, where.clause(), order, limit, offset)
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by id. Missing rows return sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ExistsBy checks if another student already holds value in a unique column.
func (r *StudentRepository) ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error) {
	if !studentUniqueColumns[field] {
		return false, fmt.Errorf("students.%s is not a unique column", field)
	}
	return existsBy(ctx, r.db, "students", field, value, excludeID)
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_id, first_name, last_name, date_of_birth, gender, grade, section, admission_date, parent_name, parent_phone, parent_email, address, is_active, created_at, updated_at)
        VALUES (:id, :student_id, :first_name, :last_name, :date_of_birth, :gender, :grade, :section, :admission_date, :parent_name, :parent_phone, :parent_email, :address, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return translateWriteError(err, "students", "create student")
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_id = :student_id, first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth, gender = :gender, grade = :grade, section = :section, admission_date = :admission_date, parent_name = :parent_name, parent_phone = :parent_phone, parent_email = :parent_email, address = :address, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return translateWriteError(err, "students", "update student")
	}
	return requireAffected(res, "update student")
}

// Delete removes a student permanently.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res, "delete student")
}
