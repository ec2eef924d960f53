package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/validation"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentService handles student use-cases.
type StudentService struct {
	guard
	repo      studentRepository
	validator *validation.Validator
	audit     *AuditService
	logger    *zap.Logger
	now       clock
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validator *validation.Validator, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{guard: guard{metrics: metrics}, repo: repo, validator: validator, audit: audit, logger: logger}
}

// WithClock overrides the clock used to derive ages.
func (s *StudentService) WithClock(now func() time.Time) *StudentService {
	s.now = now
	return s
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, actor policy.Actor, filter models.StudentFilter) (_ *Page[models.Student], err error) {
	ctx, span := startSpan(ctx, policy.ResourceStudent, policy.ActionList, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceStudent, policy.ActionList, actor, ""); err != nil {
		return nil, err
	}
	filter.Section = validation.NormalizeSection(filter.Section)
	if filter.Gender != "" {
		filter.Gender = validation.NormalizeGender(filter.Gender)
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	now := s.now.now()
	for i := range students {
		students[i].Age = students[i].DateOfBirth.YearsSince(now)
	}
	return newPage(students, total, filter.Page, filter.PageSize), nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, actor policy.Actor, id string) (_ *models.Student, err error) {
	ctx, span := startSpan(ctx, policy.ResourceStudent, policy.ActionRetrieve, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceStudent, policy.ActionRetrieve, actor, id); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "student", id)
	}
	student.Age = student.DateOfBirth.YearsSince(s.now.now())
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, actor policy.Actor, in dto.StudentInput) (_ *models.Student, err error) {
	ctx, span := startSpan(ctx, policy.ResourceStudent, policy.ActionCreate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceStudent, policy.ActionCreate, actor, ""); err != nil {
		return nil, err
	}
	student, err := s.validator.Student(ctx, in, s.uniqueExcluding(""))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, writeError(err, "student", "", "failed to create student")
	}
	student.Age = student.DateOfBirth.YearsSince(s.now.now())
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: policy.ResourceStudent, ResourceID: student.ID, After: student})
	return student, nil
}

// Update applies patch to the stored student.
func (s *StudentService) Update(ctx context.Context, actor policy.Actor, id string, patch dto.StudentPatch) (_ *models.Student, err error) {
	ctx, span := startSpan(ctx, policy.ResourceStudent, policy.ActionUpdate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceStudent, policy.ActionUpdate, actor, id); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "student", id)
	}

	in := dto.StudentInputFrom(*current)
	patch.Apply(&in)
	student, err := s.validator.Student(ctx, in, s.uniqueExcluding(id))
	if err != nil {
		return nil, err
	}
	student.ID = current.ID
	student.CreatedAt = current.CreatedAt

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, writeError(err, "student", id, "failed to update student")
	}
	student.Age = student.DateOfBirth.YearsSince(s.now.now())
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: policy.ResourceStudent, ResourceID: id, Before: current, After: student})
	return student, nil
}

// Delete removes a student permanently.
func (s *StudentService) Delete(ctx context.Context, actor policy.Actor, id string) (err error) {
	ctx, span := startSpan(ctx, policy.ResourceStudent, policy.ActionDelete, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceStudent, policy.ActionDelete, actor, id); err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "student", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "student", id, "failed to delete student")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: policy.ResourceStudent, ResourceID: id, Before: current})
	return nil
}

func (s *StudentService) uniqueExcluding(id string) validation.UniqueFunc {
	return func(ctx context.Context, field, value string) (bool, error) {
		return s.repo.ExistsBy(ctx, field, value, id)
	}
}
