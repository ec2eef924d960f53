package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-library-api/internal/barcode"
	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/validation"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id string) error
}

// SchoolService manages the schools served by the library.
type SchoolService struct {
	guard
	repo        schoolRepository
	validator   *validation.Validator
	codes       *barcode.Generator
	audit       *AuditService
	logger      *zap.Logger
	maxAttempts int
}

// NewSchoolService constructs the school service.
func NewSchoolService(repo schoolRepository, validator *validation.Validator, codes *barcode.Generator, audit *AuditService, metrics *MetricsService, logger *zap.Logger, maxAttempts int) *SchoolService {
	if validator == nil {
		validator = validation.New()
	}
	if codes == nil {
		codes = barcode.NewGenerator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{
		guard:       guard{metrics: metrics},
		repo:        repo,
		validator:   validator,
		codes:       codes,
		audit:       audit,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// List returns schools and pagination metadata.
func (s *SchoolService) List(ctx context.Context, actor policy.Actor, filter models.SchoolFilter) (_ *Page[models.School], err error) {
	ctx, span := startSpan(ctx, policy.ResourceSchool, policy.ActionList, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceSchool, policy.ActionList, actor, ""); err != nil {
		return nil, err
	}
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return newPage(schools, total, filter.Page, filter.PageSize), nil
}

// Get returns a single school.
func (s *SchoolService) Get(ctx context.Context, actor policy.Actor, id string) (_ *models.School, err error) {
	ctx, span := startSpan(ctx, policy.ResourceSchool, policy.ActionRetrieve, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceSchool, policy.ActionRetrieve, actor, id); err != nil {
		return nil, err
	}
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "school", id)
	}
	return school, nil
}

// Create stores a school, generating a code when none is given.
func (s *SchoolService) Create(ctx context.Context, actor policy.Actor, in dto.SchoolInput) (_ *models.School, err error) {
	ctx, span := startSpan(ctx, policy.ResourceSchool, policy.ActionCreate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceSchool, policy.ActionCreate, actor, ""); err != nil {
		return nil, err
	}
	school, err := s.validator.School(ctx, in, s.uniqueExcluding(""))
	if err != nil {
		return nil, err
	}

	if school.Code != "" {
		if err := s.repo.Create(ctx, school); err != nil {
			return nil, writeError(err, "school", "", "failed to create school")
		}
	} else if err := s.allocateCode(school).run(ctx); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: policy.ResourceSchool, ResourceID: school.ID, After: school})
	s.logger.Info("school registered", zap.String("school_id", school.ID), zap.String("code", school.Code))
	return school, nil
}

// Update applies patch to the stored school. An emptied code keeps the stored one.
func (s *SchoolService) Update(ctx context.Context, actor policy.Actor, id string, patch dto.SchoolPatch) (_ *models.School, err error) {
	ctx, span := startSpan(ctx, policy.ResourceSchool, policy.ActionUpdate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceSchool, policy.ActionUpdate, actor, id); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "school", id)
	}

	in := dto.SchoolInputFrom(*current)
	patch.Apply(&in)
	school, err := s.validator.School(ctx, in, s.uniqueExcluding(id))
	if err != nil {
		return nil, err
	}
	school.ID = current.ID
	school.CreatedAt = current.CreatedAt
	if school.Code == "" {
		school.Code = current.Code
	}

	if err := s.repo.Update(ctx, school); err != nil {
		return nil, writeError(err, "school", id, "failed to update school")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: policy.ResourceSchool, ResourceID: id, Before: current, After: school})
	return school, nil
}

// Delete removes a school permanently.
func (s *SchoolService) Delete(ctx context.Context, actor policy.Actor, id string) (err error) {
	ctx, span := startSpan(ctx, policy.ResourceSchool, policy.ActionDelete, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceSchool, policy.ActionDelete, actor, id); err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "school", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "school", id, "failed to delete school")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: policy.ResourceSchool, ResourceID: id, Before: current})
	return nil
}

func (s *SchoolService) allocateCode(school *models.School) codeAllocation {
	return codeAllocation{
		kind:      "school_code",
		field:     "code",
		operation: "school code generation",
		attempts:  s.maxAttempts,
		metrics:   s.metrics,
		generate:  s.codes.SchoolCode,
		taken: func(ctx context.Context, code string) (bool, error) {
			return s.repo.ExistsBy(ctx, "code", code, "")
		},
		persist: func(ctx context.Context, code string) error {
			school.Code = code
			err := s.repo.Create(ctx, school)
			if err != nil && !isDuplicateOf(err, "code") {
				return writeError(err, "school", "", "failed to create school")
			}
			return err
		},
	}
}

func (s *SchoolService) uniqueExcluding(id string) validation.UniqueFunc {
	return func(ctx context.Context, field, value string) (bool, error) {
		return s.repo.ExistsBy(ctx, field, value, id)
	}
}
