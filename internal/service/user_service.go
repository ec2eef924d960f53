package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/validation"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsBy(ctx context.Context, field, value, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// UserService handles account management.
type UserService struct {
	guard
	repo       userRepository
	validator  *validation.Validator
	audit      *AuditService
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validator *validation.Validator, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *UserService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{guard: guard{metrics: metrics}, repo: repo, validator: validator, audit: audit, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the password hashing cost.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, actor policy.Actor, filter models.UserFilter) (_ *Page[models.User], err error) {
	ctx, span := startSpan(ctx, policy.ResourceUser, policy.ActionList, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceUser, policy.ActionList, actor, ""); err != nil {
		return nil, err
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return newPage(users, total, filter.Page, filter.PageSize), nil
}

// Get returns a user by ID. Non-staff actors may only read their own account.
func (s *UserService) Get(ctx context.Context, actor policy.Actor, id string) (_ *models.User, err error) {
	ctx, span := startSpan(ctx, policy.ResourceUser, policy.ActionRetrieve, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceUser, policy.ActionRetrieve, actor, id); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "user", id)
	}
	return user, nil
}

// Create adds a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, actor policy.Actor, in dto.UserInput) (_ *models.User, err error) {
	ctx, span := startSpan(ctx, policy.ResourceUser, policy.ActionCreate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceUser, policy.ActionCreate, actor, ""); err != nil {
		return nil, err
	}
	user, err := s.validator.User(ctx, in, true, s.uniqueExcluding(""))
	if err != nil {
		return nil, err
	}
	if user.PasswordHash, err = s.hash(in.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err, "user", "", "failed to create user")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: policy.ResourceUser, ResourceID: user.ID, After: user})
	return user, nil
}

// Update applies patch to the account. A new password is hashed; an absent
// one keeps the stored hash. Only staff and admins may change user_type or
// is_active.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, patch dto.UserPatch) (_ *models.User, err error) {
	ctx, span := startSpan(ctx, policy.ResourceUser, policy.ActionUpdate, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceUser, policy.ActionUpdate, actor, id); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "user", id)
	}

	in := dto.UserInputFrom(*current)
	patch.Apply(&in)
	user, err := s.validator.User(ctx, in, false, s.uniqueExcluding(id))
	if err != nil {
		return nil, err
	}
	if !actor.StaffOrAdmin && (user.UserType != current.UserType || user.IsActive != current.IsActive) {
		s.metrics.RecordDenied(string(policy.ResourceUser), string(policy.ActionUpdate))
		return nil, appErrors.AccessDenied(string(policy.ResourceUser), string(policy.ActionUpdate), actor.Authenticated)
	}

	user.ID = current.ID
	user.CreatedAt = current.CreatedAt
	user.LastLogin = current.LastLogin
	user.PasswordHash = current.PasswordHash
	if in.Password != "" {
		if user.PasswordHash, err = s.hash(in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeError(err, "user", id, "failed to update user")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: policy.ResourceUser, ResourceID: id, Before: current, After: user})
	return user, nil
}

// Delete removes an account permanently.
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id string) (err error) {
	ctx, span := startSpan(ctx, policy.ResourceUser, policy.ActionDelete, actor)
	defer func() { endSpan(span, err) }()

	if err := s.authorize(policy.ResourceUser, policy.ActionDelete, actor, id); err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "user", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "user", id, "failed to delete user")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: policy.ResourceUser, ResourceID: id, Before: current})
	return nil
}

func (s *UserService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hash), nil
}

func (s *UserService) uniqueExcluding(id string) validation.UniqueFunc {
	return func(ctx context.Context, field, value string) (bool, error) {
		return s.repo.ExistsBy(ctx, field, value, id)
	}
}
