package validation

import (
	"context"
	"strings"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

// User validates in and returns the normalized account without a password
// hash. requirePassword is set for new accounts.
func (v *Validator) User(ctx context.Context, in dto.UserInput, requirePassword bool, unique UniqueFunc) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.UserType = strings.ToLower(strings.TrimSpace(in.UserType))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Address = strings.TrimSpace(in.Address)

	fields, err := v.structErrors(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate user")
	}
	if requirePassword && in.Password == "" {
		fields = append(fields, appErrors.FieldError{Field: "password", Kind: appErrors.KindRequired, Reason: "is required"})
	}
	if err := failed(fields); err != nil {
		return nil, err
	}

	if err := checkUnique(ctx, unique,
		uniqueKey{"username", in.Username},
		uniqueKey{"email", in.Email},
	); err != nil {
		return nil, err
	}

	userType := models.UserTypeStaff
	if in.UserType != "" {
		userType = models.UserType(in.UserType)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return &models.User{
		Username:    in.Username,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		UserType:    userType,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
		IsActive:    active,
	}, nil
}
