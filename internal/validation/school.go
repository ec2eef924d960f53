package validation

import (
	"context"
	"strings"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

// School validates in and returns the normalized record. An empty code is
// left empty for the caller to generate.
func (v *Validator) School(ctx context.Context, in dto.SchoolInput, unique UniqueFunc) (*models.School, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Website = strings.TrimSpace(in.Website)
	in.PrincipalName = strings.TrimSpace(in.PrincipalName)

	fields, err := v.structErrors(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate school")
	}

	established, ferr := v.parseDate("established_date", in.EstablishedDate, true)
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	if err := failed(fields); err != nil {
		return nil, err
	}

	if err := checkUnique(ctx, unique, uniqueKey{"code", in.Code}); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return &models.School{
		Name:            in.Name,
		Code:            in.Code,
		Address:         in.Address,
		Phone:           in.Phone,
		Email:           in.Email,
		Website:         in.Website,
		PrincipalName:   in.PrincipalName,
		EstablishedDate: established,
		IsActive:        active,
	}, nil
}
