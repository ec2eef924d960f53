package validation

import (
	"context"
	"strings"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

var genderAliases = map[string]string{
	"m":      models.GenderMale,
	"male":   models.GenderMale,
	"f":      models.GenderFemale,
	"female": models.GenderFemale,
	"o":      models.GenderOther,
	"other":  models.GenderOther,
}

// NormalizeGender maps single-letter codes and any casing onto the stored
// gender values. Unknown input is returned trimmed and lowercased.
func NormalizeGender(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if g, ok := genderAliases[key]; ok {
		return g
	}
	return key
}

// NormalizeSection trims and uppercases a class section.
func NormalizeSection(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Student validates in and returns the normalized record. The returned
// record has no id or timestamps.
func (v *Validator) Student(ctx context.Context, in dto.StudentInput, unique UniqueFunc) (*models.Student, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Gender = NormalizeGender(in.Gender)
	in.Section = NormalizeSection(in.Section)
	in.ParentName = strings.TrimSpace(in.ParentName)
	in.ParentPhone = strings.TrimSpace(in.ParentPhone)
	in.ParentEmail = strings.TrimSpace(in.ParentEmail)
	in.Address = strings.TrimSpace(in.Address)

	fields, err := v.structErrors(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}

	dob, ferr := v.parseDate("date_of_birth", in.DateOfBirth, true)
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	admission, ferr := v.parseDate("admission_date", in.AdmissionDate, false)
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	if err := failed(fields); err != nil {
		return nil, err
	}

	if err := checkUnique(ctx, unique, uniqueKey{"student_id", in.StudentID}); err != nil {
		return nil, err
	}

	if admission.IsZero() {
		admission = v.Today()
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return &models.Student{
		StudentID:     in.StudentID,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		DateOfBirth:   dob,
		Gender:        in.Gender,
		Grade:         in.Grade,
		Section:       in.Section,
		AdmissionDate: admission,
		ParentName:    in.ParentName,
		ParentPhone:   in.ParentPhone,
		ParentEmail:   in.ParentEmail,
		Address:       in.Address,
		IsActive:      active,
	}, nil
}
