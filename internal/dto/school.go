package dto

import "github.com/noah-isme/sma-library-api/internal/models"

// SchoolInput is the full school payload.
type SchoolInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	Code            string `json:"code" validate:"omitempty,max=10"`
	Address         string `json:"address" validate:"required"`
	Phone           string `json:"phone" validate:"required,max=15"`
	Email           string `json:"email" validate:"required,max=254,looseemail"`
	Website         string `json:"website" validate:"omitempty,http_url"`
	PrincipalName   string `json:"principal_name" validate:"required,max=100"`
	EstablishedDate string `json:"established_date" validate:"required"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

// SchoolPatch carries only the fields present in a partial update.
type SchoolPatch struct {
	Name            *string `json:"name,omitempty"`
	Code            *string `json:"code,omitempty"`
	Address         *string `json:"address,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
	Website         *string `json:"website,omitempty"`
	PrincipalName   *string `json:"principal_name,omitempty"`
	EstablishedDate *string `json:"established_date,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// SchoolInputFrom renders a stored school back into input form.
func SchoolInputFrom(s models.School) SchoolInput {
	return SchoolInput{
		Name:            s.Name,
		Code:            s.Code,
		Address:         s.Address,
		Phone:           s.Phone,
		Email:           s.Email,
		Website:         s.Website,
		PrincipalName:   s.PrincipalName,
		EstablishedDate: s.EstablishedDate.String(),
		IsActive:        boolPtr(s.IsActive),
	}
}

// Apply overwrites fields of in that are present in p.
func (p SchoolPatch) Apply(in *SchoolInput) {
	setString(&in.Name, p.Name)
	setString(&in.Code, p.Code)
	setString(&in.Address, p.Address)
	setString(&in.Phone, p.Phone)
	setString(&in.Email, p.Email)
	setString(&in.Website, p.Website)
	setString(&in.PrincipalName, p.PrincipalName)
	setString(&in.EstablishedDate, p.EstablishedDate)
	if p.IsActive != nil {
		in.IsActive = boolPtr(*p.IsActive)
	}
}
