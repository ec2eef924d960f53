package dto

import "github.com/noah-isme/sma-library-api/internal/models"

// StudentInput is the full student payload accepted on create and produced
// by merging a StudentPatch onto a stored record.
type StudentInput struct {
	StudentID     string `json:"student_id" validate:"required,max=20"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	DateOfBirth   string `json:"date_of_birth" validate:"required"`
	Gender        string `json:"gender" validate:"required,oneof=male female other"`
	Grade         int    `json:"grade" validate:"gte=1,lte=12"`
	Section       string `json:"section" validate:"required,section"`
	AdmissionDate string `json:"admission_date"`
	ParentName    string `json:"parent_name" validate:"required,max=200"`
	ParentPhone   string `json:"parent_phone" validate:"required,phone10"`
	ParentEmail   string `json:"parent_email" validate:"omitempty,max=254,looseemail"`
	Address       string `json:"address"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

// StudentPatch carries only the fields present in a partial update.
type StudentPatch struct {
	StudentID     *string `json:"student_id,omitempty"`
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	DateOfBirth   *string `json:"date_of_birth,omitempty"`
	Gender        *string `json:"gender,omitempty"`
	Grade         *int    `json:"grade,omitempty"`
	Section       *string `json:"section,omitempty"`
	AdmissionDate *string `json:"admission_date,omitempty"`
	ParentName    *string `json:"parent_name,omitempty"`
	ParentPhone   *string `json:"parent_phone,omitempty"`
	ParentEmail   *string `json:"parent_email,omitempty"`
	Address       *string `json:"address,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// StudentInputFrom renders a stored student back into input form.
func StudentInputFrom(s models.Student) StudentInput {
	active := s.IsActive
	return StudentInput{
		StudentID:     s.StudentID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		DateOfBirth:   s.DateOfBirth.String(),
		Gender:        s.Gender,
		Grade:         s.Grade,
		Section:       s.Section,
		AdmissionDate: s.AdmissionDate.String(),
		ParentName:    s.ParentName,
		ParentPhone:   s.ParentPhone,
		ParentEmail:   s.ParentEmail,
		Address:       s.Address,
		IsActive:      &active,
	}
}

// Apply overwrites fields of in that are present in p.
func (p StudentPatch) Apply(in *StudentInput) {
	setString(&in.StudentID, p.StudentID)
	setString(&in.FirstName, p.FirstName)
	setString(&in.LastName, p.LastName)
	setString(&in.DateOfBirth, p.DateOfBirth)
	setString(&in.Gender, p.Gender)
	setInt(&in.Grade, p.Grade)
	setString(&in.Section, p.Section)
	setString(&in.AdmissionDate, p.AdmissionDate)
	setString(&in.ParentName, p.ParentName)
	setString(&in.ParentPhone, p.ParentPhone)
	setString(&in.ParentEmail, p.ParentEmail)
	setString(&in.Address, p.Address)
	if p.IsActive != nil {
		in.IsActive = boolPtr(*p.IsActive)
	}
}
