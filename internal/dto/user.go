package dto

import "github.com/noah-isme/sma-library-api/internal/models"

// UserInput is the full account payload. Password is only required when
// creating an account.
type UserInput struct {
	Username    string `json:"username" validate:"required,max=150"`
	Email       string `json:"email" validate:"required,max=254,looseemail"`
	Password    string `json:"password" validate:"omitempty,min=8,max=72"`
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	UserType    string `json:"user_type" validate:"omitempty,oneof=admin staff teacher"`
	PhoneNumber string `json:"phone_number" validate:"max=15"`
	Address     string `json:"address"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// UserPatch carries only the fields present in a partial update.
type UserPatch struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	UserType    *string `json:"user_type,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Address     *string `json:"address,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UserInputFrom renders a stored user back into input form. The password
// hash is never copied.
func UserInputFrom(u models.User) UserInput {
	return UserInput{
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		UserType:    string(u.UserType),
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		IsActive:    boolPtr(u.IsActive),
	}
}

// Apply overwrites fields of in that are present in p.
func (p UserPatch) Apply(in *UserInput) {
	setString(&in.Username, p.Username)
	setString(&in.Email, p.Email)
	setString(&in.Password, p.Password)
	setString(&in.FirstName, p.FirstName)
	setString(&in.LastName, p.LastName)
	setString(&in.UserType, p.UserType)
	setString(&in.PhoneNumber, p.PhoneNumber)
	setString(&in.Address, p.Address)
	if p.IsActive != nil {
		in.IsActive = boolPtr(*p.IsActive)
	}
}
