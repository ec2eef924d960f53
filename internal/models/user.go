package models

import "time"

// UserType classifies accounts for access decisions.
type UserType string

const (
	UserTypeAdmin   UserType = "admin"
	UserTypeStaff   UserType = "staff"
	UserTypeTeacher UserType = "teacher"
)

// IsStaffOrAdmin reports whether the type may manage records.
func (t UserType) IsStaffOrAdmin() bool {
	return t == UserTypeAdmin || t == UserTypeStaff
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	UserType     UserType   `db:"user_type" json:"user_type"`
	PhoneNumber  string     `db:"phone_number" json:"phone_number"`
	Address      string     `db:"address" json:"address"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	UserType  *UserType
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
