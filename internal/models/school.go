package models

import "time"

// School is a registered institution served by the library.
type School struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Code            string    `db:"code" json:"code"`
	Address         string    `db:"address" json:"address"`
	Phone           string    `db:"phone" json:"phone"`
	Email           string    `db:"email" json:"email"`
	Website         string    `db:"website" json:"website"`
	PrincipalName   string    `db:"principal_name" json:"principal_name"`
	EstablishedDate Date      `db:"established_date" json:"established_date"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter holds list criteria for schools.
type SchoolFilter struct {
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
