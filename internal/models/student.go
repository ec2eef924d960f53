package models

import "time"

// Gender values stored for students.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Student is a learner registered with the library.
type Student struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	DateOfBirth   Date      `db:"date_of_birth" json:"date_of_birth"`
	Gender        string    `db:"gender" json:"gender"`
	Grade         int       `db:"grade" json:"grade"`
	Section       string    `db:"section" json:"section"`
	AdmissionDate Date      `db:"admission_date" json:"admission_date"`
	ParentName    string    `db:"parent_name" json:"parent_name"`
	ParentPhone   string    `db:"parent_phone" json:"parent_phone"`
	ParentEmail   string    `db:"parent_email" json:"parent_email"`
	Address       string    `db:"address" json:"address"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	Age           int       `db:"-" json:"age"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// StudentFilter holds list criteria for students.
type StudentFilter struct {
	Grade     *int
	Section   string
	Gender    string
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
