package models

import "time"

// Book types accepted by the catalog.
const (
	BookTypeTextbook  = "textbook"
	BookTypeReference = "reference"
	BookTypeMagazine  = "magazine"
	BookTypeNovel     = "novel"
	BookTypeOther     = "other"
)

// Physical conditions a copy can be in.
const (
	ConditionNew  = "new"
	ConditionGood = "good"
	ConditionFair = "fair"
	ConditionPoor = "poor"
)

// Book is a catalog title with its stock counts.
type Book struct {
	ID                string    `db:"id" json:"id"`
	Title             string    `db:"title" json:"title"`
	Author            string    `db:"author" json:"author"`
	ISBN              string    `db:"isbn" json:"isbn"`
	Barcode           string    `db:"barcode" json:"barcode"`
	BookType          string    `db:"book_type" json:"book_type"`
	Publisher         string    `db:"publisher" json:"publisher"`
	PublicationYear   int       `db:"publication_year" json:"publication_year"`
	Edition           string    `db:"edition" json:"edition"`
	Price             string    `db:"price" json:"price"`
	Quantity          int       `db:"quantity" json:"quantity"`
	AvailableQuantity int       `db:"available_quantity" json:"available_quantity"`
	Condition         string    `db:"condition" json:"condition"`
	Location          string    `db:"location" json:"location"`
	Description       string    `db:"description" json:"description"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
	IsAvailable       bool      `db:"-" json:"is_available"`
}

// BookFilter holds list criteria for books.
type BookFilter struct {
	BookType        string
	Condition       string
	PublicationYear *int
	Author          string
	Publisher       string
	Search          string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
