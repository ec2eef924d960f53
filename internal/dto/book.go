package dto

import (
	"encoding/json"

	"github.com/noah-isme/sma-library-api/internal/models"
)

// BookInput is the full book payload. Price accepts a JSON number or a
// numeric string.
type BookInput struct {
	Title             string      `json:"title" validate:"required,max=200"`
	Author            string      `json:"author" validate:"required,max=200"`
	ISBN              string      `json:"isbn" validate:"required,max=13"`
	Barcode           string      `json:"barcode" validate:"omitempty,max=50"`
	BookType          string      `json:"book_type" validate:"required,oneof=textbook reference magazine novel other"`
	Publisher         string      `json:"publisher" validate:"max=200"`
	PublicationYear   int         `json:"publication_year" validate:"gte=1800,lte=2024"`
	Edition           string      `json:"edition" validate:"max=50"`
	Price             json.Number `json:"price"`
	Quantity          *int        `json:"quantity" validate:"omitempty,gte=0"`
	AvailableQuantity *int        `json:"available_quantity" validate:"omitempty,gte=0"`
	Condition         string      `json:"condition" validate:"omitempty,oneof=new good fair poor"`
	Location          string      `json:"location" validate:"max=100"`
	Description       string      `json:"description"`
}

// BookPatch carries only the fields present in a partial update.
type BookPatch struct {
	Title             *string      `json:"title,omitempty"`
	Author            *string      `json:"author,omitempty"`
	ISBN              *string      `json:"isbn,omitempty"`
	Barcode           *string      `json:"barcode,omitempty"`
	BookType          *string      `json:"book_type,omitempty"`
	Publisher         *string      `json:"publisher,omitempty"`
	PublicationYear   *int         `json:"publication_year,omitempty"`
	Edition           *string      `json:"edition,omitempty"`
	Price             *json.Number `json:"price,omitempty"`
	Quantity          *int         `json:"quantity,omitempty"`
	AvailableQuantity *int         `json:"available_quantity,omitempty"`
	Condition         *string      `json:"condition,omitempty"`
	Location          *string      `json:"location,omitempty"`
	Description       *string      `json:"description,omitempty"`
}

// BookInputFrom renders a stored book back into input form.
func BookInputFrom(b models.Book) BookInput {
	return BookInput{
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		Barcode:           b.Barcode,
		BookType:          b.BookType,
		Publisher:         b.Publisher,
		PublicationYear:   b.PublicationYear,
		Edition:           b.Edition,
		Price:             json.Number(b.Price),
		Quantity:          intPtr(b.Quantity),
		AvailableQuantity: intPtr(b.AvailableQuantity),
		Condition:         b.Condition,
		Location:          b.Location,
		Description:       b.Description,
	}
}

// Apply overwrites fields of in that are present in p.
func (p BookPatch) Apply(in *BookInput) {
	setString(&in.Title, p.Title)
	setString(&in.Author, p.Author)
	setString(&in.ISBN, p.ISBN)
	setString(&in.Barcode, p.Barcode)
	setString(&in.BookType, p.BookType)
	setString(&in.Publisher, p.Publisher)
	setInt(&in.PublicationYear, p.PublicationYear)
	setString(&in.Edition, p.Edition)
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.Quantity != nil {
		in.Quantity = intPtr(*p.Quantity)
	}
	if p.AvailableQuantity != nil {
		in.AvailableQuantity = intPtr(*p.AvailableQuantity)
	}
	setString(&in.Condition, p.Condition)
	setString(&in.Location, p.Location)
	setString(&in.Description, p.Description)
}
