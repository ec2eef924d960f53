package validation

import (
	"context"
	"regexp"
	"strings"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

var (
	pricePattern    = regexp.MustCompile(`^(\d+)(?:\.(\d+))?$`)
	maxPriceDigits  = 8
	maxPriceDecimal = 2
)

// Book validates in and returns the normalized record. An empty barcode is
// left empty for the caller to generate.
func (v *Validator) Book(ctx context.Context, in dto.BookInput, unique UniqueFunc) (*models.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.BookType = strings.ToLower(strings.TrimSpace(in.BookType))
	in.Publisher = strings.TrimSpace(in.Publisher)
	in.Edition = strings.TrimSpace(in.Edition)
	in.Condition = strings.ToLower(strings.TrimSpace(in.Condition))
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)

	fields, err := v.structErrors(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate book")
	}

	quantity := 1
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	available := min(1, quantity)
	if in.AvailableQuantity != nil {
		available = *in.AvailableQuantity
	}
	if available > quantity && available >= 0 && quantity >= 0 {
		fields = append(fields, appErrors.FieldError{
			Field:  "available_quantity",
			Kind:   appErrors.KindRange,
			Reason: "must not exceed quantity",
		})
	}

	price, ferr := normalizePrice(string(in.Price))
	if ferr != nil {
		fields = append(fields, *ferr)
	}
	if err := failed(fields); err != nil {
		return nil, err
	}

	if err := checkUnique(ctx, unique,
		uniqueKey{"isbn", in.ISBN},
		uniqueKey{"barcode", in.Barcode},
	); err != nil {
		return nil, err
	}

	condition := in.Condition
	if condition == "" {
		condition = models.ConditionGood
	}

	return &models.Book{
		Title:             in.Title,
		Author:            in.Author,
		ISBN:              in.ISBN,
		Barcode:           in.Barcode,
		BookType:          in.BookType,
		Publisher:         in.Publisher,
		PublicationYear:   in.PublicationYear,
		Edition:           in.Edition,
		Price:             price,
		Quantity:          quantity,
		AvailableQuantity: available,
		Condition:         condition,
		Location:          in.Location,
		Description:       in.Description,
	}, nil
}

// normalizePrice renders raw with exactly two decimals. Empty means zero.
func normalizePrice(raw string) (string, *appErrors.FieldError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "0.00", nil
	}
	if strings.HasPrefix(raw, "-") {
		if pricePattern.MatchString(raw[1:]) {
			return "", &appErrors.FieldError{Field: "price", Kind: appErrors.KindRange, Reason: "must not be negative"}
		}
		return "", &appErrors.FieldError{Field: "price", Kind: appErrors.KindFormat, Reason: "must be a decimal number"}
	}
	m := pricePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", &appErrors.FieldError{Field: "price", Kind: appErrors.KindFormat, Reason: "must be a decimal number"}
	}

	whole := strings.TrimLeft(m[1], "0")
	if whole == "" {
		whole = "0"
	}
	frac := strings.TrimRight(m[2], "0")
	if len(frac) > maxPriceDecimal {
		return "", &appErrors.FieldError{Field: "price", Kind: appErrors.KindFormat, Reason: "must have at most 2 decimal places"}
	}
	if len(whole) > maxPriceDigits {
		return "", &appErrors.FieldError{Field: "price", Kind: appErrors.KindRange, Reason: "must be less than 100000000"}
	}
	for len(frac) < maxPriceDecimal {
		frac += "0"
	}
	return whole + "." + frac, nil
}
