// Package validation turns raw record payloads into normalized models or a
// structured list of field failures. It performs no I/O of its own: unique
// keys are checked through a callback supplied by the caller.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-library-api/internal/models"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

// UniqueFunc reports whether value is already claimed for field by another record.
type UniqueFunc func(ctx context.Context, field, value string) (bool, error)

// NoUniqueness is a UniqueFunc that never reports a conflict.
func NoUniqueness(context.Context, string, string) (bool, error) { return false, nil }

// Validator checks and normalizes library records.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// Option customises a Validator.
type Option func(*Validator)

// WithClock overrides the clock used for date-in-future checks and defaults.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// New builds a Validator with the custom tags registered.
func New(opts ...Option) *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("section", func(fl validator.FieldLevel) bool {
		return isSection(fl.Field().String())
	})
	_ = validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return isPhone10(fl.Field().String())
	})
	_ = validate.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return isLooseEmail(fl.Field().String())
	})

	v := &Validator{validate: validate, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Engine exposes the underlying go-playground validator for request structs.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Today returns the current UTC calendar day according to the validator clock.
func (v *Validator) Today() models.Date {
	return models.NewDate(v.now().UTC())
}

func (v *Validator) structErrors(s interface{}) ([]appErrors.FieldError, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	out := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, toFieldError(fe))
	}
	return out, nil
}

func toFieldError(fe validator.FieldError) appErrors.FieldError {
	numeric := isNumericKind(fe.Kind())
	field := appErrors.FieldError{Field: fe.Field()}

	switch fe.Tag() {
	case "required":
		field.Kind = appErrors.KindRequired
		field.Reason = "is required"
	case "gte", "min":
		if numeric {
			field.Kind = appErrors.KindRange
			field.Reason = fmt.Sprintf("must be at least %s", fe.Param())
		} else {
			field.Kind = appErrors.KindFormat
			field.Reason = fmt.Sprintf("must be at least %s characters", fe.Param())
		}
	case "lte", "max":
		if numeric {
			field.Kind = appErrors.KindRange
			field.Reason = fmt.Sprintf("must be at most %s", fe.Param())
		} else {
			field.Kind = appErrors.KindFormat
			field.Reason = fmt.Sprintf("must be at most %s characters", fe.Param())
		}
	case "oneof":
		field.Kind = appErrors.KindChoice
		field.Reason = "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "section":
		field.Kind = appErrors.KindFormat
		field.Reason = "must be a single letter"
	case "phone10":
		field.Kind = appErrors.KindFormat
		field.Reason = "must be exactly 10 digits"
	case "looseemail":
		field.Kind = appErrors.KindFormat
		field.Reason = "must be a valid email address"
	case "http_url":
		field.Kind = appErrors.KindFormat
		field.Reason = "must be an absolute http or https URL"
	default:
		field.Kind = appErrors.KindFormat
		field.Reason = "is invalid"
	}
	return field
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isSection(raw string) bool {
	runes := []rune(raw)
	return len(runes) == 1 && unicode.IsLetter(runes[0])
}

func isPhone10(raw string) bool {
	if len(raw) != 10 {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return false
		}
	}
	return true
}

func isLooseEmail(raw string) bool {
	if strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	at := strings.LastIndex(raw, "@")
	if at <= 0 || at == len(raw)-1 {
		return false
	}
	domain := raw[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// parseDate returns a FormatError for malformed input. Empty input yields a
// zero date and no error; required checks run separately.
func (v *Validator) parseDate(field, raw string, notFuture bool) (models.Date, *appErrors.FieldError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, &appErrors.FieldError{Field: field, Kind: appErrors.KindFormat, Reason: "must be a date in YYYY-MM-DD format"}
	}
	if notFuture && d.After(v.Today().Time) {
		return models.Date{}, &appErrors.FieldError{Field: field, Kind: appErrors.KindFormat, Reason: "must not be in the future"}
	}
	return d, nil
}

type uniqueKey struct {
	field string
	value string
}

// checkUnique returns a ConflictError for the first claimed key.
func checkUnique(ctx context.Context, unique UniqueFunc, keys ...uniqueKey) error {
	if unique == nil {
		return nil
	}
	for _, key := range keys {
		if key.value == "" {
			continue
		}
		taken, err := unique(ctx, key.field, key.value)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check uniqueness")
		}
		if taken {
			return appErrors.Conflict(key.field, key.value)
		}
	}
	return nil
}

func failed(fields []appErrors.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return appErrors.Validation(fields...)
}
