package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

const defaultCodeAttempts = 5

// codeAllocation drives the generate, check, insert loop for a unique code.
// Every attempt draws a fresh code; a collision either at the pre-check or
// from the unique constraint consumes one attempt.
type codeAllocation struct {
	kind      string
	field     string
	operation string
	attempts  int
	metrics   *MetricsService
	generate  func() (string, error)
	taken     func(ctx context.Context, code string) (bool, error)
	persist   func(ctx context.Context, code string) error
}

func (a codeAllocation) run(ctx context.Context) error {
	attempts := a.attempts
	if attempts <= 0 {
		attempts = defaultCodeAttempts
	}
	span := trace.SpanFromContext(ctx)
	for attempt := 1; attempt <= attempts; attempt++ {
		code, err := a.generate()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate "+a.field)
		}
		taken, err := a.taken(ctx, code)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check "+a.field)
		}
		if taken {
			a.metrics.RecordCodeAttempt(a.kind, "collision")
			span.AddEvent("code collision", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		err = a.persist(ctx, code)
		if err == nil {
			a.metrics.RecordCodeAttempt(a.kind, "stored")
			span.SetAttributes(attribute.Int("library.code.attempts", attempt))
			return nil
		}
		if isDuplicateOf(err, a.field) {
			a.metrics.RecordCodeAttempt(a.kind, "collision")
			span.AddEvent("code collision", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		return err
	}
	a.metrics.RecordCodeAttempt(a.kind, "exhausted")
	return appErrors.ExhaustedRetries(a.operation)
}
