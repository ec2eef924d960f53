package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/internal/repository"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

const tracerName = "github.com/noah-isme/sma-library-api/internal/service"

var tracer = otel.Tracer(tracerName)

// Page is a single page of list results.
type Page[T any] struct {
	Items      []T
	Pagination models.Pagination
}

func newPage[T any](items []T, total, page, size int) *Page[T] {
	page, size = repository.NormalizePage(page, size)
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: total}}
}

// startSpan opens a span tagged with the resource, action and actor.
func startSpan(ctx context.Context, resource policy.Resource, action policy.Action, actor policy.Actor) (context.Context, trace.Span) {
	return tracer.Start(ctx, string(resource)+"."+string(action), trace.WithAttributes(
		attribute.String("library.resource", string(resource)),
		attribute.String("library.action", string(action)),
		attribute.Bool("library.actor.authenticated", actor.Authenticated),
	))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// guard evaluates the access policy and reports denials to metrics.
type guard struct {
	metrics *MetricsService
}

func (g guard) authorize(resource policy.Resource, action policy.Action, actor policy.Actor, targetID string) error {
	if policy.Allow(resource, action, actor, targetID) {
		return nil
	}
	g.metrics.RecordDenied(string(resource), string(action))
	return appErrors.AccessDenied(string(resource), string(action), actor.Authenticated)
}

// loadError maps a repository read error for entity id.
func loadError(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(entity, id)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

// writeError maps a repository write error. Unique violations become
// ConflictError; a vanished row becomes NotFoundError.
func writeError(err error, entity, id, message string) error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return appErrors.Conflict(dup.Field, dup.Value)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(entity, id)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// isDuplicateOf reports whether err is a unique violation on field.
func isDuplicateOf(err error, field string) bool {
	var dup *repository.DuplicateError
	return errors.As(err, &dup) && dup.Field == field
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
