package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
)

// ListOptions selects a page of a list endpoint. Filters carries the
// resource specific query parameters such as grade or book_type.
type ListOptions struct {
	Search  string
	Page    int
	Limit   int
	Sort    string
	Order   string
	Filters url.Values
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	for k, vs := range o.Filters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Order != "" {
		q.Set("order", o.Order)
	}
	return q
}

// List is one page of records.
type List[T any] struct {
	Items      []T
	Pagination models.Pagination
}

// Resource is the CRUD surface shared by every record type. T is the
// stored record, C the create payload and P the partial update payload.
type Resource[T any, C any, P any] struct {
	c    *Client
	path string
}

func newResource[T any, C any, P any](c *Client, name string) *Resource[T, C, P] {
	return &Resource[T, C, P]{c: c, path: "/" + name}
}

// List returns one page of records.
func (r *Resource[T, C, P]) List(ctx context.Context, cred Credential, opts ListOptions) (*List[T], error) {
	var items []T
	pagination, err := r.c.do(ctx, cred, http.MethodGet, r.path, opts.values(), nil, &items)
	if err != nil {
		return nil, err
	}
	out := &List[T]{Items: items}
	if pagination != nil {
		out.Pagination = *pagination
	}
	return out, nil
}

// Get fetches one record.
func (r *Resource[T, C, P]) Get(ctx context.Context, cred Credential, id string) (*T, error) {
	var out T
	if _, err := r.c.do(ctx, cred, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new record and returns it as saved.
func (r *Resource[T, C, P]) Create(ctx context.Context, cred Credential, in C) (*T, error) {
	var out T
	if _, err := r.c.do(ctx, cred, http.MethodPost, r.path, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends only the fields set in patch.
func (r *Resource[T, C, P]) Update(ctx context.Context, cred Credential, id string, patch P) (*T, error) {
	var out T
	if _, err := r.c.do(ctx, cred, http.MethodPatch, r.path+"/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a record.
func (r *Resource[T, C, P]) Delete(ctx context.Context, cred Credential, id string) error {
	_, err := r.c.do(ctx, cred, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// BookResource adds label printing to the book CRUD surface.
type BookResource struct {
	*Resource[models.Book, dto.BookInput, dto.BookPatch]
}

// Label downloads the printable barcode label PDF.
func (r *BookResource) Label(ctx context.Context, cred Credential, id string) ([]byte, error) {
	data, _, err := r.c.raw(ctx, cred, r.path+"/"+url.PathEscape(id)+"/label", nil)
	return data, err
}
