// Package client is a typed Go client for the library API. Every call takes
// an explicit Credential; nothing is remembered between calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
)

const defaultTimeout = 15 * time.Second

// Credential is the bearer token sent with a call. The zero value is anonymous.
type Credential struct {
	Token string
}

// Anonymous returns an empty credential.
func Anonymous() Credential { return Credential{} }

// Bearer wraps an access token.
func Bearer(token string) Credential { return Credential{Token: token} }

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client talks to one API deployment. BaseURL includes the API prefix,
// for example http://localhost:8000/api/v1.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string

	Books    *BookResource
	Students *Resource[models.Student, dto.StudentInput, dto.StudentPatch]
	Schools  *Resource[models.School, dto.SchoolInput, dto.SchoolPatch]
	Users    *Resource[models.User, dto.UserInput, dto.UserPatch]
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "sma-library-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Books = &BookResource{Resource: newResource[models.Book, dto.BookInput, dto.BookPatch](c, "books")}
	c.Students = newResource[models.Student, dto.StudentInput, dto.StudentPatch](c, "students")
	c.Schools = newResource[models.School, dto.SchoolInput, dto.SchoolPatch](c, "schools")
	c.Users = newResource[models.User, dto.UserInput, dto.UserPatch](c, "users")
	return c
}

// envelope mirrors the server's response body.
type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *APIError          `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

// do sends a JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, cred Credential, method, path string, query url.Values, body, out interface{}) (*models.Pagination, error) {
	resp, err := c.send(ctx, cred, method, path, query, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Pagination, nil
}

// raw fetches a binary body such as a PDF label or an export file.
func (c *Client) raw(ctx context.Context, cred Credential, path string, query url.Values) ([]byte, string, error) {
	resp, err := c.send(ctx, cred, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", decodeError(resp.StatusCode, data)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) send(ctx context.Context, cred Credential, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
