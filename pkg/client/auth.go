package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/sma-library-api/internal/models"
)

// Login exchanges a username and password for tokens. Use
// Bearer(resp.AccessToken) as the credential for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	body := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, Anonymous(), http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates refreshToken into a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.RefreshTokenResponse, error) {
	var out models.RefreshTokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if _, err := c.do(ctx, Anonymous(), http.MethodPost, "/auth/refresh", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes refreshToken, which must belong to cred's user.
func (c *Client) Logout(ctx context.Context, cred Credential, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	_, err := c.do(ctx, cred, http.MethodPost, "/auth/logout", nil, body, nil)
	return err
}

// Me returns the account behind cred.
func (c *Client) Me(ctx context.Context, cred Credential) (*models.User, error) {
	var out models.User
	if _, err := c.do(ctx, cred, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export renders resource to format and returns the signed download link.
func (c *Client) Export(ctx context.Context, cred Credential, resource string, format models.ExportFormat, opts ListOptions) (*models.ExportResult, error) {
	q := url.Values{}
	q.Set("format", string(format))
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	var out models.ExportResult
	if _, err := c.do(ctx, cred, http.MethodPost, "/exports/"+url.PathEscape(strings.ToLower(resource)), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches an export file by its signed token.
func (c *Client) Download(ctx context.Context, token string) ([]byte, string, error) {
	return c.raw(ctx, Anonymous(), "/exports/download", url.Values{"token": {token}})
}
