// Package upstream wraps the remote dashboard API: the authentication
// endpoint that issues bearer credentials and the four resource collections
// the dashboard renders.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/courierdash/courierdash/internal/orders"
	"github.com/courierdash/courierdash/internal/riders"
	"github.com/courierdash/courierdash/internal/settings"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/users"
)

var (
	// ErrUnauthorized is returned when the API rejects the bearer
	// credential (401/403). It is the shared sentinel so resource
	// handlers can match it without importing this package.
	ErrUnauthorized = shared.ErrUpstreamUnauthorized
	// ErrInvalidLogin is returned when the API rejects the email/password
	// pair.
	ErrInvalidLogin = errors.New("upstream: invalid credentials")
)

// Client talks to the remote dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Login exchanges email/password for a bearer credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrInvalidLogin
	}
	if resp.StatusCode >= 400 {
		return "", remoteError(resp)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upstream: decode login response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("upstream: login response missing token")
	}
	return out.Token, nil
}

// ListOrders fetches the order collection.
func (c *Client) ListOrders(ctx context.Context, token string) ([]orders.Order, error) {
	var out []orders.Order
	if err := c.listShared(ctx, "/orders", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers fetches the user collection.
func (c *Client) ListUsers(ctx context.Context, token string) ([]users.User, error) {
	var out []users.User
	if err := c.listShared(ctx, "/users", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRiders fetches the rider collection.
func (c *Client) ListRiders(ctx context.Context, token string) ([]riders.Rider, error) {
	var out []riders.Rider
	if err := c.listShared(ctx, "/riders", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSettings fetches the settings document.
func (c *Client) GetSettings(ctx context.Context, token string) (settings.Values, error) {
	var out settings.Values
	if err := c.listShared(ctx, "/settings", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// listShared collapses concurrent identical fetches into a single upstream
// round trip. The key includes the credential, so sessions with different
// tokens never share a response.
func (c *Client) listShared(ctx context.Context, path, token string, out any) error {
	raw, err, _ := c.group.Do(path+"|"+token, func() (any, error) {
		return c.fetch(ctx, path, token)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

func (c *Client) fetch(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return nil, remoteError(resp)
	}
	return io.ReadAll(resp.Body)
}

func remoteError(resp *http.Response) error {
	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		return fmt.Errorf("upstream: %s (status %d)", payload.Message, resp.StatusCode)
	}
	return fmt.Errorf("upstream: request failed with status %d", resp.StatusCode)
}
