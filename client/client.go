// Package client is the Go consumer of the quotedesk session/entitlement
// API: a thin HTTP client plus the entitlement store and gating contract the
// dashboard frontend builds on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

var (
	ErrUnauthenticated = errors.New("client: not authenticated")
	ErrNotFound        = errors.New("client: not found")
	ErrConflict        = errors.New("client: conflict")
	ErrInvalidInput    = errors.New("client: invalid input")
	ErrServer          = errors.New("client: server error")
)

// Identity is the sanitized identity projection returned by the API.
type Identity struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	SubscriptionStatus  string     `json:"subscriptionStatus"`
	SubscriptionExpires *time.Time `json:"subscriptionExpires"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Client calls the quotedesk API. It owns a cookie jar so the session
// credential issued on login flows into subsequent calls, the way a browser
// would carry it.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. A cookie jar is
// installed if the client has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New constructs a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base url is required")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Login authenticates (or, in the server's demo mode, creates) the identity
// and stores the session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*Identity, error) {
	var ident Identity
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &ident)
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// Signup creates a new identity and stores the session cookie.
func (c *Client) Signup(ctx context.Context, email, password, name string) (*Identity, error) {
	var ident Identity
	err := c.do(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": password, "name": name,
	}, &ident)
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// Logout revokes the session. Always succeeds against a reachable server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil)
}

// WhoAmI returns the identity bound to the current session.
func (c *Client) WhoAmI(ctx context.Context) (*Identity, error) {
	var ident Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// Entitlement resolves Pro status for the current session. An anonymous
// session is simply not Pro; a server-side provider outage is an error so
// callers can tell an outage from churn.
func (c *Client) Entitlement(ctx context.Context) (bool, error) {
	var out struct {
		IsPro bool `json:"isPro"`
	}
	err := c.do(ctx, http.MethodGet, "/user/entitlement", nil, &out)
	if errors.Is(err, ErrUnauthenticated) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.IsPro, nil
}

// BeginCheckout asks for a provider checkout session and returns the URL the
// caller must navigate to. On return from checkout, call
// EntitlementStore.Invalidate to observe the new subscription.
func (c *Client) BeginCheckout(ctx context.Context, planType, email string) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, "/checkout/session", map[string]string{
		"planType": planType, "email": email,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dst any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if dst == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrServer, err)
		}
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	return statusError(resp.StatusCode, apiErr.Error)
}

func statusError(code int, msg string) error {
	var kind error
	switch code {
	case http.StatusBadRequest:
		kind = ErrInvalidInput
	case http.StatusUnauthorized:
		kind = ErrUnauthenticated
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusConflict:
		kind = ErrConflict
	default:
		kind = ErrServer
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", kind, code)
	}
	return fmt.Errorf("%w: %s", kind, msg)
}
