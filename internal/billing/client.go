package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstream indicates the billing provider was unreachable or returned a
// transport/auth error. Callers must treat it as "entitlement unknown", not
// as "not entitled".
var ErrUpstream = errors.New("billing: upstream failure")

// subscriptionPageLimit bounds the subscription listing per check.
const subscriptionPageLimit = 100

// Customer is a billing-provider customer record.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription is one provider subscription for a customer.
type Subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

// CheckoutSession is the provider handle whose URL the caller redirects to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PlanType selects between a recurring and a one-time checkout line item.
type PlanType string

const (
	PlanSubscription PlanType = "subscription"
	PlanLifetime     PlanType = "lifetime"
)

// ParsePlanType validates a raw plan type from a request body.
func ParsePlanType(raw string) (PlanType, error) {
	switch PlanType(strings.TrimSpace(raw)) {
	case PlanSubscription:
		return PlanSubscription, nil
	case PlanLifetime:
		return PlanLifetime, nil
	default:
		return "", fmt.Errorf("unknown plan type %q", raw)
	}
}

// Config carries provider connection and product parameters.
type Config struct {
	BaseURL             string
	SecretKey           string
	SubscriptionPriceID string
	LifetimePriceID     string
	SuccessURL          string
	CancelURL           string
}

// Client talks to a Stripe-shaped billing provider over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient constructs a provider client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindCustomerByEmail returns at most one customer matching the email
// exactly, or nil when the provider knows no such customer.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	q := url.Values{}
	q.Set("email", strings.ToLower(strings.TrimSpace(email)))
	q.Set("limit", "1")

	var out struct {
		Data []Customer `json:"data"`
	}
	if err := c.get(ctx, "/v1/customers", q, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

// ListActiveSubscriptions lists the customer's subscriptions filtered to
// active status, bounded to one page.
func (c *Client) ListActiveSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	q := url.Values{}
	q.Set("customer", customerID)
	q.Set("status", "active")
	q.Set("limit", fmt.Sprintf("%d", subscriptionPageLimit))

	var out struct {
		Data []Subscription `json:"data"`
	}
	if err := c.get(ctx, "/v1/subscriptions", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateCheckoutSession asks the provider for a checkout session the caller
// must redirect to. No local state is mutated.
func (c *Client) CreateCheckoutSession(ctx context.Context, plan PlanType, email string) (*CheckoutSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("billing: email is required")
	}

	form := url.Values{}
	form.Set("customer_email", email)
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	switch plan {
	case PlanSubscription:
		form.Set("mode", "subscription")
		form.Set("line_items[0][price]", c.cfg.SubscriptionPriceID)
	case PlanLifetime:
		form.Set("mode", "payment")
		form.Set("line_items[0][price]", c.cfg.LifetimePriceID)
	default:
		return nil, fmt.Errorf("billing: unknown plan type %q", plan)
	}

	var out CheckoutSession
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTTP plumbing ------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	return c.do(req, dst)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, dst)
}

func (c *Client) do(req *http.Request, dst any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the log line, never for the caller.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUpstream, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}
