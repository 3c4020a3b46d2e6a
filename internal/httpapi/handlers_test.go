package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"quotedesk.org/internal/billing"
	"quotedesk.org/internal/identity"
	"quotedesk.org/internal/session"
)

type stubResolver struct {
	isPro bool
	err   error
	calls int
}

func (s *stubResolver) ResolveIsPro(ctx context.Context, email string) (bool, error) {
	s.calls++
	return s.isPro, s.err
}

type stubGateway struct {
	session *billing.CheckoutSession
	err     error

	calls []billing.PlanType
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, plan billing.PlanType, email string) (*billing.CheckoutSession, error) {
	s.calls = append(s.calls, plan)
	if s.err != nil {
		return nil, s.err
	}
	if s.session != nil {
		return s.session, nil
	}
	return &billing.CheckoutSession{ID: "cs_test", URL: "https://billing.example/c/cs_test"}, nil
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type testEnv struct {
	api        *API
	identities *identity.Memory
	sessions   *session.Codec
	resolver   *stubResolver
	gateway    *stubGateway
	client     *apiClient
}

func newTestEnv(t *testing.T, demoMode bool) *testEnv {
	t.Helper()

	codec, err := session.New("test-secret")
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	identities := identity.NewMemory()
	resolver := &stubResolver{}
	gateway := &stubGateway{}

	api := New(ReadyProbe{}, "test", identities, codec, resolver, gateway, demoMode)
	api.SetRateLimit(1000, 1000)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	httpClient := srv.Client()
	httpClient.Jar = jar

	return &testEnv{
		api:        api,
		identities: identities,
		sessions:   codec,
		resolver:   resolver,
		gateway:    gateway,
		client:     &apiClient{baseURL: srv.URL, client: httpClient, t: t},
	}
}

func (c *apiClient) post(path string, body any) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLoginIssuesSessionAndProjection(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.client.post("/auth/login", map[string]any{
		"email":    "Trader@Example.com",
		"password": "anything-goes",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["email"] != "trader@example.com" {
		t.Fatalf("unexpected email: %v", body["email"])
	}
	if body["id"] == nil || body["id"] == "" {
		t.Fatalf("missing identity id")
	}
	if body["subscriptionStatus"] != "none" {
		t.Fatalf("unexpected subscription status: %v", body["subscriptionStatus"])
	}
	if _, ok := body["passwordHash"]; ok {
		t.Fatalf("projection leaked password hash")
	}

	// The session cookie now authenticates /auth/me.
	resp = env.client.get("/auth/me")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected whoami status: %d", resp.StatusCode)
	}
	me := decode[map[string]any](t, resp)
	if me["id"] != body["id"] {
		t.Fatalf("whoami returned a different identity")
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t, true)

	for _, body := range []map[string]any{
		{"email": "", "password": "pw"},
		{"email": "trader@example.com", "password": ""},
		nil,
	} {
		resp := env.client.post("/auth/login", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, resp.StatusCode)
		}
	}
}

func TestLoginRepeatReturnsSameIdentity(t *testing.T) {
	env := newTestEnv(t, true)

	first := decode[map[string]any](t, env.client.post("/auth/login", map[string]any{
		"email": "repeat@example.com", "password": "pw1",
	}))
	second := decode[map[string]any](t, env.client.post("/auth/login", map[string]any{
		"email": "repeat@example.com", "password": "different-pw",
	}))
	if first["id"] != second["id"] {
		t.Fatalf("repeat login created a duplicate identity: %v vs %v", first["id"], second["id"])
	}
}

func TestLoginDemoModeOffVerifiesPassword(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.client.post("/auth/signup", map[string]any{
		"email": "strict@example.com", "password": "right-horse-battery",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected signup status: %d", resp.StatusCode)
	}

	resp = env.client.post("/auth/login", map[string]any{
		"email": "strict@example.com", "password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}

	resp = env.client.post("/auth/login", map[string]any{
		"email": "unknown@example.com", "password": "pw",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", resp.StatusCode)
	}

	resp = env.client.post("/auth/login", map[string]any{
		"email": "strict@example.com", "password": "right-horse-battery",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for correct password, got %d", resp.StatusCode)
	}
}

func TestSignupConflict(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.client.post("/auth/signup", map[string]any{
		"email": "new@example.com", "password": "pw", "name": "New Trader",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected first signup status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["name"] != "New Trader" {
		t.Fatalf("unexpected name: %v", body["name"])
	}

	resp = env.client.post("/auth/signup", map[string]any{
		"email": "new@example.com", "password": "pw2",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	errBody := decode[map[string]any](t, resp)
	if errBody["error"] != "User already exists" {
		t.Fatalf("unexpected error body: %v", errBody)
	}

	// Exactly one record for the email.
	if _, err := env.identities.FindByEmail(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
}

func TestLogoutAlwaysSucceedsAndClearsSession(t *testing.T) {
	env := newTestEnv(t, true)

	// Logout with no prior session.
	resp := env.client.post("/auth/logout", nil)
	body := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected logout response: %d %v", resp.StatusCode, body)
	}

	// Login, then logout, then whoami must be 401.
	env.client.post("/auth/login", map[string]any{
		"email": "bye@example.com", "password": "pw",
	}).Body.Close()

	resp = env.client.post("/auth/logout", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected logout status: %d", resp.StatusCode)
	}

	resp = env.client.get("/auth/me")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestWhoAmIUnauthenticated(t *testing.T) {
	env := newTestEnv(t, true)

	resp := env.client.get("/auth/me")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "Not authenticated" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestWhoAmIIdentityGone(t *testing.T) {
	env := newTestEnv(t, true)

	// A valid credential for an email the store has never seen.
	cookie, err := env.sessions.Issue("ghost@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req, err := http.NewRequest(http.MethodGet, env.client.baseURL+"/auth/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(cookie)
	resp, err := env.client.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "User not found" {
		t.Fatalf("unexpected error body: %v", body)
	}
}
