package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:             baseURL,
		SecretKey:           "sk_test_123",
		SubscriptionPriceID: "price_monthly",
		LifetimePriceID:     "price_lifetime",
		SuccessURL:          "http://localhost:3000/dashboard?checkout=success",
		CancelURL:           "http://localhost:3000/pricing?checkout=canceled",
	}
}

func TestFindCustomerByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("unexpected authorization: %s", got)
		}
		q := r.URL.Query()
		if q.Get("email") != "trader@example.com" || q.Get("limit") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"cus_1","email":"trader@example.com"}]}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	cust, err := client.FindCustomerByEmail(context.Background(), " Trader@Example.com ")
	if err != nil {
		t.Fatalf("FindCustomerByEmail: %v", err)
	}
	if cust == nil || cust.ID != "cus_1" {
		t.Fatalf("unexpected customer: %+v", cust)
	}
}

func TestFindCustomerByEmailNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	cust, err := client.FindCustomerByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("FindCustomerByEmail: %v", err)
	}
	if cust != nil {
		t.Fatalf("expected no customer, got %+v", cust)
	}
}

func TestListActiveSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("customer") != "cus_1" || q.Get("status") != "active" || q.Get("limit") != "100" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"sub_1","status":"active"}]}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	subs, err := client.ListActiveSubscriptions(context.Background(), "cus_1")
	if err != nil {
		t.Fatalf("ListActiveSubscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "sub_1" {
		t.Fatalf("unexpected subscriptions: %+v", subs)
	}
}

func TestCreateCheckoutSessionPlanMapping(t *testing.T) {
	cases := []struct {
		plan      PlanType
		wantMode  string
		wantPrice string
	}{
		{PlanSubscription, "subscription", "price_monthly"},
		{PlanLifetime, "payment", "price_lifetime"},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				if err := r.ParseForm(); err != nil {
					t.Errorf("parse form: %v", err)
				}
				if got := r.PostForm.Get("mode"); got != tc.wantMode {
					t.Errorf("unexpected mode: %s", got)
				}
				if got := r.PostForm.Get("line_items[0][price]"); got != tc.wantPrice {
					t.Errorf("unexpected price: %s", got)
				}
				if got := r.PostForm.Get("customer_email"); got != "trader@example.com" {
					t.Errorf("unexpected email: %s", got)
				}
				if r.PostForm.Get("success_url") == "" || r.PostForm.Get("cancel_url") == "" {
					t.Errorf("missing redirect urls")
				}
				_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://billing.example/c/cs_1"}`))
			}))
			defer srv.Close()

			client := NewClient(testConfig(srv.URL))
			sess, err := client.CreateCheckoutSession(context.Background(), tc.plan, "trader@example.com")
			if err != nil {
				t.Fatalf("CreateCheckoutSession: %v", err)
			}
			if sess.ID != "cs_1" || sess.URL == "" {
				t.Fatalf("unexpected session: %+v", sess)
			}
		})
	}
}

func TestCreateCheckoutSessionRequiresEmail(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	if _, err := client.CreateCheckoutSession(context.Background(), PlanSubscription, "  "); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if called {
		t.Fatalf("provider must not be called without an email")
	}
}

func TestUpstreamErrorsAreDistinguishable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	if _, err := client.FindCustomerByEmail(context.Background(), "trader@example.com"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	// Unreachable provider.
	srv.Close()
	if _, err := client.ListActiveSubscriptions(context.Background(), "cus_1"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestParsePlanType(t *testing.T) {
	if _, err := ParsePlanType("weekly"); err == nil {
		t.Fatalf("expected error for unknown plan type")
	}
	plan, err := ParsePlanType("lifetime")
	if err != nil || plan != PlanLifetime {
		t.Fatalf("unexpected result: %v %v", plan, err)
	}
}
