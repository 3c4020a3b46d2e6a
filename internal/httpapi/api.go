package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"quotedesk.org/internal/billing"
	"quotedesk.org/internal/identity"
	"quotedesk.org/internal/obs"
	"quotedesk.org/internal/session"
)

// ReadyProbe reports readiness (e.g. database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// EntitlementResolver derives Pro entitlement for an email.
type EntitlementResolver interface {
	ResolveIsPro(ctx context.Context, email string) (bool, error)
}

// CheckoutGateway creates provider checkout sessions.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, plan billing.PlanType, email string) (*billing.CheckoutSession, error)
}

// API is the HTTP layer over the session/entitlement core.
type API struct {
	mux          *http.ServeMux
	identities   identity.Store
	sessions     *session.Codec
	entitlements EntitlementResolver
	checkout     CheckoutGateway
	readyProbe   ReadyProbe
	version      string

	// demoMode accepts any password on login and creates unknown identities.
	demoMode bool

	rateBurst  int
	ratePerSec int
}

// New wires the API routes.
func New(rp ReadyProbe, version string, identities identity.Store, sessions *session.Codec, entitlements EntitlementResolver, checkout CheckoutGateway, demoMode bool) *API {
	a := &API{
		mux:          http.NewServeMux(),
		identities:   identities,
		sessions:     sessions,
		entitlements: entitlements,
		checkout:     checkout,
		readyProbe:   rp,
		version:      version,
		demoMode:     demoMode,
		rateBurst:    50,
		ratePerSec:   25,
	}

	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/auth/me", a.handleWhoAmI)
	a.mux.HandleFunc("/user/entitlement", a.handleEntitlement)
	a.mux.HandleFunc("/checkout/session", a.handleCheckoutSession)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// SetRateLimit overrides the per-IP request budget.
func (a *API) SetRateLimit(burst, perSec int) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "quotedesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
