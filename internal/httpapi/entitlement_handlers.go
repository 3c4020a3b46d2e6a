package httpapi

import (
	"net/http"

	"quotedesk.org/internal/identity"
	"quotedesk.org/internal/obs"
)

type entitlementResponse struct {
	IsPro bool `json:"isPro"`
}

func (a *API) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	email, err := a.sessions.Read(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, entitlementResponse{IsPro: false})
		return
	}

	isPro, err := a.entitlements.ResolveIsPro(r.Context(), email)
	if err != nil {
		// A provider outage is "entitlement unknown", not "not entitled":
		// the caller gets a distinguishable failure instead of isPro=false.
		obs.ObserveEntitlement("error")
		writeError(w, r, http.StatusInternalServerError, "entitlement check failed")
		return
	}

	// Refresh the informational cache on the identity; enforcement never
	// reads it, so a failure here is not the caller's problem.
	status := identity.SubscriptionNone
	outcome := "free"
	if isPro {
		status = identity.SubscriptionActive
		outcome = "pro"
	}
	_ = a.identities.UpdateSubscription(r.Context(), email, status, nil)
	obs.ObserveEntitlement(outcome)

	writeJSON(w, http.StatusOK, entitlementResponse{IsPro: isPro})
}
