package httpapi

import (
	"net/http"

	"quotedesk.org/internal/audit"
	"quotedesk.org/internal/billing"
	"quotedesk.org/internal/identity"
)

type checkoutRequest struct {
	PlanType string `json:"planType"`
	Email    string `json:"email"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func (a *API) handleCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := identity.NormalizeEmail(req.Email)
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	plan, err := billing.ParsePlanType(req.PlanType)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := a.checkout.CreateCheckoutSession(r.Context(), plan, email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "checkout session failed")
		return
	}

	_ = audit.LogEvent(audit.WithActor(r.Context(), email), "checkout.session.created", map[string]any{
		"plan_type":  string(plan),
		"session_id": sess.ID,
	})

	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: sess.ID, URL: sess.URL})
}
