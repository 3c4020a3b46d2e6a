package httpapi

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"quotedesk.org/internal/audit"
	"quotedesk.org/internal/identity"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	var (
		ident *identity.Identity
		err   error
	)
	if a.demoMode {
		// Demo policy: the password is accepted unverified and unknown
		// emails become identities on first login.
		ident, err = a.identities.FindOrCreate(r.Context(), &identity.Identity{Email: email})
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
	} else {
		ident, err = a.identities.FindByEmail(r.Context(), email)
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(req.Password)) != nil {
			writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
	}

	cookie, err := a.sessions.Issue(ident.Email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, cookie)

	_ = audit.LogEvent(audit.WithActor(r.Context(), ident.Email), "auth.login", map[string]any{
		"identity_id": ident.ID,
		"demo_mode":   a.demoMode,
	})

	writeJSON(w, http.StatusOK, ident.Projection())
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	ident := &identity.Identity{
		Email:        email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}
	if err := a.identities.Create(r.Context(), ident); err != nil {
		if errors.Is(err, identity.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "User already exists")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	cookie, err := a.sessions.Issue(ident.Email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, cookie)

	_ = audit.LogEvent(audit.WithActor(r.Context(), ident.Email), "auth.signup", map[string]any{
		"identity_id": ident.ID,
	})

	writeJSON(w, http.StatusOK, ident.Projection())
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	// Succeeds regardless of prior auth state.
	http.SetCookie(w, a.sessions.Revoke())
	if email, err := a.sessions.Read(r); err == nil {
		_ = audit.LogEvent(audit.WithActor(r.Context(), email), "auth.logout", nil)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	email, err := a.sessions.Read(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "Not authenticated")
		return
	}

	ident, err := a.identities.FindByEmail(r.Context(), email)
	if errors.Is(err, identity.ErrNotFound) {
		// A valid credential whose identity is gone degrades to not found,
		// not a crash (the codec never checks identity liveness).
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ident.Projection())
}
