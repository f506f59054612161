package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"mediflow.org/internal/audit"
	"mediflow.org/internal/identity"
	"mediflow.org/internal/tenant"
)

const tokenTTL = 1 * time.Hour

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
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
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	id := &identity.Identity{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
	}
	if err := a.identities.Create(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "identity.signup", map[string]any{
		"identity_id": id.ID,
		"email":       email,
	})

	writeJSON(w, http.StatusCreated, id.Principal())
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	id, err := a.identities.FindByEmail(r.Context(), email)
	if err != nil {
		// Unknown email and wrong password are indistinguishable on purpose.
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		handleDomainError(w, r, err)
		return
	}
	if err := identity.VerifyPassword(id.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := identity.GenerateToken(id.Principal(), tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"identity_id": id.ID,
		"expires_at":  expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// handleMe reports the caller's principal, membership and derived access
// state so the client can route to login, onboarding or the holding screen.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	membership, _ := tenant.MembershipFromContext(r.Context())
	decision := tenant.Evaluate(true, membership)

	resp := map[string]any{
		"principal":  p,
		"membership": membership,
		"state":      string(decision.State),
	}
	if decision.Verdict == tenant.DenyRedirect {
		resp["redirect"] = string(decision.Target)
	}
	writeJSON(w, http.StatusOK, resp)
}
