package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"mediflow.org/internal/identity"
	"mediflow.org/internal/tenant"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/signup",
	"/v1/auth/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth authenticates the bearer token and resolves the caller's clinic
// membership before any handler runs. Resolution happens on every protected
// request; the result is request-scoped and never cached across requests.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			// No token at all: same routing as an expired session.
			writeDenial(w, r, tenant.Evaluate(false, nil))
			return
		}

		principal, err := identity.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				writeDenial(w, r, tenant.Evaluate(false, nil))
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		membership, err := a.resolver.Resolve(r.Context(), principal)
		if err != nil {
			// Retryable. Treating this as "unregistered" would bounce a
			// provisioned user into onboarding; never do that.
			handleDomainError(w, r, err)
			return
		}

		ctx := identity.ContextWithPrincipal(r.Context(), principal)
		ctx = tenant.ContextWithMembership(ctx, membership)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAccess runs the access gate for the request and writes the denial
// when the verdict is not Allow. Handlers call it first and stop on !ok.
func (a *API) requireAccess(w http.ResponseWriter, r *http.Request, roles ...tenant.Role) (*tenant.ClinicMembership, bool) {
	_, hasPrincipal := identity.PrincipalFromContext(r.Context())
	membership, _ := tenant.MembershipFromContext(r.Context())

	decision := tenant.Evaluate(hasPrincipal, membership, roles...)
	if decision.Verdict == tenant.Allow {
		return membership, true
	}
	writeDenial(w, r, decision)
	return nil, false
}

// requirePrincipal admits any authenticated caller, registered or not. Used
// by onboarding endpoints where no membership exists yet.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeDenial(w, r, tenant.Evaluate(false, nil))
		return identity.Principal{}, false
	}
	return p, true
}

func writeDenial(w http.ResponseWriter, r *http.Request, d tenant.Decision) {
	switch d.Verdict {
	case tenant.DenyRedirect:
		code := http.StatusForbidden
		msg := "membership not active"
		if d.Target == tenant.RedirectLogin {
			code = http.StatusUnauthorized
			msg = "authentication required"
		} else if d.Target == tenant.RedirectOnboarding {
			msg = "no clinic membership"
		}
		payload := map[string]any{
			"error":    msg,
			"redirect": string(d.Target),
			"state":    string(d.State),
		}
		writeJSON(w, code, payload)
	case tenant.DenyForbidden:
		writeError(w, r, http.StatusForbidden, "insufficient role for this resource")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
