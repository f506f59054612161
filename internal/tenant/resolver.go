package tenant

import (
	"context"
	"errors"
	"fmt"

	"mediflow.org/internal/identity"
)

// Resolver maps an authenticated principal to its (at most one) clinic
// membership, claiming pre-provisioned rows by email on first login.
//
// Two lookup keys exist because staff can be invited by email before they
// ever authenticate; the principal id is unknown until first login. The
// conditional claim prevents duplicate bindings under concurrent logins.
type Resolver struct {
	store MembershipStore
}

// NewResolver constructs a Resolver. The store is injected so tests can
// substitute fakes; no package-level singleton exists.
func NewResolver(store MembershipStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the membership for the principal, or nil when the
// principal is unregistered. Store failures and malformed rows surface as
// ErrResolutionFailed; "no rows" is a valid nil, not an error.
func (r *Resolver) Resolve(ctx context.Context, p identity.Principal) (*ClinicMembership, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: principal id is empty", ErrResolutionFailed)
	}

	// Fast path: an already-claimed row must never be reconsidered for
	// re-claiming.
	m, err := r.store.FindByPrincipal(ctx, p.ID)
	switch {
	case err == nil:
		return validated(m)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("%w: lookup by principal: %v", ErrResolutionFailed, err)
	}

	email := identity.NormalizeEmail(p.Email)
	if email == "" {
		return nil, nil
	}

	pre, err := r.store.FindUnclaimedByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: lookup by email: %v", ErrResolutionFailed, err)
	}

	// A logout or timeout while resolution was in flight must discard the
	// claim rather than apply it.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	err = r.store.Claim(ctx, pre.ID, p.ID)
	switch {
	case err == nil:
		claimed, err := r.store.FindByPrincipal(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: re-fetch after claim: %v", ErrResolutionFailed, err)
		}
		return validated(claimed)
	case errors.Is(err, ErrClaimConflict):
		return r.afterLostClaim(ctx, pre.ID, p.ID)
	default:
		return nil, fmt.Errorf("%w: claim: %v", ErrResolutionFailed, err)
	}
}

// afterLostClaim recovers from a lost claim race. A retried request from the
// same principal finds its own row; otherwise the row now belongs to the
// winning principal and is returned as-is.
func (r *Resolver) afterLostClaim(ctx context.Context, membershipID int64, principalID string) (*ClinicMembership, error) {
	m, err := r.store.FindByPrincipal(ctx, principalID)
	switch {
	case err == nil:
		return validated(m)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("%w: re-fetch after lost claim: %v", ErrResolutionFailed, err)
	}

	winner, err := r.store.FindByID(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch winning claim: %v", ErrResolutionFailed, err)
	}
	return validated(winner)
}

func validated(m *ClinicMembership) (*ClinicMembership, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	return m, nil
}
