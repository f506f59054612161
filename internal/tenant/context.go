package tenant

import "context"

type membershipContextKey struct{}

// ContextWithMembership attaches the resolved membership to the context.
func ContextWithMembership(ctx context.Context, m *ClinicMembership) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, membershipContextKey{}, m)
}

// MembershipFromContext extracts the resolved membership, if any.
func MembershipFromContext(ctx context.Context) (*ClinicMembership, bool) {
	if ctx == nil {
		return nil, false
	}
	m, ok := ctx.Value(membershipContextKey{}).(*ClinicMembership)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}
