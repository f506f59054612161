package tenant

// RedirectTarget names the screen a denied request should land on. Each
// target maps to a distinct page so the user always knows which state they
// are in.
type RedirectTarget string

const (
	RedirectLogin           RedirectTarget = "login"
	RedirectOnboarding      RedirectTarget = "onboarding"
	RedirectPendingApproval RedirectTarget = "pending_approval"
)

// Verdict is the gate's outcome kind.
type Verdict int

const (
	// Allow grants access to the requested resource.
	Allow Verdict = iota
	// DenyRedirect sends the caller to the screen named by Target.
	DenyRedirect
	// DenyForbidden refuses an authenticated, active member lacking the
	// required role. Not a login redirect; the caller IS authenticated.
	DenyForbidden
)

// Decision is the gate's output for one evaluation.
type Decision struct {
	Verdict Verdict
	Target  RedirectTarget
	State   AccessState
}

// StateOf derives the access state from authentication and membership.
func StateOf(hasPrincipal bool, m *ClinicMembership) AccessState {
	switch {
	case !hasPrincipal:
		return StateUnauthenticated
	case m == nil:
		return StateUnregistered
	}
	switch m.EffectiveStatus() {
	case StatusPending:
		return StatePending
	case StatusInactive:
		return StateInactive
	default:
		return StateActive
	}
}

// Evaluate maps (principal?, membership?, required roles) to a routing
// decision. Pure and side-effect free; callers must re-evaluate on every
// protected request because status and role change out-of-band. An empty
// requiredRoles set admits any authenticated, active member.
//
// Inactive memberships route to the pending-approval screen exactly like
// pending ones; revocation is communicated there rather than on a separate
// page.
func Evaluate(hasPrincipal bool, m *ClinicMembership, requiredRoles ...Role) Decision {
	state := StateOf(hasPrincipal, m)
	switch state {
	case StateUnauthenticated:
		return Decision{Verdict: DenyRedirect, Target: RedirectLogin, State: state}
	case StateUnregistered:
		return Decision{Verdict: DenyRedirect, Target: RedirectOnboarding, State: state}
	case StatePending, StateInactive:
		return Decision{Verdict: DenyRedirect, Target: RedirectPendingApproval, State: state}
	}
	if len(requiredRoles) > 0 && !roleIn(m.Role, requiredRoles) {
		return Decision{Verdict: DenyForbidden, State: state}
	}
	return Decision{Verdict: Allow, State: state}
}

func roleIn(role Role, set []Role) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
