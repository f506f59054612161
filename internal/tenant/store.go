package tenant

import "context"

// MembershipStore persists clinic memberships. Implementations return
// ErrNotFound for empty lookups and ErrClaimConflict when the conditional
// claim matches zero rows.
type MembershipStore interface {
	// FindByPrincipal returns the membership bound to the principal id.
	FindByPrincipal(ctx context.Context, principalID string) (*ClinicMembership, error)
	// FindUnclaimedByEmail returns a pre-provisioned row (principal id
	// unset) matching the email.
	FindUnclaimedByEmail(ctx context.Context, email string) (*ClinicMembership, error)
	// FindByID returns a membership by its row id regardless of claim state.
	FindByID(ctx context.Context, id int64) (*ClinicMembership, error)
	// Claim conditionally binds the row to the principal. The update must
	// only succeed while principal id is still unset.
	Claim(ctx context.Context, membershipID int64, principalID string) error

	Create(ctx context.Context, m *ClinicMembership) error
	SetStatus(ctx context.Context, clinicID, membershipID int64, status MembershipStatus) (*ClinicMembership, error)
	ListByClinic(ctx context.Context, clinicID int64) ([]*ClinicMembership, error)
	ListDoctors(ctx context.Context, clinicID int64) ([]*ClinicMembership, error)
}

// ClinicStore persists clinics.
type ClinicStore interface {
	// CreateWithAdmin registers a clinic and its founding admin membership
	// in one transaction.
	CreateWithAdmin(ctx context.Context, clinic *Clinic, admin *ClinicMembership) error
	Get(ctx context.Context, id int64) (*Clinic, error)
	List(ctx context.Context) ([]*Clinic, error)
}
