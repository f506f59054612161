package tenant

import (
	"context"
	"errors"
	"testing"

	"mediflow.org/internal/identity"
)

// fakeStore is an in-memory MembershipStore with write counting so claim
// idempotency can be asserted.
type fakeStore struct {
	rows       map[int64]*ClinicMembership
	claimCalls int
	failWith   error

	// staleEmailReads, when set, makes FindUnclaimedByEmail serve the row as
	// if the claim had not landed yet, simulating the read half of a
	// concurrent resolution that raced a competing claim.
	staleEmailReads bool
}

func newFakeStore(rows ...*ClinicMembership) *fakeStore {
	s := &fakeStore{rows: make(map[int64]*ClinicMembership)}
	for _, r := range rows {
		copied := *r
		s.rows[r.ID] = &copied
	}
	return s
}

func (s *fakeStore) FindByPrincipal(ctx context.Context, principalID string) (*ClinicMembership, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, r := range s.rows {
		if r.PrincipalID == principalID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindUnclaimedByEmail(ctx context.Context, email string) (*ClinicMembership, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, r := range s.rows {
		if r.Email != email {
			continue
		}
		if r.PrincipalID == "" {
			copied := *r
			return &copied, nil
		}
		if s.staleEmailReads {
			copied := *r
			copied.PrincipalID = ""
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindByID(ctx context.Context, id int64) (*ClinicMembership, error) {
	if r, ok := s.rows[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) Claim(ctx context.Context, membershipID int64, principalID string) error {
	s.claimCalls++
	r, ok := s.rows[membershipID]
	if !ok || r.PrincipalID != "" {
		return ErrClaimConflict
	}
	r.PrincipalID = principalID
	return nil
}

func (s *fakeStore) Create(ctx context.Context, m *ClinicMembership) error { return nil }

func (s *fakeStore) SetStatus(ctx context.Context, clinicID, membershipID int64, status MembershipStatus) (*ClinicMembership, error) {
	return nil, ErrNotFound
}

func (s *fakeStore) ListByClinic(ctx context.Context, clinicID int64) ([]*ClinicMembership, error) {
	return nil, nil
}

func (s *fakeStore) ListDoctors(ctx context.Context, clinicID int64) ([]*ClinicMembership, error) {
	return nil, nil
}

var u1 = identity.Principal{ID: "u1", Email: "a@x.com"}

func TestResolveEmptyTableReturnsNil(t *testing.T) {
	r := NewResolver(newFakeStore())
	m, err := r.Resolve(context.Background(), u1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m != nil {
		t.Fatalf("want nil membership, got %+v", m)
	}
}

func TestResolveClaimsPreProvisionedRow(t *testing.T) {
	store := newFakeStore(&ClinicMembership{
		ID: 7, Email: "a@x.com", ClinicID: 3, Role: RoleDoctor, Status: StatusPending,
	})
	r := NewResolver(store)

	m, err := r.Resolve(context.Background(), u1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m == nil || m.ID != 7 || m.PrincipalID != "u1" {
		t.Fatalf("want row 7 claimed by u1, got %+v", m)
	}

	d := Evaluate(true, m)
	if d.Verdict != DenyRedirect || d.Target != RedirectPendingApproval {
		t.Fatalf("pending membership should redirect to pending approval, got %+v", d)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newFakeStore(&ClinicMembership{
		ID: 7, Email: "a@x.com", ClinicID: 3, Role: RoleDoctor, Status: StatusActive,
	})
	r := NewResolver(store)

	first, err := r.Resolve(context.Background(), u1)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	writesAfterFirst := store.claimCalls

	second, err := r.Resolve(context.Background(), u1)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.ID != first.ID || second.PrincipalID != first.PrincipalID {
		t.Fatalf("resolve not stable: first %+v, second %+v", first, second)
	}
	if store.claimCalls != writesAfterFirst {
		t.Fatalf("second resolve performed %d extra writes", store.claimCalls-writesAfterFirst)
	}
}

func TestResolveClaimRaceReturnsWinningRow(t *testing.T) {
	// Two principals share the invited email but carry different ids. Each
	// sees the unclaimed row before either claim lands; exactly one claim
	// succeeds and both resolutions settle on the winning binding.
	store := newFakeStore(&ClinicMembership{
		ID: 7, Email: "a@x.com", ClinicID: 3, Role: RoleDoctor, Status: StatusActive,
	})
	r := NewResolver(store)

	winner, err := r.Resolve(context.Background(), u1)
	if err != nil {
		t.Fatalf("winner Resolve: %v", err)
	}

	store.staleEmailReads = true
	loser, err := r.Resolve(context.Background(), identity.Principal{ID: "u2", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("loser Resolve: %v", err)
	}
	if loser == nil || winner == nil {
		t.Fatal("both resolutions must return the membership")
	}
	if loser.ID != winner.ID || loser.PrincipalID != winner.PrincipalID {
		t.Fatalf("rows diverged: winner %+v, loser %+v", winner, loser)
	}
	if winner.PrincipalID != "u1" {
		t.Fatalf("row bound to %q, want u1", winner.PrincipalID)
	}
}

func TestResolveRetriedClaimConflictFindsOwnRow(t *testing.T) {
	// A retried request can lose the CAS to its own earlier attempt; the
	// recovery path must land on the row now bound to this principal.
	store := newFakeStore(&ClinicMembership{
		ID: 7, Email: "a@x.com", ClinicID: 3, Role: RoleDoctor, Status: StatusActive,
		PrincipalID: "u1",
	})
	r := NewResolver(store)
	m, err := r.afterLostClaim(context.Background(), 7, "u1")
	if err != nil {
		t.Fatalf("afterLostClaim: %v", err)
	}
	if m.PrincipalID != "u1" {
		t.Fatalf("want own row, got %+v", m)
	}
}

func TestResolveStoreFailureIsResolutionFailed(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("connection refused")
	r := NewResolver(store)

	_, err := r.Resolve(context.Background(), u1)
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("want ErrResolutionFailed, got %v", err)
	}
}

func TestResolveMalformedRowIsResolutionFailed(t *testing.T) {
	store := newFakeStore(&ClinicMembership{
		ID: 7, PrincipalID: "u1", ClinicID: 3, Role: "janitor", Status: StatusActive,
	})
	r := NewResolver(store)

	_, err := r.Resolve(context.Background(), u1)
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("unknown role must fail resolution, got %v", err)
	}
}

func TestResolveCanceledContextDiscardsClaim(t *testing.T) {
	store := newFakeStore(&ClinicMembership{
		ID: 7, Email: "a@x.com", ClinicID: 3, Role: RoleDoctor, Status: StatusActive,
	})
	r := NewResolver(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, u1)
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("want ErrResolutionFailed on canceled ctx, got %v", err)
	}
	if store.claimCalls != 0 {
		t.Fatalf("claim must not run after cancellation, got %d calls", store.claimCalls)
	}

	if row, _ := store.FindByID(context.Background(), 7); row.PrincipalID != "" {
		t.Fatalf("row must stay unclaimed, got %+v", row)
	}
}
