package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"mediflow.org/internal/identity"
	"mediflow.org/internal/tenant"
)

func membershipRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "principal_id", "clinic_id", "role",
		"full_name", "phone", "email", "status", "clinic_name", "created_at", "updated_at",
	})
}

func TestFindByPrincipal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("from clinic_memberships m").
		WithArgs("u1").
		WillReturnRows(membershipRows().
			AddRow(7, "u1", 3, "doctor", "Dr. Demo", "", "doc@x.com", "active", "Demo Clinic", now, now))

	m, err := NewStore(db).Memberships().FindByPrincipal(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindByPrincipal: %v", err)
	}
	if m.ID != 7 || m.ClinicID != 3 || m.Role != tenant.RoleDoctor || m.ClinicName != "Demo Clinic" {
		t.Fatalf("unexpected membership: %+v", m)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByPrincipalNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("from clinic_memberships m").
		WithArgs("ghost").
		WillReturnRows(membershipRows())

	_, err = NewStore(db).Memberships().FindByPrincipal(context.Background(), "ghost")
	if !errors.Is(err, tenant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimBindsUnclaimedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update clinic_memberships").
		WithArgs("u1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewStore(db).Memberships().Claim(context.Background(), 7, "u1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClaimConflictOnZeroRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// The guarded update matches nothing once another principal owns the row.
	mock.ExpectExec("update clinic_memberships").
		WithArgs("u2", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewStore(db).Memberships().Claim(context.Background(), 7, "u2")
	if !errors.Is(err, tenant.ErrClaimConflict) {
		t.Fatalf("expected ErrClaimConflict, got %v", err)
	}
}

func TestClaimConflictOnUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update clinic_memberships").
		WithArgs("u1", int64(8)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewStore(db).Memberships().Claim(context.Background(), 8, "u1")
	if !errors.Is(err, tenant.ErrClaimConflict) {
		t.Fatalf("expected ErrClaimConflict, got %v", err)
	}
}

func TestSetStatusScopedToClinic(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("update clinic_memberships m").
		WithArgs("active", int64(7), int64(99)).
		WillReturnRows(membershipRows())

	_, err = NewStore(db).Memberships().SetStatus(context.Background(), 99, 7, tenant.StatusActive)
	if !errors.Is(err, tenant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign clinic, got %v", err)
	}
}

func TestIdentityCreateEmailTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into identities").
		WithArgs(sqlmock.AnyArg(), "a@x.com", sqlmock.AnyArg(), "A").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewStore(db).Identities().Create(context.Background(), &identity.Identity{
		Email:        "a@x.com",
		PasswordHash: "hash",
		DisplayName:  "A",
	})
	if !errors.Is(err, identity.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}
