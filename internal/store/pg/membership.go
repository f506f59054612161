package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mediflow.org/internal/tenant"
)

var _ tenant.MembershipStore = (*membershipStore)(nil)

type membershipStore struct{ db *sql.DB }

const membershipColumns = `m.id, coalesce(m.principal_id,''), m.clinic_id, m.role,
	m.full_name, m.phone, m.email, m.status, coalesce(c.name,''), m.created_at, m.updated_at`

func scanMembership(row interface{ Scan(...any) error }) (*tenant.ClinicMembership, error) {
	var m tenant.ClinicMembership
	err := row.Scan(&m.ID, &m.PrincipalID, &m.ClinicID, &m.Role,
		&m.FullName, &m.Phone, &m.Email, &m.Status, &m.ClinicName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *membershipStore) FindByPrincipal(ctx context.Context, principalID string) (*tenant.ClinicMembership, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+membershipColumns+`
		from clinic_memberships m
		left join clinics c on c.id = m.clinic_id
		where m.principal_id = $1`, principalID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	return m, err
}

func (s *membershipStore) FindUnclaimedByEmail(ctx context.Context, email string) (*tenant.ClinicMembership, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+membershipColumns+`
		from clinic_memberships m
		left join clinics c on c.id = m.clinic_id
		where m.principal_id is null and lower(m.email) = lower($1)`, email)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	return m, err
}

func (s *membershipStore) FindByID(ctx context.Context, id int64) (*tenant.ClinicMembership, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+membershipColumns+`
		from clinic_memberships m
		left join clinics c on c.id = m.clinic_id
		where m.id = $1`, id)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	return m, err
}

// Claim binds the row to the principal only while it is still unclaimed.
// Zero rows affected means another principal won the race.
func (s *membershipStore) Claim(ctx context.Context, membershipID int64, principalID string) error {
	res, err := s.db.ExecContext(ctx, `
		update clinic_memberships
		set principal_id = $1, updated_at = now()
		where id = $2 and principal_id is null`, principalID, membershipID)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrClaimConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tenant.ErrClaimConflict
	}
	return nil
}

func (s *membershipStore) Create(ctx context.Context, m *tenant.ClinicMembership) error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: role %q", tenant.ErrInvalidInput, m.Role)
	}
	var principal any
	if m.Claimed() {
		principal = m.PrincipalID
	}
	err := s.db.QueryRowContext(ctx, `
		insert into clinic_memberships(principal_id, clinic_id, role, full_name, phone, email, status)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning id, created_at, updated_at`,
		principal, m.ClinicID, m.Role, m.FullName, m.Phone, m.Email, m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if isUniqueViolation(err) {
		return tenant.ErrConflict
	}
	return err
}

func (s *membershipStore) SetStatus(ctx context.Context, clinicID, membershipID int64, status tenant.MembershipStatus) (*tenant.ClinicMembership, error) {
	row := s.db.QueryRowContext(ctx, `
		update clinic_memberships m
		set status = $1, updated_at = now()
		from clinics c
		where m.id = $2 and m.clinic_id = $3 and c.id = m.clinic_id
		returning `+membershipColumns, status, membershipID, clinicID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.ErrNotFound
	}
	return m, err
}

func (s *membershipStore) ListByClinic(ctx context.Context, clinicID int64) ([]*tenant.ClinicMembership, error) {
	return s.list(ctx, `
		select `+membershipColumns+`
		from clinic_memberships m
		left join clinics c on c.id = m.clinic_id
		where m.clinic_id = $1
		order by m.created_at`, clinicID)
}

func (s *membershipStore) ListDoctors(ctx context.Context, clinicID int64) ([]*tenant.ClinicMembership, error) {
	return s.list(ctx, `
		select `+membershipColumns+`
		from clinic_memberships m
		left join clinics c on c.id = m.clinic_id
		where m.clinic_id = $1 and m.role = 'doctor' and m.status in ('active','')
		order by m.full_name`, clinicID)
}

func (s *membershipStore) list(ctx context.Context, query string, args ...any) ([]*tenant.ClinicMembership, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*tenant.ClinicMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
