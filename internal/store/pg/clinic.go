package pg

import (
	"context"
	"database/sql"
	"errors"

	"mediflow.org/internal/tenant"
)

var _ tenant.ClinicStore = (*clinicStore)(nil)

type clinicStore struct{ db *sql.DB }

// CreateWithAdmin registers the clinic and its founding admin in one
// transaction so a clinic can never exist without an administrator.
func (s *clinicStore) CreateWithAdmin(ctx context.Context, clinic *tenant.Clinic, admin *tenant.ClinicMembership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		insert into clinics(name, address, phone, email)
		values ($1,$2,$3,$4)
		returning id, created_at, updated_at`,
		clinic.Name, clinic.Address, clinic.Phone, clinic.Email,
	).Scan(&clinic.ID, &clinic.CreatedAt, &clinic.UpdatedAt)
	if err != nil {
		return err
	}

	admin.ClinicID = clinic.ID
	admin.Role = tenant.RoleAdmin
	admin.Status = tenant.StatusActive
	admin.ClinicName = clinic.Name
	err = tx.QueryRowContext(ctx, `
		insert into clinic_memberships(principal_id, clinic_id, role, full_name, phone, email, status)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning id, created_at, updated_at`,
		admin.PrincipalID, admin.ClinicID, admin.Role, admin.FullName, admin.Phone, admin.Email, admin.Status,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrConflict
		}
		return err
	}

	return tx.Commit()
}

func (s *clinicStore) Get(ctx context.Context, id int64) (*tenant.Clinic, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, address, phone, email, created_at, updated_at
		from clinics where id = $1`, id)
	var c tenant.Clinic
	if err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *clinicStore) List(ctx context.Context) ([]*tenant.Clinic, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, address, phone, email, created_at, updated_at
		from clinics order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*tenant.Clinic
	for rows.Next() {
		var c tenant.Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &c)
	}
	return res, rows.Err()
}
