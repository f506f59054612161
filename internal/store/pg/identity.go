package pg

import (
	"context"
	"database/sql"
	"errors"

	"mediflow.org/internal/identity"
	"mediflow.org/internal/ids"
)

var _ identity.Store = (*identityStore)(nil)

type identityStore struct{ db *sql.DB }

func (s *identityStore) Create(ctx context.Context, id *identity.Identity) error {
	if id.ID == "" {
		id.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into identities(id, email, password_hash, display_name) values($1,$2,$3,$4)`,
		id.ID, id.Email, id.PasswordHash, id.DisplayName,
	)
	if isUniqueViolation(err) {
		return identity.ErrEmailTaken
	}
	return err
}

func (s *identityStore) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, display_name, created_at, updated_at
		 from identities where email=$1`, email)
	var id identity.Identity
	if err := row.Scan(&id.ID, &id.Email, &id.PasswordHash, &id.DisplayName, &id.CreatedAt, &id.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	return &id, nil
}
