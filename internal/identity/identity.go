// Package identity normalizes the identity provider into the Principal shape
// the tenant resolver consumes. The concrete provider here is email/password
// with signed bearer tokens; the resolver only ever sees a Principal.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("identity: not found")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrInvalidInput       = errors.New("identity: invalid input")
)

// Principal is the authenticated identity for one request. Immutable for the
// lifetime of a session.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Identity is the persisted login record backing a Principal.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists identities.
type Store interface {
	Create(ctx context.Context, id *Identity) error
	FindByEmail(ctx context.Context, email string) (*Identity, error)
}

// Principal converts the stored identity into the session shape.
func (i *Identity) Principal() Principal {
	return Principal{ID: i.ID, Email: i.Email, DisplayName: i.DisplayName}
}

// NormalizeEmail lowercases and trims an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
