package tenant

import (
	"fmt"
	"strings"
	"time"
)

// Role is the clinic-scoped role a membership grants.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RolePatient      Role = "patient"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleReceptionist, RoleDoctor, RoleNurse, RolePatient:
		return true
	}
	return false
}

// MembershipStatus is the approval state of a membership. Older schema
// revisions had no status column; an empty value is treated as active.
type MembershipStatus string

const (
	StatusActive   MembershipStatus = "active"
	StatusInactive MembershipStatus = "inactive"
	StatusPending  MembershipStatus = "pending"
)

func (s MembershipStatus) valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, "":
		return true
	}
	return false
}

// AccessState is the derived authorization state for one evaluation. It is
// computed fresh on every check and never persisted.
type AccessState string

const (
	StateUnauthenticated AccessState = "unauthenticated"
	StateUnregistered    AccessState = "unregistered"
	StatePending         AccessState = "pending"
	StateInactive        AccessState = "inactive"
	StateActive          AccessState = "active"
)

// Clinic is the tenant root. Every domain row carries its id.
type Clinic struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClinicMembership binds a principal to a clinic with a role and status.
// PrincipalID is empty until the row is claimed; pre-provisioned staff are
// created with an email only and claimed on first login.
type ClinicMembership struct {
	ID          int64            `json:"id"`
	PrincipalID string           `json:"principal_id,omitempty"`
	ClinicID    int64            `json:"clinic_id"`
	Role        Role             `json:"role"`
	FullName    string           `json:"full_name,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Email       string           `json:"email,omitempty"`
	Status      MembershipStatus `json:"status,omitempty"`
	ClinicName  string           `json:"clinic_name,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// EffectiveStatus maps the absent status of older rows to active.
func (m *ClinicMembership) EffectiveStatus() MembershipStatus {
	if m.Status == "" {
		return StatusActive
	}
	return m.Status
}

// Claimed reports whether the row is bound to a principal.
func (m *ClinicMembership) Claimed() bool {
	return strings.TrimSpace(m.PrincipalID) != ""
}

// Validate checks the data contract at the store boundary. Rows that fail
// here must surface as resolution failures, never as undefined fields
// leaking into authorization decisions.
func (m *ClinicMembership) Validate() error {
	if m == nil {
		return fmt.Errorf("membership row is nil")
	}
	if m.ID <= 0 {
		return fmt.Errorf("membership id %d is invalid", m.ID)
	}
	if !m.Role.Valid() {
		return fmt.Errorf("membership %d has unknown role %q", m.ID, m.Role)
	}
	if !m.Status.valid() {
		return fmt.Errorf("membership %d has unknown status %q", m.ID, m.Status)
	}
	if !m.Claimed() && strings.TrimSpace(m.Email) == "" {
		return fmt.Errorf("membership %d has neither principal nor email", m.ID)
	}
	return nil
}
