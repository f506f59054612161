package httpapi

import (
	"net/http"
	"strings"

	"mediflow.org/internal/audit"
	"mediflow.org/internal/records"
	"mediflow.org/internal/tenant"
)

type createClinicRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type joinClinicRequest struct {
	ClinicID int64  `json:"clinic_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type provisionStaffRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type setMembershipStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleClinics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listClinics(w, r)
	case http.MethodPost:
		a.createClinic(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listClinics backs the onboarding picker; any authenticated caller may see
// the clinic directory.
func (a *API) listClinics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}
	clinics, err := a.clinics.List(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": clinics})
}

// createClinic founds a clinic with the caller as its active admin, in one
// transaction. A caller who already belongs to a clinic cannot found another.
func (a *API) createClinic(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if existing, _ := tenant.MembershipFromContext(r.Context()); existing != nil {
		writeError(w, r, http.StatusConflict, "caller already belongs to a clinic")
		return
	}

	var req createClinicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "clinic name is required")
		return
	}

	clinic := &tenant.Clinic{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = p.DisplayName
	}
	admin := &tenant.ClinicMembership{
		PrincipalID: p.ID,
		FullName:    fullName,
		Email:       p.Email,
	}
	if err := a.clinics.CreateWithAdmin(r.Context(), clinic, admin); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "clinic.create", map[string]any{
		"clinic_id":     clinic.ID,
		"membership_id": admin.ID,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"clinic":     clinic,
		"membership": admin,
	})
}

// handleMemberships lets an authenticated, unregistered caller request to
// join an existing clinic. Staff join as pending until an admin approves;
// patients are admitted immediately and get a patient record.
func (a *API) handleMemberships(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if existing, _ := tenant.MembershipFromContext(r.Context()); existing != nil {
		writeError(w, r, http.StatusConflict, "caller already belongs to a clinic")
		return
	}

	var req joinClinicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := tenant.Role(strings.TrimSpace(req.Role))
	if !role.Valid() || role == tenant.RoleAdmin {
		writeError(w, r, http.StatusBadRequest, "role must be receptionist, doctor, nurse or patient")
		return
	}
	if req.ClinicID <= 0 {
		writeError(w, r, http.StatusBadRequest, "clinic_id is required")
		return
	}
	if _, err := a.clinics.Get(r.Context(), req.ClinicID); err != nil {
		handleDomainError(w, r, err)
		return
	}

	status := tenant.StatusPending
	if role == tenant.RolePatient {
		status = tenant.StatusActive
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = p.DisplayName
	}
	m := &tenant.ClinicMembership{
		PrincipalID: p.ID,
		ClinicID:    req.ClinicID,
		Role:        role,
		FullName:    fullName,
		Phone:       strings.TrimSpace(req.Phone),
		Email:       p.Email,
		Status:      status,
	}
	if err := a.memberships.Create(r.Context(), m); err != nil {
		handleDomainError(w, r, err)
		return
	}

	if role == tenant.RolePatient {
		patient := &records.Patient{
			PrincipalID: p.ID,
			FullName:    fullName,
			Phone:       m.Phone,
			Email:       p.Email,
		}
		if err := a.records.CreatePatient(r.Context(), req.ClinicID, patient); err != nil {
			handleDomainError(w, r, err)
			return
		}
	}

	_ = audit.LogEvent(r.Context(), "membership.join", map[string]any{
		"membership_id": m.ID,
		"clinic_id":     m.ClinicID,
		"role":          string(role),
		"status":        string(status),
	})

	writeJSON(w, http.StatusCreated, m)
}

// handleMembershipResource: PATCH /v1/memberships/{id} approves or revokes.
func (a *API) handleMembershipResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}

	m, ok := a.requireAccess(w, r, tenant.RoleAdmin)
	if !ok {
		return
	}

	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/v1/memberships/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "membership not found")
		return
	}

	var req setMembershipStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := tenant.MembershipStatus(strings.TrimSpace(req.Status))
	if status != tenant.StatusActive && status != tenant.StatusInactive && status != tenant.StatusPending {
		writeError(w, r, http.StatusBadRequest, "status must be active, inactive or pending")
		return
	}
	if id == m.ID {
		writeError(w, r, http.StatusBadRequest, "admins cannot change their own status")
		return
	}

	updated, err := a.memberships.SetStatus(r.Context(), m.ClinicID, id, status)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "membership.status", map[string]any{
		"membership_id": updated.ID,
		"clinic_id":     updated.ClinicID,
		"status":        string(status),
	})

	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listStaff(w, r)
	case http.MethodPost:
		a.provisionStaff(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listStaff(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist)
	if !ok {
		return
	}
	staff, err := a.memberships.ListByClinic(r.Context(), m.ClinicID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": staff})
}

// provisionStaff creates an unclaimed membership keyed by email. The row is
// bound to a principal the first time someone logs in with that email.
func (a *API) provisionStaff(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin)
	if !ok {
		return
	}

	var req provisionStaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}
	role := tenant.Role(strings.TrimSpace(req.Role))
	if !role.Valid() || role == tenant.RolePatient {
		writeError(w, r, http.StatusBadRequest, "role must be admin, receptionist, doctor or nurse")
		return
	}

	staff := &tenant.ClinicMembership{
		ClinicID: m.ClinicID,
		Role:     role,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    email,
		Status:   tenant.StatusActive,
	}
	if err := a.memberships.Create(r.Context(), staff); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "staff.provision", map[string]any{
		"membership_id": staff.ID,
		"clinic_id":     staff.ClinicID,
		"role":          string(role),
		"email":         email,
	})

	writeJSON(w, http.StatusCreated, staff)
}

func (a *API) handleDoctors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	m, ok := a.requireAccess(w, r)
	if !ok {
		return
	}
	doctors, err := a.memberships.ListDoctors(r.Context(), m.ClinicID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": doctors})
}
