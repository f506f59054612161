package httpapi

import (
	"net/http"
	"strings"
	"time"

	"mediflow.org/internal/audit"
	"mediflow.org/internal/records"
	"mediflow.org/internal/tenant"
)

type createPatientRequest struct {
	FullName       string `json:"full_name"`
	Gender         string `json:"gender"`
	DateOfBirth    string `json:"date_of_birth"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medical_history"`
}

type transferPatientsRequest struct {
	ToClinicID int64   `json:"to_clinic_id"`
	PatientIDs []int64 `json:"patient_ids"`
}

type createAppointmentRequest struct {
	PatientID       int64  `json:"patient_id"`
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	Reason          string `json:"reason"`
}

type createVisitRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	Diagnosis     string `json:"diagnosis"`
	Notes         string `json:"notes"`
	FollowUpDate  string `json:"follow_up_date"`
}

type createPrescriptionRequest struct {
	VisitID      int64  `json:"visit_id"`
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
}

type createInvoiceRequest struct {
	PatientID   int64  `json:"patient_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

var staffRoles = []tenant.Role{
	tenant.RoleAdmin, tenant.RoleReceptionist, tenant.RoleDoctor, tenant.RoleNurse,
}

// Patients -----------------------------------------------------------------

func (a *API) handlePatients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listPatients(w, r)
	case http.MethodPost:
		a.createPatient(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listPatients(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, staffRoles...)
	if !ok {
		return
	}
	patients, err := a.records.ListPatients(r.Context(), m.ClinicID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": patients})
}

func (a *API) createPatient(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist)
	if !ok {
		return
	}

	var req createPatientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, r, http.StatusBadRequest, "full_name is required")
		return
	}

	p := &records.Patient{
		FullName:       strings.TrimSpace(req.FullName),
		Gender:         strings.TrimSpace(req.Gender),
		DateOfBirth:    strings.TrimSpace(req.DateOfBirth),
		Phone:          strings.TrimSpace(req.Phone),
		Email:          strings.TrimSpace(req.Email),
		Address:        strings.TrimSpace(req.Address),
		MedicalHistory: req.MedicalHistory,
	}
	if err := a.records.CreatePatient(r.Context(), m.ClinicID, p); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handlePatientTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin)
	if !ok {
		return
	}

	var req transferPatientsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ToClinicID <= 0 || len(req.PatientIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "to_clinic_id and patient_ids are required")
		return
	}

	if err := a.records.TransferPatients(r.Context(), m.ClinicID, req.ToClinicID, req.PatientIDs); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "patients.transfer", map[string]any{
		"from_clinic_id": m.ClinicID,
		"to_clinic_id":   req.ToClinicID,
		"patient_count":  len(req.PatientIDs),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"transferred": len(req.PatientIDs),
	})
}

// Appointments -------------------------------------------------------------

func (a *API) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAppointments(w, r)
	case http.MethodPost:
		a.createAppointment(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, staffRoles...)
	if !ok {
		return
	}
	// Doctors see only their own schedule.
	doctorFilter := ""
	if m.Role == tenant.RoleDoctor {
		doctorFilter = m.PrincipalID
	}
	appts, err := a.records.ListAppointments(r.Context(), m.ClinicID, doctorFilter)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": appts})
}

func (a *API) createAppointment(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	when, err := time.Parse(time.RFC3339, strings.TrimSpace(req.AppointmentDate))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "appointment_date must be RFC 3339")
		return
	}

	appt := &records.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        strings.TrimSpace(req.DoctorID),
		AppointmentDate: when,
		Reason:          strings.TrimSpace(req.Reason),
	}
	if err := a.records.CreateAppointment(r.Context(), m.ClinicID, appt); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// handleAppointmentResource: PUT /v1/appointments/{id}/status
func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/appointments/")
	rawID, rest, found := strings.Cut(path, "/")
	if !found || rest != "status" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist, tenant.RoleDoctor)
	if !ok {
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "appointment not found")
		return
	}

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := records.AppointmentStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		writeError(w, r, http.StatusBadRequest, "status must be booked, checked_in, completed or cancelled")
		return
	}

	if err := a.records.SetAppointmentStatus(r.Context(), m.ClinicID, id, status); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": string(status),
	})
}

// Visits and prescriptions -------------------------------------------------

func (a *API) handleVisits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	m, ok := a.requireAccess(w, r, tenant.RoleDoctor)
	if !ok {
		return
	}

	var req createVisitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	v := &records.Visit{
		AppointmentID: req.AppointmentID,
		Diagnosis:     strings.TrimSpace(req.Diagnosis),
		Notes:         req.Notes,
		FollowUpDate:  strings.TrimSpace(req.FollowUpDate),
	}
	if err := a.records.CreateVisit(r.Context(), m.ClinicID, m.PrincipalID, v); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (a *API) handlePrescriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	m, ok := a.requireAccess(w, r, tenant.RoleDoctor)
	if !ok {
		return
	}

	var req createPrescriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.MedicineName) == "" {
		writeError(w, r, http.StatusBadRequest, "medicine_name is required")
		return
	}

	p := &records.Prescription{
		VisitID:      req.VisitID,
		MedicineName: strings.TrimSpace(req.MedicineName),
		Dosage:       strings.TrimSpace(req.Dosage),
		Duration:     strings.TrimSpace(req.Duration),
	}
	if err := a.records.CreatePrescription(r.Context(), m.ClinicID, p); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Invoices -----------------------------------------------------------------

func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listInvoices(w, r)
	case http.MethodPost:
		a.createInvoice(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listInvoices(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist)
	if !ok {
		return
	}
	invoices, err := a.records.ListInvoices(r.Context(), m.ClinicID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": invoices})
}

func (a *API) createInvoice(w http.ResponseWriter, r *http.Request) {
	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist)
	if !ok {
		return
	}

	var req createInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, r, http.StatusBadRequest, "amount_cents must be > 0")
		return
	}

	inv := &records.Invoice{
		PatientID:   req.PatientID,
		AmountCents: req.AmountCents,
		Description: strings.TrimSpace(req.Description),
	}
	if err := a.records.CreateInvoice(r.Context(), m.ClinicID, inv); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// handleInvoiceResource: PUT /v1/invoices/{id}/status
func (a *API) handleInvoiceResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/invoices/")
	rawID, rest, found := strings.Cut(path, "/")
	if !found || rest != "status" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	m, ok := a.requireAccess(w, r, tenant.RoleAdmin, tenant.RoleReceptionist)
	if !ok {
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "invoice not found")
		return
	}

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := records.PaymentStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		writeError(w, r, http.StatusBadRequest, "status must be pending or paid")
		return
	}

	if err := a.records.SetInvoiceStatus(r.Context(), m.ClinicID, id, status); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": string(status),
	})
}

// Dashboard ----------------------------------------------------------------

func (a *API) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	m, ok := a.requireAccess(w, r, staffRoles...)
	if !ok {
		return
	}

	doctorFilter := ""
	if m.Role == tenant.RoleDoctor {
		doctorFilter = m.PrincipalID
	}
	includeInvoices := m.Role == tenant.RoleAdmin || m.Role == tenant.RoleReceptionist

	stats, err := a.records.DashboardStats(r.Context(), m.ClinicID, doctorFilter, time.Now(), includeInvoices)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
