package records

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound covers rows that do not exist inside the caller's clinic.
	// A row existing in another clinic is indistinguishable from absence.
	ErrNotFound = errors.New("records: not found in clinic")

	ErrInvalidInput = errors.New("records: invalid input")
)

// Store is the tenant-scoped data access collaborator. The clinic id
// parameter always comes from the acting membership, never from a request
// body.
type Store interface {
	ListPatients(ctx context.Context, clinicID int64) ([]*Patient, error)
	CreatePatient(ctx context.Context, clinicID int64, p *Patient) error

	// TransferPatients re-homes patients and their dependent records to
	// another clinic in a single transaction; a partial transfer must never
	// be observable.
	TransferPatients(ctx context.Context, fromClinicID, toClinicID int64, patientIDs []int64) error

	// ListAppointments returns the clinic's appointments; a non-empty
	// doctorID narrows to that doctor's schedule.
	ListAppointments(ctx context.Context, clinicID int64, doctorID string) ([]*Appointment, error)
	CreateAppointment(ctx context.Context, clinicID int64, a *Appointment) error
	SetAppointmentStatus(ctx context.Context, clinicID, id int64, status AppointmentStatus) error

	// CreateVisit verifies the appointment belongs to the clinic and to the
	// acting doctor, records the visit and marks the appointment completed.
	CreateVisit(ctx context.Context, clinicID int64, doctorID string, v *Visit) error

	CreatePrescription(ctx context.Context, clinicID int64, p *Prescription) error

	ListInvoices(ctx context.Context, clinicID int64) ([]*Invoice, error)
	CreateInvoice(ctx context.Context, clinicID int64, inv *Invoice) error
	SetInvoiceStatus(ctx context.Context, clinicID, id int64, status PaymentStatus) error

	// DashboardStats aggregates for the given day; a non-empty doctorID
	// narrows the appointment count, and includeInvoices gates the pending
	// invoice count to billing-capable roles.
	DashboardStats(ctx context.Context, clinicID int64, doctorID string, day time.Time, includeInvoices bool) (DashboardStats, error)
}
