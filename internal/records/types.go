// Package records defines the clinic-scoped domain entities and the store
// contract they are read and written through. Every operation takes the
// acting membership's clinic id as an explicit parameter; request bodies
// never supply it.
package records

import "time"

// AppointmentStatus tracks an appointment through its lifecycle.
type AppointmentStatus string

const (
	AppointmentBooked    AppointmentStatus = "booked"
	AppointmentCheckedIn AppointmentStatus = "checked_in"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentBooked, AppointmentCheckedIn, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks invoice settlement.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether the status is a known value.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}

type Patient struct {
	ID             int64     `json:"id"`
	ClinicID       int64     `json:"clinic_id"`
	PrincipalID    string    `json:"principal_id,omitempty"`
	FullName       string    `json:"full_name"`
	Gender         string    `json:"gender,omitempty"`
	DateOfBirth    string    `json:"date_of_birth,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Address        string    `json:"address,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Appointment struct {
	ID              int64             `json:"id"`
	ClinicID        int64             `json:"clinic_id"`
	PatientID       int64             `json:"patient_id"`
	DoctorID        string            `json:"doctor_id"`
	AppointmentDate time.Time         `json:"appointment_date"`
	Reason          string            `json:"reason,omitempty"`
	Status          AppointmentStatus `json:"status"`
	PatientName     string            `json:"patient_name,omitempty"`
	DoctorName      string            `json:"doctor_name,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type Visit struct {
	ID            int64     `json:"id"`
	ClinicID      int64     `json:"clinic_id"`
	AppointmentID int64     `json:"appointment_id"`
	Diagnosis     string    `json:"diagnosis,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	FollowUpDate  string    `json:"follow_up_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Prescription struct {
	ID           int64     `json:"id"`
	ClinicID     int64     `json:"clinic_id"`
	VisitID      int64     `json:"visit_id"`
	MedicineName string    `json:"medicine_name"`
	Dosage       string    `json:"dosage,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Invoice struct {
	ID            int64         `json:"id"`
	ClinicID      int64         `json:"clinic_id"`
	PatientID     int64         `json:"patient_id"`
	AmountCents   int64         `json:"amount_cents"`
	IssuedAt      time.Time     `json:"issued_at"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Description   string        `json:"description,omitempty"`
	PatientName   string        `json:"patient_name,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// DashboardStats summarizes one clinic for its landing page.
type DashboardStats struct {
	TotalPatients     int64 `json:"total_patients"`
	TodayAppointments int64 `json:"today_appointments"`
	PendingInvoices   int64 `json:"pending_invoices"`
}
