package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediflow.org/internal/records"
)

var _ records.Store = (*recordStore)(nil)

type recordStore struct{ db *sql.DB }

// Patients -----------------------------------------------------------------

func (s *recordStore) ListPatients(ctx context.Context, clinicID int64) ([]*records.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, clinic_id, coalesce(principal_id,''), full_name, gender,
		       coalesce(to_char(date_of_birth,'YYYY-MM-DD'),''), phone, email,
		       address, medical_history, created_at, updated_at
		from patients
		where clinic_id = $1
		order by created_at desc`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*records.Patient
	for rows.Next() {
		var p records.Patient
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.PrincipalID, &p.FullName, &p.Gender,
			&p.DateOfBirth, &p.Phone, &p.Email, &p.Address, &p.MedicalHistory,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

func (s *recordStore) CreatePatient(ctx context.Context, clinicID int64, p *records.Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("%w: full name required", records.ErrInvalidInput)
	}
	p.ClinicID = clinicID
	var principal any
	if p.PrincipalID != "" {
		principal = p.PrincipalID
	}
	return s.db.QueryRowContext(ctx, `
		insert into patients(clinic_id, principal_id, full_name, gender, date_of_birth,
		                     phone, email, address, medical_history)
		values ($1,$2,$3,$4,nullif($5,'')::date,$6,$7,$8,$9)
		returning id, created_at, updated_at`,
		clinicID, principal, p.FullName, p.Gender, p.DateOfBirth,
		p.Phone, p.Email, p.Address, p.MedicalHistory,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// TransferPatients moves the patients and every dependent row to the target
// clinic in one transaction. The count check up front rejects ids that are
// missing or homed in a different clinic before anything is touched.
func (s *recordStore) TransferPatients(ctx context.Context, fromClinicID, toClinicID int64, patientIDs []int64) error {
	if len(patientIDs) == 0 {
		return fmt.Errorf("%w: no patients given", records.ErrInvalidInput)
	}
	if fromClinicID == toClinicID {
		return fmt.Errorf("%w: source and target clinic are the same", records.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var dummy int
	if err := tx.QueryRowContext(ctx, `select 1 from clinics where id=$1`, toClinicID).Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.ErrNotFound
		}
		return err
	}

	var owned int
	err = tx.QueryRowContext(ctx, `
		select count(*) from patients
		where clinic_id = $1 and id = any($2)`, fromClinicID, patientIDs).Scan(&owned)
	if err != nil {
		return err
	}
	if owned != len(patientIDs) {
		return records.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		update prescriptions set clinic_id = $1, updated_at = now()
		where visit_id in (
			select v.id from visits v
			join appointments a on a.id = v.appointment_id
			where a.patient_id = any($2) and v.clinic_id = $3
		)`, toClinicID, patientIDs, fromClinicID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		update visits set clinic_id = $1, updated_at = now()
		where appointment_id in (
			select id from appointments where patient_id = any($2)
		) and clinic_id = $3`, toClinicID, patientIDs, fromClinicID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		update appointments set clinic_id = $1, updated_at = now()
		where patient_id = any($2) and clinic_id = $3`, toClinicID, patientIDs, fromClinicID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		update invoices set clinic_id = $1, updated_at = now()
		where patient_id = any($2) and clinic_id = $3`, toClinicID, patientIDs, fromClinicID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		update patients set clinic_id = $1, updated_at = now()
		where id = any($2) and clinic_id = $3`, toClinicID, patientIDs, fromClinicID); err != nil {
		return err
	}

	return tx.Commit()
}

// Appointments -------------------------------------------------------------

const appointmentColumns = `a.id, a.clinic_id, a.patient_id, a.doctor_id, a.appointment_date,
	a.reason, a.status, coalesce(p.full_name,''), coalesce(m.full_name,''), a.created_at, a.updated_at`

func (s *recordStore) ListAppointments(ctx context.Context, clinicID int64, doctorID string) ([]*records.Appointment, error) {
	query := `
		select ` + appointmentColumns + `
		from appointments a
		left join patients p on p.id = a.patient_id
		left join clinic_memberships m on m.principal_id = a.doctor_id
		where a.clinic_id = $1`
	args := []any{clinicID}
	if doctorID != "" {
		query += ` and a.doctor_id = $2`
		args = append(args, doctorID)
	}
	query += ` order by a.appointment_date desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*records.Appointment
	for rows.Next() {
		var a records.Appointment
		if err := rows.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.DoctorID, &a.AppointmentDate,
			&a.Reason, &a.Status, &a.PatientName, &a.DoctorName, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &a)
	}
	return res, rows.Err()
}

func (s *recordStore) CreateAppointment(ctx context.Context, clinicID int64, a *records.Appointment) error {
	if a.PatientID <= 0 || a.DoctorID == "" || a.AppointmentDate.IsZero() {
		return fmt.Errorf("%w: patient, doctor and date required", records.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Both the patient and the doctor must belong to this clinic.
	var dummy int
	err = tx.QueryRowContext(ctx,
		`select 1 from patients where id = $1 and clinic_id = $2`,
		a.PatientID, clinicID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return records.ErrNotFound
	}
	if err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx,
		`select 1 from clinic_memberships where principal_id = $1 and clinic_id = $2 and role = 'doctor'`,
		a.DoctorID, clinicID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return records.ErrNotFound
	}
	if err != nil {
		return err
	}

	a.ClinicID = clinicID
	if a.Status == "" {
		a.Status = records.AppointmentBooked
	}
	err = tx.QueryRowContext(ctx, `
		insert into appointments(clinic_id, patient_id, doctor_id, appointment_date, reason, status)
		values ($1,$2,$3,$4,$5,$6)
		returning id, created_at, updated_at`,
		clinicID, a.PatientID, a.DoctorID, a.AppointmentDate, a.Reason, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *recordStore) SetAppointmentStatus(ctx context.Context, clinicID, id int64, status records.AppointmentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", records.ErrInvalidInput, status)
	}
	res, err := s.db.ExecContext(ctx, `
		update appointments set status = $1, updated_at = now()
		where id = $2 and clinic_id = $3`, status, id, clinicID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

// Visits and prescriptions -------------------------------------------------

func (s *recordStore) CreateVisit(ctx context.Context, clinicID int64, doctorID string, v *records.Visit) error {
	if v.AppointmentID <= 0 {
		return fmt.Errorf("%w: appointment required", records.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// The appointment must belong to this clinic and to the acting doctor.
	var dummy int
	err = tx.QueryRowContext(ctx,
		`select 1 from appointments where id = $1 and clinic_id = $2 and doctor_id = $3`,
		v.AppointmentID, clinicID, doctorID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return records.ErrNotFound
	}
	if err != nil {
		return err
	}

	v.ClinicID = clinicID
	err = tx.QueryRowContext(ctx, `
		insert into visits(clinic_id, appointment_id, diagnosis, notes, follow_up_date)
		values ($1,$2,$3,$4,nullif($5,'')::date)
		returning id, created_at, updated_at`,
		clinicID, v.AppointmentID, v.Diagnosis, v.Notes, v.FollowUpDate,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		update appointments set status = 'completed', updated_at = now()
		where id = $1`, v.AppointmentID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *recordStore) CreatePrescription(ctx context.Context, clinicID int64, p *records.Prescription) error {
	if p.VisitID <= 0 || p.MedicineName == "" {
		return fmt.Errorf("%w: visit and medicine required", records.ErrInvalidInput)
	}

	var dummy int
	err := s.db.QueryRowContext(ctx,
		`select 1 from visits where id = $1 and clinic_id = $2`,
		p.VisitID, clinicID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return records.ErrNotFound
	}
	if err != nil {
		return err
	}

	p.ClinicID = clinicID
	return s.db.QueryRowContext(ctx, `
		insert into prescriptions(clinic_id, visit_id, medicine_name, dosage, duration)
		values ($1,$2,$3,$4,$5)
		returning id, created_at, updated_at`,
		clinicID, p.VisitID, p.MedicineName, p.Dosage, p.Duration,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Invoices -----------------------------------------------------------------

func (s *recordStore) ListInvoices(ctx context.Context, clinicID int64) ([]*records.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		select i.id, i.clinic_id, i.patient_id, i.amount_cents, i.issued_at,
		       i.payment_status, i.description, coalesce(p.full_name,''),
		       i.created_at, i.updated_at
		from invoices i
		left join patients p on p.id = i.patient_id
		where i.clinic_id = $1
		order by i.created_at desc`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*records.Invoice
	for rows.Next() {
		var inv records.Invoice
		if err := rows.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.AmountCents, &inv.IssuedAt,
			&inv.PaymentStatus, &inv.Description, &inv.PatientName,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &inv)
	}
	return res, rows.Err()
}

func (s *recordStore) CreateInvoice(ctx context.Context, clinicID int64, inv *records.Invoice) error {
	if inv.PatientID <= 0 || inv.AmountCents <= 0 {
		return fmt.Errorf("%w: patient and positive amount required", records.ErrInvalidInput)
	}

	var dummy int
	err := s.db.QueryRowContext(ctx,
		`select 1 from patients where id = $1 and clinic_id = $2`,
		inv.PatientID, clinicID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return records.ErrNotFound
	}
	if err != nil {
		return err
	}

	inv.ClinicID = clinicID
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = records.PaymentPending
	}
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = time.Now().UTC()
	}
	return s.db.QueryRowContext(ctx, `
		insert into invoices(clinic_id, patient_id, amount_cents, issued_at, payment_status, description)
		values ($1,$2,$3,$4,$5,$6)
		returning id, created_at, updated_at`,
		clinicID, inv.PatientID, inv.AmountCents, inv.IssuedAt, inv.PaymentStatus, inv.Description,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

func (s *recordStore) SetInvoiceStatus(ctx context.Context, clinicID, id int64, status records.PaymentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", records.ErrInvalidInput, status)
	}
	res, err := s.db.ExecContext(ctx, `
		update invoices set payment_status = $1, updated_at = now()
		where id = $2 and clinic_id = $3`, status, id, clinicID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

// Dashboard ----------------------------------------------------------------

func (s *recordStore) DashboardStats(ctx context.Context, clinicID int64, doctorID string, day time.Time, includeInvoices bool) (records.DashboardStats, error) {
	var stats records.DashboardStats

	err := s.db.QueryRowContext(ctx,
		`select count(*) from patients where clinic_id = $1`, clinicID).Scan(&stats.TotalPatients)
	if err != nil {
		return records.DashboardStats{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	query := `
		select count(*) from appointments
		where clinic_id = $1 and appointment_date >= $2 and appointment_date < $3`
	args := []any{clinicID, start, end}
	if doctorID != "" {
		query += ` and doctor_id = $4`
		args = append(args, doctorID)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.TodayAppointments); err != nil {
		return records.DashboardStats{}, err
	}

	if includeInvoices {
		err := s.db.QueryRowContext(ctx,
			`select count(*) from invoices where clinic_id = $1 and payment_status = 'pending'`,
			clinicID).Scan(&stats.PendingInvoices)
		if err != nil {
			return records.DashboardStats{}, err
		}
	}

	return stats, nil
}
