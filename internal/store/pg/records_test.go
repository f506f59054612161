package pg

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"mediflow.org/internal/records"
)

// passthrough lets slice parameters (patient id lists) reach the mock
// unconverted, the way the pgx driver accepts them.
type passthrough struct{}

func (passthrough) ConvertValue(v any) (driver.Value, error) { return v, nil }

func newRecordMock(t *testing.T) (*recordStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &recordStore{db: db}, mock
}

func TestTransferPatientsRejectsForeignRows(t *testing.T) {
	store, mock := newRecordMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from clinics").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	// Two ids requested, only one homed in the source clinic.
	mock.ExpectQuery("select count").
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := store.TransferPatients(context.Background(), 1, 2, []int64{10, 11})
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransferPatientsMovesAllDependents(t *testing.T) {
	store, mock := newRecordMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from clinics").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("select count").
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("update prescriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update visits").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update appointments").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("update invoices").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("update patients").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := store.TransferPatients(context.Background(), 1, 2, []int64{10, 11}); err != nil {
		t.Fatalf("TransferPatients: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAppointmentRejectsForeignPatient(t *testing.T) {
	store, mock := newRecordMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from patients").
		WithArgs(int64(10), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	err := store.CreateAppointment(context.Background(), 3, &records.Appointment{
		PatientID:       10,
		DoctorID:        "doc1",
		AppointmentDate: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateVisitMarksAppointmentCompleted(t *testing.T) {
	store, mock := newRecordMock(t)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from appointments").
		WithArgs(int64(5), int64(3), "doc1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("insert into visits").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))
	mock.ExpectExec("update appointments set status = 'completed'").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v := &records.Visit{AppointmentID: 5, Diagnosis: "flu"}
	if err := store.CreateVisit(context.Background(), 3, "doc1", v); err != nil {
		t.Fatalf("CreateVisit: %v", err)
	}
	if v.ID != 1 || v.ClinicID != 3 {
		t.Fatalf("unexpected visit: %+v", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetAppointmentStatusScopedToClinic(t *testing.T) {
	store, mock := newRecordMock(t)

	mock.ExpectExec("update appointments").
		WithArgs(records.AppointmentCancelled, int64(5), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetAppointmentStatus(context.Background(), 99, 5, records.AppointmentCancelled)
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign clinic, got %v", err)
	}
}

func TestSetAppointmentStatusRejectsUnknownValue(t *testing.T) {
	store, _ := newRecordMock(t)

	err := store.SetAppointmentStatus(context.Background(), 3, 5, "rescheduled")
	if !errors.Is(err, records.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
