package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

var visitColumns = []string{"id", "patient_id", "clinic_id", "stn", "department", "visit_date",
	"status", "payment_status", "doctor_id", "qr_payload", "created_at", "updated_at",
	"uid", "name", "phone", "age", "doctor_name"}

func newVisit() *Visit {
	return &Visit{
		ID: uuid.New(), PatientID: uuid.New(), ClinicID: "CLN1", Department: "general",
		VisitDate: "2026-03-07", Status: StatusWaiting, PaymentStatus: PaymentPayAtClinic, QRPayload: "{}",
	}
}

func TestVisitRepo_Create_AssignsSTN(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	v := newVisit()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO visits (.+) SELECT (.+) COALESCE\(MAX\(stn\), 0\) \+ 1`).
		WithArgs(v.ID, v.PatientID, "CLN1", "general", "2026-03-07", StatusWaiting, PaymentPayAtClinic, v.DoctorID, "{}").
		WillReturnRows(pgxmock.NewRows([]string{"stn", "created_at", "updated_at"}).AddRow(7, now, now))

	if err := repo.Create(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.STN != 7 {
		t.Errorf("expected STN 7, got %d", v.STN)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestVisitRepo_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	v := newVisit()

	mock.ExpectQuery("INSERT INTO visits").
		WithArgs(v.ID, v.PatientID, "CLN1", "general", "2026-03-07", StatusWaiting, PaymentPayAtClinic, v.DoctorID, "{}").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	if err := repo.Create(context.Background(), v); err != ErrSTNTaken {
		t.Errorf("expected ErrSTNTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestVisitRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	id := uuid.New()
	now := time.Now()
	uid, name, phone := "CLN1-A1", "Asha", "9999999999"

	mock.ExpectQuery(`FROM visits v (.+) WHERE v.id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(visitColumns).
			AddRow(id, uuid.New(), "CLN1", 3, "general", "2026-03-07", StatusWaiting, PaymentPaid,
				nil, "{}", now, now, &uid, &name, &phone, nil, nil))

	v, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.STN != 3 || v.Patient == nil || v.Patient.UID != "CLN1-A1" || v.DoctorName != nil {
		t.Errorf("unexpected visit %+v", v)
	}
}

func TestVisitRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	id := uuid.New()
	mock.ExpectQuery(`FROM visits v (.+) WHERE v.id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	if !apperr.Is(err, apperr.KindNotFound) || apperr.Message(err) != "Visit not found" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestVisitRepo_UpdateStatus_Stale(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	id := uuid.New()

	mock.ExpectExec(`UPDATE visits SET status = \$3, (.+) WHERE id = \$1 AND status = \$2`).
		WithArgs(id, StatusWaiting, StatusInService, (*uuid.UUID)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), id, StatusWaiting, StatusInService, nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestVisitRepo_List_Filters(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM visits v (.+) v.visit_date = \$1::date AND v.department = \$2 AND v.status = ANY\(\$3\) AND \(p.name ILIKE \$4 (.+) v.stn::text = \$5\)`).
		WithArgs("2026-03-07", "general", []string{StatusWaiting}, "%12%", "12").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY v.visit_date DESC, v.stn ASC LIMIT \$6 OFFSET \$7`).
		WithArgs("2026-03-07", "general", []string{StatusWaiting}, "%12%", "12", 50, 0).
		WillReturnRows(pgxmock.NewRows(visitColumns))

	items, total, err := repo.List(context.Background(), VisitFilter{
		Date: "2026-03-07", Department: "general", Statuses: []string{StatusWaiting}, Search: "12", Limit: 50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected empty result, got %d %v", total, items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestVisitRepo_Counts(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)

	mock.ExpectQuery(`COALESCE\(MAX\(stn\) FILTER`).
		WithArgs("general", "2026-03-07").
		WillReturnRows(pgxmock.NewRows([]string{"now_serving", "waiting", "checked_in", "in_service", "completed", "held", "expired"}).
			AddRow(4, 3, 1, 1, 3, 0, 1))

	c, err := repo.Counts(context.Background(), "general", "2026-03-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Counts{NowServing: 4, Waiting: 3, CheckedIn: 1, InService: 1, Completed: 3, Expired: 1}
	if *c != want {
		t.Errorf("counts = %+v, want %+v", *c, want)
	}
}
