package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

var txnColumns = []string{"id", "visit_id", "patient_id", "amount", "payment_method", "status",
	"transaction_id", "notes", "processed_at", "created_at", "updated_at",
	"uid", "name", "phone", "stn", "department", "display_name", "visit_date", "payment_status",
	"doctor_name", "consultation_fee"}

func TestTransactionRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)
	now := time.Now()
	txn := &Transaction{VisitID: uuid.New(), PatientID: uuid.New(), Amount: 500,
		PaymentMethod: MethodCash, Status: StatusCompleted, ProcessedAt: &now}

	mock.ExpectQuery("INSERT INTO payment_transactions").
		WithArgs(pgxmock.AnyArg(), txn.VisitID, txn.PatientID, 500.0, MethodCash, StatusCompleted,
			txn.TransactionID, txn.Notes, txn.ProcessedAt).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	if err := repo.Create(context.Background(), txn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)
	id := uuid.New()
	now := time.Now()
	uid, name, phone := "CLN1-0001", "Asha Rao", "9876543210"
	stn, dept, deptName, date, pay := 4, "general", "General Medicine", "2026-03-07", "paid"
	fee := 300.0

	mock.ExpectQuery("FROM payment_transactions t LEFT JOIN patients p").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(txnColumns).AddRow(id, uuid.New(), uuid.New(), 500.0, MethodCash, StatusCompleted,
			(*string)(nil), (*string)(nil), &now, now, now,
			&uid, &name, &phone, &stn, &dept, &deptName, &date, &pay, (*string)(nil), &fee))

	txn, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Patient == nil || txn.Patient.Name != name {
		t.Errorf("expected patient ref, got %+v", txn.Patient)
	}
	if txn.Visit == nil || txn.Visit.STN != 4 || txn.Visit.ConsultationFee != 300 || txn.Visit.DoctorName != nil {
		t.Errorf("unexpected visit ref %+v", txn.Visit)
	}
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)

	id := uuid.New()
	mock.ExpectQuery(`FROM payment_transactions t (.+) WHERE t.id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), id); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestTransactionRepo_List_Filters(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)
	f := Filter{Search: "98765", Status: StatusCompleted, Method: MethodUPI, Date: "2026-03", Limit: 20, Offset: 40}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payment_transactions t (.+) t.payment_method = \$3 AND to_char\(t.created_at, (.+)\) LIKE \$4`).
		WithArgs("%98765%", StatusCompleted, MethodUPI, "2026-03%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(`ORDER BY t.created_at DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("%98765%", StatusCompleted, MethodUPI, "2026-03%", 20, 40).
		WillReturnRows(pgxmock.NewRows(txnColumns))

	items, total, err := repo.List(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 41 || len(items) != 0 {
		t.Errorf("unexpected result %d/%d", len(items), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTransactionRepo_UpdateStatus_Stale(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE payment_transactions SET status").
		WithArgs(id, StatusCompleted, StatusRefunded).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateStatus(context.Background(), id, StatusCompleted, StatusRefunded); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestTransactionRepo_Totals(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)

	mock.ExpectQuery(`SUM\(amount\) FILTER`).
		WithArgs("2026-03-07").
		WillReturnRows(pgxmock.NewRows([]string{"total", "today", "pending", "completed"}).AddRow(2150.0, 750.0, 200.0, 5))

	got, err := repo.Totals(context.Background(), "2026-03-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != (Totals{TotalRevenue: 2150, TodayRevenue: 750, PendingAmount: 200, CompletedCount: 5}) {
		t.Errorf("unexpected totals %+v", got)
	}
}

func TestTransactionRepo_MonthlyRevenue(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepoPG(mock)

	mock.ExpectQuery(`GROUP BY month`).
		WithArgs("2025-04-01").
		WillReturnRows(pgxmock.NewRows([]string{"month", "sum"}).AddRow("2025-04", 100.0).AddRow("2026-03", 750.0))

	got, err := repo.MonthlyRevenue(context.Background(), "2025-04-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got["2026-03"] != 750 {
		t.Errorf("unexpected series %v", got)
	}
}

func TestVisitRepo_ListPayAtClinic(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	uid, name, phone := "CLN1-0001", "Asha Rao", "9876543210"

	mock.ExpectQuery(`WHERE v.payment_status = 'pay_at_clinic' ORDER BY v.created_at DESC`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "stn", "department", "display_name",
			"visit_date", "payment_status", "doctor_name", "consultation_fee", "created_at", "uid", "name", "phone"}).
			AddRow(uuid.New(), uuid.New(), 3, "general", "General Medicine", "2026-03-07", "pay_at_clinic",
				(*string)(nil), 300.0, time.Now(), &uid, &name, &phone))

	visits, err := repo.ListPayAtClinic(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 1 || visits[0].STN != 3 || visits[0].Patient == nil || visits[0].ConsultationFee != 300 {
		t.Errorf("unexpected visits %+v", visits)
	}
}

func TestVisitRepo_SetPaymentStatus_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewVisitRepoPG(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE visits SET payment_status").
		WithArgs(id, "paid").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.SetPaymentStatus(context.Background(), id, "paid"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
