package patient

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

var patientColumns = []string{"id", "uid", "name", "age", "phone", "email", "address",
	"emergency_contact", "blood_group", "allergies", "medical_conditions", "created_at", "updated_at"}

var historyColumns = []string{"id", "patient_uid", "visit_id", "doctor_id", "diagnosis", "prescription",
	"notes", "created_at", "name", "specialization", "qualification", "experience_years",
	"stn", "department", "visit_date"}

func TestPatientRepo_GetByUID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPatientRepoPG(mock)

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE uid =").
		WithArgs("CLN1-NOPE").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByUID(context.Background(), "CLN1-NOPE")
	if !apperr.Is(err, apperr.KindNotFound) || apperr.Message(err) != "Patient not found" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestPatientRepo_Search(t *testing.T) {
	mock := newMock(t)
	repo := NewPatientRepoPG(mock)
	now := time.Now()
	age := 30

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM patients WHERE 1=1 AND \(name ILIKE \$1`).
		WithArgs(`%50\%%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT (.+) FROM patients WHERE 1=1 (.+) LIMIT \$2 OFFSET \$3`).
		WithArgs(`%50\%%`, 20, 0).
		WillReturnRows(pgxmock.NewRows(patientColumns).
			AddRow(uuid.New(), "CLN1-A1", "Asha 50%", &age, "9876543210", nil, nil, nil, nil,
				[]string{}, []string{"asthma"}, now, now))

	items, total, err := repo.Search(context.Background(), SearchParams{Query: "50%", Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].MedicalConditions[0] != "asthma" {
		t.Errorf("unexpected result total=%d items=%v", total, items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPatientRepo_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPatientRepoPG(mock)
	p := &Patient{ID: uuid.New(), Name: "Asha", Phone: "9876543210"}

	mock.ExpectExec("UPDATE patients SET").
		WithArgs(p.ID, p.Name, p.Age, p.Phone, p.Email, p.Address, p.EmergencyContact,
			p.BloodGroup, p.Allergies, p.MedicalConditions).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Update(context.Background(), p); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHistoryRepo_ListByPatientUID_Joins(t *testing.T) {
	mock := newMock(t)
	repo := NewHistoryRepoPG(mock)
	now := time.Now()
	diag := "Flu"
	docName, specialty := "Dr. Mehta", "general"
	exp, stn := 12, 4
	dept, date := "general", "2026-03-07"

	mock.ExpectQuery("FROM medical_history h (.+) WHERE h.patient_uid =").
		WithArgs("CLN1-A1").
		WillReturnRows(pgxmock.NewRows(historyColumns).
			AddRow(uuid.New(), "CLN1-A1", nil, nil, &diag, nil, nil, now,
				&docName, &specialty, nil, &exp, &stn, &dept, &date).
			AddRow(uuid.New(), "CLN1-A1", nil, nil, nil, nil, nil, now,
				nil, nil, nil, nil, nil, nil, nil))

	items, err := repo.ListByPatientUID(context.Background(), "CLN1-A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
	if items[0].Doctor == nil || items[0].Doctor.ExperienceYears != 12 || items[0].Visit.STN != 4 {
		t.Errorf("unexpected joined row %+v", items[0])
	}
	if items[1].Doctor != nil || items[1].Visit != nil {
		t.Errorf("expected no refs on unjoined row, got %+v", items[1])
	}
}
