package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ q db.DBTX }

func NewPatientRepoPG(q db.DBTX) PatientRepository { return &patientRepoPG{q: q} }

func (r *patientRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const patientCols = `id, uid, name, age, phone, email, address, emergency_contact,
	blood_group, allergies, medical_conditions, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UID, &p.Name, &p.Age, &p.Phone, &p.Email, &p.Address,
		&p.EmergencyContact, &p.BloodGroup, &p.Allergies, &p.MedicalConditions,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Patient")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.MedicalConditions == nil {
		p.MedicalConditions = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, uid, name, age, phone, email, address, emergency_contact,
			blood_group, allergies, medical_conditions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.UID, p.Name, p.Age, p.Phone, p.Email, p.Address, p.EmergencyContact,
		p.BloodGroup, p.Allergies, p.MedicalConditions).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByUID(ctx context.Context, uid string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE uid = $1`, uid))
}

// GetByPhone returns the oldest patient registered with phone.
func (r *patientRepoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE phone = $1 ORDER BY created_at LIMIT 1`, phone))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, age=$3, phone=$4, email=$5, address=$6, emergency_contact=$7,
			blood_group=$8, allergies=$9, medical_conditions=$10, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Phone, p.Email, p.Address, p.EmergencyContact,
		p.BloodGroup, p.Allergies, p.MedicalConditions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Patient")
	}
	return nil
}

// Search matches name or UID case-insensitively, or phone as a substring.
func (r *patientRepoPG) Search(ctx context.Context, params SearchParams) ([]*Patient, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if params.Query != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR phone LIKE $%d OR uid ILIKE $%d)`, idx, idx, idx)
		args = append(args, db.ContainsPattern(params.Query))
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) ListVisits(ctx context.Context, patientID uuid.UUID) ([]*VisitSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT v.id, v.stn, v.department, to_char(v.visit_date, 'YYYY-MM-DD'), v.status,
			v.payment_status, d.name, v.created_at
		FROM visits v
		LEFT JOIN doctors d ON d.id = v.doctor_id
		WHERE v.patient_id = $1
		ORDER BY v.created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*VisitSummary
	for rows.Next() {
		var v VisitSummary
		if err := rows.Scan(&v.ID, &v.STN, &v.Department, &v.VisitDate, &v.Status,
			&v.PaymentStatus, &v.DoctorName, &v.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &v)
	}
	return items, rows.Err()
}

// =========== History Repository ===========

type historyRepoPG struct{ q db.DBTX }

func NewHistoryRepoPG(q db.DBTX) HistoryRepository { return &historyRepoPG{q: q} }

func (r *historyRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const historySelect = `
	SELECT h.id, h.patient_uid, h.visit_id, h.doctor_id, h.diagnosis, h.prescription, h.notes,
		h.created_at, d.name, d.specialization, d.qualification, d.experience_years,
		v.stn, v.department, to_char(v.visit_date, 'YYYY-MM-DD')
	FROM medical_history h
	LEFT JOIN doctors d ON d.id = h.doctor_id
	LEFT JOIN visits v ON v.id = h.visit_id`

func scanHistory(row pgx.Row) (*MedicalHistory, error) {
	var h MedicalHistory
	var (
		docName, docSpec, docQual *string
		docExp                    *int
		stn                       *int
		dept, visitDate           *string
	)
	err := row.Scan(&h.ID, &h.PatientUID, &h.VisitID, &h.DoctorID, &h.Diagnosis, &h.Prescription,
		&h.Notes, &h.CreatedAt, &docName, &docSpec, &docQual, &docExp, &stn, &dept, &visitDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prescription")
	}
	if err != nil {
		return nil, err
	}
	if docName != nil {
		h.Doctor = &DoctorRef{Name: *docName, Qualification: docQual}
		if docSpec != nil {
			h.Doctor.Specialization = *docSpec
		}
		if docExp != nil {
			h.Doctor.ExperienceYears = *docExp
		}
	}
	if stn != nil && dept != nil {
		h.Visit = &VisitRef{STN: *stn, Department: *dept}
		if visitDate != nil {
			h.Visit.VisitDate = *visitDate
		}
	}
	return &h, nil
}

func (r *historyRepoPG) Create(ctx context.Context, h *MedicalHistory) error {
	h.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_history (id, patient_uid, visit_id, doctor_id, diagnosis, prescription, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		h.ID, h.PatientUID, h.VisitID, h.DoctorID, h.Diagnosis, h.Prescription, h.Notes).Scan(&h.CreatedAt)
}

func (r *historyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalHistory, error) {
	return scanHistory(r.conn(ctx).QueryRow(ctx, historySelect+` WHERE h.id = $1`, id))
}

func (r *historyRepoPG) ListByPatientUID(ctx context.Context, uid string) ([]*MedicalHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, historySelect+` WHERE h.patient_uid = $1 ORDER BY h.created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MedicalHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
