package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

// ErrSTNTaken is returned when a concurrent booking claimed the same STN.
var ErrSTNTaken = apperr.Conflict("token number already taken")

type visitRepoPG struct{ q db.DBTX }

func NewVisitRepoPG(q db.DBTX) VisitRepository { return &visitRepoPG{q: q} }

func (r *visitRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const visitSelect = `
	SELECT v.id, v.patient_id, v.clinic_id, v.stn, v.department, to_char(v.visit_date, 'YYYY-MM-DD'),
		v.status, v.payment_status, v.doctor_id, v.qr_payload, v.created_at, v.updated_at,
		p.uid, p.name, p.phone, p.age, d.name
	FROM visits v
	LEFT JOIN patients p ON p.id = v.patient_id
	LEFT JOIN doctors d ON d.id = v.doctor_id`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	var (
		uid, name, phone *string
		age              *int
	)
	err := row.Scan(&v.ID, &v.PatientID, &v.ClinicID, &v.STN, &v.Department, &v.VisitDate,
		&v.Status, &v.PaymentStatus, &v.DoctorID, &v.QRPayload, &v.CreatedAt, &v.UpdatedAt,
		&uid, &name, &phone, &age, &v.DoctorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Visit")
	}
	if err != nil {
		return nil, err
	}
	if uid != nil {
		v.Patient = &PatientRef{UID: *uid, Age: age}
		if name != nil {
			v.Patient.Name = *name
		}
		if phone != nil {
			v.Patient.Phone = *phone
		}
	}
	return &v, nil
}

// Create computes the STN inside the INSERT so the read and the write are
// one statement. The unique index on (department, visit_date, stn) rejects a
// concurrent duplicate with ErrSTNTaken.
func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visits (id, patient_id, clinic_id, stn, department, visit_date, status,
			payment_status, doctor_id, qr_payload)
		SELECT $1, $2, $3, COALESCE(MAX(stn), 0) + 1, $4, $5::date, $6, $7, $8, $9
		FROM visits WHERE department = $4 AND visit_date = $5::date
		RETURNING stn, created_at, updated_at`,
		v.ID, v.PatientID, v.ClinicID, v.Department, v.VisitDate, v.Status,
		v.PaymentStatus, v.DoctorID, v.QRPayload).Scan(&v.STN, &v.CreatedAt, &v.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSTNTaken
	}
	return err
}

func (r *visitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx, visitSelect+` WHERE v.id = $1`, id))
}

func (r *visitRepoPG) GetBySTN(ctx context.Context, department, date string, stn int) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		visitSelect+` WHERE v.department = $1 AND v.visit_date = $2::date AND v.stn = $3`,
		department, date, stn))
}

func (r *visitRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, doctorID *uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visits SET status = $3, doctor_id = COALESCE($4, doctor_id), updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("visit is no longer %s", from)
	}
	return nil
}

func (r *visitRepoPG) List(ctx context.Context, f VisitFilter) ([]*Visit, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Date != "" {
		where += fmt.Sprintf(` AND v.visit_date = $%d::date`, idx)
		args = append(args, f.Date)
		idx++
	}
	if f.Department != "" {
		where += fmt.Sprintf(` AND v.department = $%d`, idx)
		args = append(args, f.Department)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND v.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if len(f.Statuses) > 0 {
		where += fmt.Sprintf(` AND v.status = ANY($%d)`, idx)
		args = append(args, f.Statuses)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(` AND (p.name ILIKE $%d OR p.phone LIKE $%d OR p.uid ILIKE $%d OR v.stn::text = $%d)`,
			idx, idx, idx, idx+1)
		args = append(args, db.ContainsPattern(f.Search), f.Search)
		idx += 2
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM visits v LEFT JOIN patients p ON p.id = v.patient_id` + where
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := visitSelect + where + ` ORDER BY v.visit_date DESC, v.stn ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

// Counts treats the highest STN already called (in service or completed)
// as now serving.
func (r *visitRepoPG) Counts(ctx context.Context, department, date string) (*Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(stn) FILTER (WHERE status IN ('in_service', 'completed')), 0),
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'checked_in'),
			COUNT(*) FILTER (WHERE status = 'in_service'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'held'),
			COUNT(*) FILTER (WHERE status = 'expired')
		FROM visits WHERE department = $1 AND visit_date = $2::date`,
		department, date).Scan(&c.NowServing, &c.Waiting, &c.CheckedIn, &c.InService,
		&c.Completed, &c.Held, &c.Expired)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
