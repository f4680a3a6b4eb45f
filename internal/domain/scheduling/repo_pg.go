package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

type appointmentRepoPG struct{ q db.DBTX }

func NewAppointmentRepoPG(q db.DBTX) AppointmentRepository {
	return &appointmentRepoPG{q: q}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const apptFrom = `
	FROM appointments a
	LEFT JOIN patients p ON p.id = a.patient_id
	LEFT JOIN doctors d ON d.id = a.doctor_id`

const apptSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.visit_id,
		to_char(a.appointment_date, 'YYYY-MM-DD'), to_char(a.appointment_time, 'HH24:MI'),
		a.duration_minutes, a.status, a.notes, a.created_at, a.updated_at,
		p.uid, p.name, p.phone, d.name, d.specialization` + apptFrom

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var uid, name, phone, docName, docSpec *string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.VisitID,
		&a.AppointmentDate, &a.AppointmentTime,
		&a.DurationMinutes, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		&uid, &name, &phone, &docName, &docSpec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Appointment")
	}
	if err != nil {
		return nil, err
	}
	if uid != nil {
		a.Patient = &PatientRef{UID: *uid, Name: deref(name), Phone: deref(phone)}
	}
	if docName != nil {
		a.Doctor = &DoctorRef{Name: *docName, Specialization: deref(docSpec)}
	}
	return &a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, visit_id, appointment_date,
			appointment_time, duration_minutes, status, notes)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7, $8, $9)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.VisitID, a.AppointmentDate,
		a.AppointmentTime, a.DurationMinutes, a.Status, a.Notes).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("appointment is no longer %s", from)
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Appointment")
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Search != "" {
		where += fmt.Sprintf(` AND (p.name ILIKE $%d OR p.phone LIKE $%d OR d.name ILIKE $%d)`, idx, idx, idx)
		args = append(args, db.ContainsPattern(f.Search))
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Department != "" {
		where += fmt.Sprintf(` AND d.specialization = $%d`, idx)
		args = append(args, f.Department)
		idx++
	}
	if f.Date != "" {
		where += fmt.Sprintf(` AND a.appointment_date = $%d::date`, idx)
		args = append(args, f.Date)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+apptFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := apptSelect + where + ` ORDER BY a.appointment_date ASC, a.appointment_time ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status IN ('scheduled', 'confirmed')),
			COUNT(*) FILTER (WHERE status IN ('cancelled', 'no_show'))
		FROM appointments`).Scan(&c.Total, &c.Completed, &c.Upcoming, &c.Cancelled)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
