package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

func notFound(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}
	return err
}

// =========== Department Repository ===========

type departmentRepoPG struct{ q db.DBTX }

func NewDepartmentRepoPG(q db.DBTX) DepartmentRepository { return &departmentRepoPG{q: q} }

func (r *departmentRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const deptCols = `id, name, display_name, description, consultation_fee,
	average_consultation_time, color_code, is_active, created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.DisplayName, &d.Description, &d.ConsultationFee,
		&d.AverageConsultationTime, &d.ColorCode, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "department")
	}
	return &d, nil
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO departments (id, name, display_name, description, consultation_fee,
			average_consultation_time, color_code, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.DisplayName, d.Description, d.ConsultationFee,
		d.AverageConsultationTime, d.ColorCode, d.IsActive).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE id = $1`, id))
}

func (r *departmentRepoPG) GetByName(ctx context.Context, name string) (*Department, error) {
	return scanDepartment(r.conn(ctx).QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE name = $1`, name))
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE departments SET display_name=$2, description=$3, consultation_fee=$4,
			average_consultation_time=$5, color_code=$6, is_active=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.DisplayName, d.Description, d.ConsultationFee,
		d.AverageConsultationTime, d.ColorCode, d.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("department")
	}
	return nil
}

func (r *departmentRepoPG) List(ctx context.Context, activeOnly bool) ([]*Department, error) {
	query := `SELECT ` + deptCols + ` FROM departments`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY display_name`
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ q db.DBTX }

func NewDoctorRepoPG(q db.DBTX) DoctorRepository { return &doctorRepoPG{q: q} }

func (r *doctorRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const doctorCols = `id, name, specialization, qualification, experience_years,
	consultation_fee, status, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.Qualification, &d.ExperienceYears,
		&d.ConsultationFee, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "doctor")
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, name, specialization, qualification, experience_years,
			consultation_fee, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Specialization, d.Qualification, d.ExperienceYears,
		d.ConsultationFee, d.Status).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET name=$2, specialization=$3, qualification=$4, experience_years=$5,
			consultation_fee=$6, status=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Specialization, d.Qualification, d.ExperienceYears,
		d.ConsultationFee, d.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE doctors SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter) ([]*Doctor, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Specialization != "" {
		query += fmt.Sprintf(` AND specialization = $%d`, idx)
		args = append(args, f.Specialization)
		idx++
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// =========== Setting Repository ===========

type settingRepoPG struct{ q db.DBTX }

func NewSettingRepoPG(q db.DBTX) SettingRepository { return &settingRepoPG{q: q} }

func (r *settingRepoPG) conn(ctx context.Context) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.q
}

const settingCols = `id, setting_key, setting_value, setting_type, description, created_at, updated_at`

func scanSetting(row pgx.Row) (*Setting, error) {
	var s Setting
	var raw []byte
	err := row.Scan(&s.ID, &s.Key, &raw, &s.Type, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "setting")
	}
	s.Value = raw
	return &s, nil
}

func (r *settingRepoPG) List(ctx context.Context) ([]*Setting, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+settingCols+` FROM clinic_settings ORDER BY setting_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *settingRepoPG) Get(ctx context.Context, key string) (*Setting, error) {
	return scanSetting(r.conn(ctx).QueryRow(ctx, `SELECT `+settingCols+` FROM clinic_settings WHERE setting_key = $1`, key))
}

func (r *settingRepoPG) Upsert(ctx context.Context, s *Setting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinic_settings (id, setting_key, setting_value, setting_type, description)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value,
			setting_type = EXCLUDED.setting_type,
			description = COALESCE(EXCLUDED.description, clinic_settings.description),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		s.ID, s.Key, []byte(s.Value), s.Type, s.Description).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}
