package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

func conn(ctx context.Context, q db.DBTX) db.DBTX {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return q
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// -- Transactions --

type transactionRepoPG struct{ q db.DBTX }

func NewTransactionRepoPG(q db.DBTX) TransactionRepository {
	return &transactionRepoPG{q: q}
}

const txnFrom = `
	FROM payment_transactions t
	LEFT JOIN patients p ON p.id = t.patient_id
	LEFT JOIN visits v ON v.id = t.visit_id
	LEFT JOIN departments dp ON dp.name = v.department
	LEFT JOIN doctors d ON d.id = v.doctor_id`

const txnSelect = `
	SELECT t.id, t.visit_id, t.patient_id, t.amount::float8, t.payment_method, t.status,
		t.transaction_id, t.notes, t.processed_at, t.created_at, t.updated_at,
		p.uid, p.name, p.phone,
		v.stn, v.department, dp.display_name, to_char(v.visit_date, 'YYYY-MM-DD'), v.payment_status,
		d.name, dp.consultation_fee::float8` + txnFrom

func scanTxn(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var uid, name, phone, dept, deptName, visitDate, payStatus, docName *string
	var stn *int
	var fee *float64
	err := row.Scan(&t.ID, &t.VisitID, &t.PatientID, &t.Amount, &t.PaymentMethod, &t.Status,
		&t.TransactionID, &t.Notes, &t.ProcessedAt, &t.CreatedAt, &t.UpdatedAt,
		&uid, &name, &phone,
		&stn, &dept, &deptName, &visitDate, &payStatus,
		&docName, &fee)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Transaction")
	}
	if err != nil {
		return nil, err
	}
	if uid != nil {
		t.Patient = &PatientRef{UID: *uid, Name: deref(name), Phone: deref(phone)}
	}
	if stn != nil {
		t.Visit = &VisitRef{STN: *stn, Department: deref(dept), DepartmentName: deref(deptName),
			VisitDate: deref(visitDate), PaymentStatus: deref(payStatus), DoctorName: docName}
		if fee != nil {
			t.Visit.ConsultationFee = *fee
		}
	}
	return &t, nil
}

func (r *transactionRepoPG) Create(ctx context.Context, t *Transaction) error {
	t.ID = uuid.New()
	return conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO payment_transactions (id, visit_id, patient_id, amount, payment_method,
			status, transaction_id, notes, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		t.ID, t.VisitID, t.PatientID, t.Amount, t.PaymentMethod,
		t.Status, t.TransactionID, t.Notes, t.ProcessedAt).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *transactionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return scanTxn(conn(ctx, r.q).QueryRow(ctx, txnSelect+` WHERE t.id = $1`, id))
}

func (r *transactionRepoPG) List(ctx context.Context, f Filter) ([]*Transaction, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Search != "" {
		where += fmt.Sprintf(` AND (p.name ILIKE $%d OR p.phone LIKE $%d OR t.transaction_id LIKE $%d)`, idx, idx, idx)
		args = append(args, db.ContainsPattern(f.Search))
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND t.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Method != "" {
		where += fmt.Sprintf(` AND t.payment_method = $%d`, idx)
		args = append(args, f.Method)
		idx++
	}
	if f.Date != "" {
		where += fmt.Sprintf(` AND to_char(t.created_at, 'YYYY-MM-DD"T"HH24:MI:SS') LIKE $%d`, idx)
		args = append(args, db.PrefixPattern(f.Date))
		idx++
	}

	var total int
	if err := conn(ctx, r.q).QueryRow(ctx, `SELECT COUNT(*)`+txnFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := txnSelect + where + ` ORDER BY t.created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := conn(ctx, r.q).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *transactionRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := conn(ctx, r.q).Exec(ctx, `
		UPDATE payment_transactions SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("transaction is no longer %s", from)
	}
	return nil
}

func (r *transactionRepoPG) Totals(ctx context.Context, day string) (*Totals, error) {
	var t Totals
	err := conn(ctx, r.q).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0)::float8,
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND created_at::date = $1::date), 0)::float8,
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)::float8,
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM payment_transactions`, day).Scan(&t.TotalRevenue, &t.TodayRevenue, &t.PendingAmount, &t.CompletedCount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepoPG) MonthlyRevenue(ctx context.Context, from string) (map[string]float64, error) {
	rows, err := conn(ctx, r.q).Query(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month, SUM(amount)::float8
		FROM payment_transactions
		WHERE status = 'completed' AND created_at >= $1::date
		GROUP BY month`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var month string
		var revenue float64
		if err := rows.Scan(&month, &revenue); err != nil {
			return nil, err
		}
		out[month] = revenue
	}
	return out, rows.Err()
}

// -- Visits --

type visitRepoPG struct{ q db.DBTX }

func NewVisitRepoPG(q db.DBTX) VisitRepository {
	return &visitRepoPG{q: q}
}

const billableSelect = `
	SELECT v.id, v.patient_id, v.stn, v.department, COALESCE(dp.display_name, v.department),
		to_char(v.visit_date, 'YYYY-MM-DD'), v.payment_status, d.name,
		COALESCE(dp.consultation_fee, 0)::float8, v.created_at,
		p.uid, p.name, p.phone
	FROM visits v
	LEFT JOIN departments dp ON dp.name = v.department
	LEFT JOIN doctors d ON d.id = v.doctor_id
	LEFT JOIN patients p ON p.id = v.patient_id`

func scanBillable(row pgx.Row) (*BillableVisit, error) {
	var v BillableVisit
	var uid, name, phone *string
	err := row.Scan(&v.ID, &v.PatientID, &v.STN, &v.Department, &v.DepartmentName,
		&v.VisitDate, &v.PaymentStatus, &v.DoctorName,
		&v.ConsultationFee, &v.CreatedAt,
		&uid, &name, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Visit")
	}
	if err != nil {
		return nil, err
	}
	if uid != nil {
		v.Patient = &PatientRef{UID: *uid, Name: deref(name), Phone: deref(phone)}
	}
	return &v, nil
}

func (r *visitRepoPG) GetVisit(ctx context.Context, id uuid.UUID) (*BillableVisit, error) {
	return scanBillable(conn(ctx, r.q).QueryRow(ctx, billableSelect+` WHERE v.id = $1`, id))
}

func (r *visitRepoPG) ListPayAtClinic(ctx context.Context) ([]*BillableVisit, error) {
	rows, err := conn(ctx, r.q).Query(ctx, billableSelect+`
		WHERE v.payment_status = 'pay_at_clinic'
		ORDER BY v.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*BillableVisit
	for rows.Next() {
		v, err := scanBillable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *visitRepoPG) SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := conn(ctx, r.q).Exec(ctx, `
		UPDATE visits SET payment_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Visit")
	}
	return nil
}
