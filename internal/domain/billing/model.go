package billing

import (
	"time"

	"github.com/google/uuid"
)

const (
	MethodCash      = "cash"
	MethodCard      = "card"
	MethodUPI       = "upi"
	MethodOnline    = "online"
	MethodInsurance = "insurance"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// DefaultFee is charged when neither the request nor the department names an
// amount.
const DefaultFee = 500.0

var methods = map[string]bool{
	MethodCash: true, MethodCard: true, MethodUPI: true, MethodOnline: true, MethodInsurance: true,
}

var statuses = map[string]bool{
	StatusPending: true, StatusCompleted: true, StatusFailed: true, StatusRefunded: true,
}

func ValidMethod(m string) bool { return methods[m] }
func ValidStatus(s string) bool { return statuses[s] }

type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	VisitID       uuid.UUID  `json:"visit_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Patient *PatientRef `json:"patient,omitempty"`
	Visit   *VisitRef   `json:"visit,omitempty"`
}

// Reference returns the external transaction id, or a short form of the
// record id when none was captured.
func (t *Transaction) Reference() string {
	if t.TransactionID != nil && *t.TransactionID != "" {
		return *t.TransactionID
	}
	return t.ID.String()[:13]
}

type PatientRef struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type VisitRef struct {
	STN             int     `json:"stn"`
	Department      string  `json:"department"`
	DepartmentName  string  `json:"department_name"`
	VisitDate       string  `json:"visit_date"`
	PaymentStatus   string  `json:"payment_status"`
	DoctorName      *string `json:"doctor_name,omitempty"`
	ConsultationFee float64 `json:"consultation_fee"`
}

// BillableVisit is a visit as the billing desk sees it.
type BillableVisit struct {
	ID        uuid.UUID   `json:"id"`
	PatientID uuid.UUID   `json:"patient_id"`
	Patient   *PatientRef `json:"patient,omitempty"`
	VisitRef
	CreatedAt time.Time `json:"created_at"`
}

type PaymentRequest struct {
	VisitID       uuid.UUID `json:"visit_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID string    `json:"transaction_id"`
	Notes         string    `json:"notes"`
}

// Filter combines its fields with AND. Date matches created_at by prefix, so
// "2026-03" selects a month and "2026-03-07" a day.
type Filter struct {
	Search string
	Status string
	Method string
	Date   string
	Limit  int
	Offset int
}

type Totals struct {
	TotalRevenue   float64 `json:"total_revenue"`
	TodayRevenue   float64 `json:"today_revenue"`
	PendingAmount  float64 `json:"pending_amount"`
	CompletedCount int     `json:"completed_transactions"`
}

type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type Analytics struct {
	Totals
	MonthlyRevenue []MonthRevenue `json:"monthly_revenue"`
}
