package billing

import (
	"context"

	"github.com/google/uuid"
)

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, f Filter) ([]*Transaction, int, error)
	// UpdateStatus changes the status only while it still equals from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	// Totals sums completed revenue overall and for day, plus pending amounts.
	Totals(ctx context.Context, day string) (*Totals, error)
	// MonthlyRevenue sums completed revenue per YYYY-MM from the first day of
	// month onwards.
	MonthlyRevenue(ctx context.Context, from string) (map[string]float64, error)
}

type VisitRepository interface {
	GetVisit(ctx context.Context, id uuid.UUID) (*BillableVisit, error)
	ListPayAtClinic(ctx context.Context) ([]*BillableVisit, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status string) error
}
