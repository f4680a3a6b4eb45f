package queue

import (
	"context"

	"github.com/google/uuid"
)

type VisitRepository interface {
	// Create assigns the visit's ID and the next STN for its department and
	// visit date.
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	GetBySTN(ctx context.Context, department, date string, stn int) (*Visit, error)
	// UpdateStatus moves the visit only while it is still in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, doctorID *uuid.UUID) error
	List(ctx context.Context, f VisitFilter) ([]*Visit, int, error)
	Counts(ctx context.Context, department, date string) (*Counts, error)
}
