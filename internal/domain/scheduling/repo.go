package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus changes the status only while it still equals from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*Appointment, int, error)
	Counts(ctx context.Context) (*Counts, error)
}
