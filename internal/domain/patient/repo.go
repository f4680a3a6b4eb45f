package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByUID(ctx context.Context, uid string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Search(ctx context.Context, params SearchParams) ([]*Patient, int, error)
	ListVisits(ctx context.Context, patientID uuid.UUID) ([]*VisitSummary, error)
}

type HistoryRepository interface {
	Create(ctx context.Context, h *MedicalHistory) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalHistory, error)
	ListByPatientUID(ctx context.Context, uid string) ([]*MedicalHistory, error)
}
