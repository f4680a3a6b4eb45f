package clinic

import (
	"context"

	"github.com/google/uuid"
)

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	GetByName(ctx context.Context, name string) (*Department, error)
	Update(ctx context.Context, d *Department) error
	List(ctx context.Context, activeOnly bool) ([]*Department, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, f DoctorFilter) ([]*Doctor, error)
}

type SettingRepository interface {
	List(ctx context.Context) ([]*Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
}
