package clinic

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
)

// -- Mock Repositories --

type mockDepartmentRepo struct {
	store map[string]*Department
}

func newMockDepartmentRepo() *mockDepartmentRepo {
	return &mockDepartmentRepo{store: make(map[string]*Department)}
}

func (m *mockDepartmentRepo) Create(_ context.Context, d *Department) error {
	d.ID = uuid.New()
	d.CreatedAt, d.UpdatedAt = time.Now(), time.Now()
	cp := *d
	m.store[d.Name] = &cp
	return nil
}

func (m *mockDepartmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Department, error) {
	for _, d := range m.store {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("department")
}

func (m *mockDepartmentRepo) GetByName(_ context.Context, name string) (*Department, error) {
	d, ok := m.store[name]
	if !ok {
		return nil, apperr.NotFound("department")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDepartmentRepo) Update(_ context.Context, d *Department) error {
	if _, ok := m.store[d.Name]; !ok {
		return apperr.NotFound("department")
	}
	cp := *d
	m.store[d.Name] = &cp
	return nil
}

func (m *mockDepartmentRepo) List(_ context.Context, activeOnly bool) ([]*Department, error) {
	var out []*Department
	for _, d := range m.store {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

type mockDoctorRepo struct {
	store map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{store: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("doctor")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.store[d.ID]; !ok {
		return apperr.NotFound("doctor")
	}
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	d, ok := m.store[id]
	if !ok {
		return apperr.NotFound("doctor")
	}
	d.Status = status
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, f DoctorFilter) ([]*Doctor, error) {
	var out []*Doctor
	for _, d := range m.store {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Specialization != "" && d.Specialization != f.Specialization {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type mockSettingRepo struct {
	store map[string]*Setting
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: make(map[string]*Setting)}
}

func (m *mockSettingRepo) List(_ context.Context) ([]*Setting, error) {
	var out []*Setting
	for _, s := range m.store {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSettingRepo) Get(_ context.Context, key string) (*Setting, error) {
	s, ok := m.store[key]
	if !ok {
		return nil, apperr.NotFound("setting")
	}
	return s, nil
}

func (m *mockSettingRepo) Upsert(_ context.Context, s *Setting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.store[s.Key] = &cp
	return nil
}

func newTestService() *Service {
	return NewService(newMockDepartmentRepo(), newMockDoctorRepo(), newMockSettingRepo())
}

// -- Department Tests --

func TestService_CreateDepartment_Defaults(t *testing.T) {
	svc := newTestService()
	d := &Department{Name: " Dermatology ", DisplayName: "Dermatology", ConsultationFee: 600}
	if err := svc.CreateDepartment(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "dermatology" {
		t.Errorf("expected normalized name, got %q", d.Name)
	}
	if d.AverageConsultationTime != 10 || d.ColorCode != DefaultColorCode || !d.IsActive {
		t.Errorf("expected defaults applied, got %+v", d)
	}
}

func TestService_CreateDepartment_Validation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		dept Department
	}{
		{"bad name", Department{Name: "1x", DisplayName: "X"}},
		{"no display name", Department{Name: "ent"}},
		{"negative fee", Department{Name: "ent", DisplayName: "ENT", ConsultationFee: -1}},
		{"bad color", Department{Name: "ent", DisplayName: "ENT", ColorCode: "red"}},
		{"too long", Department{Name: "ent", DisplayName: "ENT", AverageConsultationTime: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.dept
			if err := svc.CreateDepartment(context.Background(), &d); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreateDepartment_Duplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.CreateDepartment(ctx, &Department{Name: "general", DisplayName: "General"})
	err := svc.CreateDepartment(ctx, &Department{Name: "general", DisplayName: "General 2"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestService_UpdateDepartment_KeepsName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.CreateDepartment(ctx, &Department{Name: "cardiology", DisplayName: "Cardiology", ConsultationFee: 800})

	d, err := svc.UpdateDepartment(ctx, "Cardiology", &Department{Name: "renamed", ConsultationFee: 900})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "cardiology" || d.ConsultationFee != 900 || d.DisplayName != "Cardiology" {
		t.Errorf("unexpected update result %+v", d)
	}
}

func TestService_ListDepartments_ActiveOnly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	svc.CreateDepartment(ctx, &Department{Name: "general", DisplayName: "General"})
	svc.CreateDepartment(ctx, &Department{Name: "ent", DisplayName: "ENT"})
	svc.SetDepartmentActive(ctx, "ent", false)

	active, _ := svc.ListDepartments(ctx, true)
	all, _ := svc.ListDepartments(ctx, false)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("expected 1 active of 2, got %d of %d", len(active), len(all))
	}
}

// -- Doctor Tests --

func TestService_CreateDoctor(t *testing.T) {
	svc := newTestService()
	d := &Doctor{Name: "Dr. Rao", Specialization: "Cardiology", ExperienceYears: 12, ConsultationFee: 800}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != DoctorActive || d.Specialization != "cardiology" {
		t.Errorf("unexpected doctor %+v", d)
	}
}

func TestService_CreateDoctor_Validation(t *testing.T) {
	svc := newTestService()
	cases := []*Doctor{
		{Specialization: "general"},
		{Name: "Dr. A"},
		{Name: "Dr. A", Specialization: "general", ExperienceYears: -1},
		{Name: "Dr. A", Specialization: "general", Status: "retired"},
	}
	for i, d := range cases {
		if err := svc.CreateDoctor(context.Background(), d); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestService_SetDoctorStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d := &Doctor{Name: "Dr. Iyer", Specialization: "orthopedics"}
	svc.CreateDoctor(ctx, d)

	got, err := svc.SetDoctorStatus(ctx, d.ID, DoctorInactive)
	if err != nil || got.Active() {
		t.Fatalf("expected inactive doctor, got %+v err=%v", got, err)
	}
	if _, err := svc.SetDoctorStatus(ctx, d.ID, "deleted"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.SetDoctorStatus(ctx, uuid.New(), DoctorActive); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// -- Setting Tests --

func TestService_PutSetting(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	st := &Setting{Key: "clinic_name", Value: json.RawMessage(`"Sunrise Clinic"`)}
	if err := svc.PutSetting(ctx, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Type != "general" {
		t.Errorf("expected default type, got %q", st.Type)
	}
	if err := svc.PutSetting(ctx, &Setting{Key: "Bad Key", Value: json.RawMessage(`1`)}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for key, got %v", err)
	}
	if err := svc.PutSetting(ctx, &Setting{Key: "x_y", Value: json.RawMessage(`nope`)}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for value, got %v", err)
	}
}

func TestService_MaintenanceMode(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if svc.MaintenanceMode(ctx) {
		t.Error("missing setting should read as off")
	}
	svc.PutSetting(ctx, &Setting{Key: "maintenance_mode", Value: json.RawMessage(`true`)})
	if !svc.MaintenanceMode(ctx) {
		t.Error("expected maintenance mode on")
	}
	svc.PutSetting(ctx, &Setting{Key: "maintenance_mode", Value: json.RawMessage(`"yes"`)})
	if svc.MaintenanceMode(ctx) {
		t.Error("malformed value should read as off")
	}
}

func TestService_ClinicName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if got := svc.ClinicName(ctx); got != DefaultClinicName {
		t.Errorf("expected default name, got %q", got)
	}
	svc.PutSetting(ctx, &Setting{Key: "clinic_name", Value: json.RawMessage(`"Sunrise Health"`)})
	if got := svc.ClinicName(ctx); got != "Sunrise Health" {
		t.Errorf("expected configured name, got %q", got)
	}
	svc.PutSetting(ctx, &Setting{Key: "clinic_name", Value: json.RawMessage(`42`)})
	if got := svc.ClinicName(ctx); got != DefaultClinicName {
		t.Errorf("non-string value should fall back, got %q", got)
	}
}
