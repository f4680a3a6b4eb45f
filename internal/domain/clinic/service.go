package clinic

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/pkg/queuecalc"
)

const (
	DefaultColorCode  = "#3B82F6"
	DefaultClinicName = "MediQueue Clinic"
)

var (
	departmentNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)
	colorPattern          = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	settingKeyPattern     = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)
)

var validDoctorStatuses = map[string]bool{DoctorActive: true, DoctorInactive: true}

type Service struct {
	departments DepartmentRepository
	doctors     DoctorRepository
	settings    SettingRepository
}

func NewService(dept DepartmentRepository, doc DoctorRepository, set SettingRepository) *Service {
	return &Service{departments: dept, doctors: doc, settings: set}
}

// -- Department --

func validateDepartment(d *Department) error {
	if d.DisplayName == "" {
		return apperr.Validation("display_name is required")
	}
	if d.ConsultationFee < 0 {
		return apperr.Validation("consultation_fee must not be negative")
	}
	if d.AverageConsultationTime < 1 || d.AverageConsultationTime > 240 {
		return apperr.Validation("average_consultation_time must be between 1 and 240 minutes")
	}
	if !colorPattern.MatchString(d.ColorCode) {
		return apperr.Validation("invalid color_code: %s", d.ColorCode)
	}
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	d.Name = strings.ToLower(strings.TrimSpace(d.Name))
	if !departmentNamePattern.MatchString(d.Name) {
		return apperr.Validation("invalid department name: %q", d.Name)
	}
	if d.AverageConsultationTime == 0 {
		d.AverageConsultationTime = queuecalc.DefaultServiceTime
	}
	if d.ColorCode == "" {
		d.ColorCode = DefaultColorCode
	}
	if err := validateDepartment(d); err != nil {
		return err
	}
	if existing, err := s.departments.GetByName(ctx, d.Name); err == nil && existing != nil {
		return apperr.Conflict("department %s already exists", d.Name)
	} else if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	d.IsActive = true
	return s.departments.Create(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, name string) (*Department, error) {
	return s.departments.GetByName(ctx, strings.ToLower(name))
}

// UpdateDepartment applies editable fields. The name is immutable since
// visits reference it.
func (s *Service) UpdateDepartment(ctx context.Context, name string, patch *Department) (*Department, error) {
	d, err := s.departments.GetByName(ctx, strings.ToLower(name))
	if err != nil {
		return nil, err
	}
	if patch.DisplayName != "" {
		d.DisplayName = patch.DisplayName
	}
	if patch.Description != nil {
		d.Description = patch.Description
	}
	if patch.ConsultationFee != 0 {
		d.ConsultationFee = patch.ConsultationFee
	}
	if patch.AverageConsultationTime != 0 {
		d.AverageConsultationTime = patch.AverageConsultationTime
	}
	if patch.ColorCode != "" {
		d.ColorCode = patch.ColorCode
	}
	if err := validateDepartment(d); err != nil {
		return nil, err
	}
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) SetDepartmentActive(ctx context.Context, name string, active bool) (*Department, error) {
	d, err := s.departments.GetByName(ctx, strings.ToLower(name))
	if err != nil {
		return nil, err
	}
	d.IsActive = active
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDepartments(ctx context.Context, activeOnly bool) ([]*Department, error) {
	return s.departments.List(ctx, activeOnly)
}

// -- Doctor --

func validateDoctor(d *Doctor) error {
	if strings.TrimSpace(d.Name) == "" {
		return apperr.Validation("name is required")
	}
	if strings.TrimSpace(d.Specialization) == "" {
		return apperr.Validation("specialization is required")
	}
	if d.ExperienceYears < 0 {
		return apperr.Validation("experience_years must not be negative")
	}
	if d.ConsultationFee < 0 {
		return apperr.Validation("consultation_fee must not be negative")
	}
	if !validDoctorStatuses[d.Status] {
		return apperr.Validation("invalid doctor status: %s", d.Status)
	}
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Status == "" {
		d.Status = DoctorActive
	}
	d.Specialization = strings.ToLower(strings.TrimSpace(d.Specialization))
	if err := validateDoctor(d); err != nil {
		return err
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	d.Specialization = strings.ToLower(strings.TrimSpace(d.Specialization))
	if err := validateDoctor(d); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

// SetDoctorStatus toggles a doctor between active and inactive. Doctors are
// never deleted since history rows reference them.
func (s *Service) SetDoctorStatus(ctx context.Context, id uuid.UUID, status string) (*Doctor, error) {
	if !validDoctorStatuses[status] {
		return nil, apperr.Validation("invalid doctor status: %s", status)
	}
	if err := s.doctors.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter) ([]*Doctor, error) {
	if f.Status != "" && !validDoctorStatuses[f.Status] {
		return nil, apperr.Validation("invalid doctor status: %s", f.Status)
	}
	return s.doctors.List(ctx, f)
}

// -- Settings --

func (s *Service) ListSettings(ctx context.Context) ([]*Setting, error) {
	return s.settings.List(ctx)
}

func (s *Service) GetSetting(ctx context.Context, key string) (*Setting, error) {
	return s.settings.Get(ctx, key)
}

func (s *Service) PutSetting(ctx context.Context, st *Setting) error {
	if !settingKeyPattern.MatchString(st.Key) {
		return apperr.Validation("invalid setting key: %q", st.Key)
	}
	if len(st.Value) == 0 || !json.Valid(st.Value) {
		return apperr.Validation("setting_value must be valid JSON")
	}
	if st.Type == "" {
		st.Type = "general"
	}
	return s.settings.Upsert(ctx, st)
}

// MaintenanceMode reports the maintenance_mode setting. A missing or
// malformed value counts as off.
func (s *Service) MaintenanceMode(ctx context.Context) bool {
	st, err := s.settings.Get(ctx, "maintenance_mode")
	if err != nil {
		return false
	}
	var on bool
	if json.Unmarshal(st.Value, &on) != nil {
		return false
	}
	return on
}

// ClinicName returns the clinic_name setting, or DefaultClinicName when it
// is unset or not a string.
func (s *Service) ClinicName(ctx context.Context) string {
	st, err := s.settings.Get(ctx, "clinic_name")
	if err != nil {
		return DefaultClinicName
	}
	var name string
	if json.Unmarshal(st.Value, &name) != nil || name == "" {
		return DefaultClinicName
	}
	return name
}
