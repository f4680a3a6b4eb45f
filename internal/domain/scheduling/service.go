package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediqueue/mediqueue/internal/domain/clinic"
	"github.com/mediqueue/mediqueue/internal/domain/patient"
	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/notification"
	"github.com/mediqueue/mediqueue/pkg/display"
)

type PatientFinder interface {
	FindOrCreateByPhone(ctx context.Context, reg patient.Registration) (*patient.Patient, bool, error)
}

type DoctorLookup interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*clinic.Doctor, error)
}

type Service struct {
	appointments AppointmentRepository
	patients     PatientFinder
	doctors      DoctorLookup
	notify       notification.Publisher
	now          func() time.Time
}

// NewService wires the appointment service. notify may be nil.
func NewService(appts AppointmentRepository, patients PatientFinder, doctors DoctorLookup, notify notification.Publisher) *Service {
	return &Service{appointments: appts, patients: patients, doctors: doctors, notify: notify, now: time.Now}
}

var timeLayouts = []string{"15:04", "15:04:05"}

func parseClock(s string) (string, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

// Book reuses the patient registered with the phone number, or registers
// one, and schedules the appointment.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if strings.TrimSpace(req.PatientName) == "" || strings.TrimSpace(req.PatientPhone) == "" ||
		req.AppointmentDate == "" || req.AppointmentTime == "" {
		return nil, apperr.Validation("Please fill in all required fields")
	}
	date, err := time.Parse(display.DayLayout, req.AppointmentDate)
	if err != nil {
		return nil, apperr.Validation("appointment_date must be YYYY-MM-DD")
	}
	if date.Format(display.DayLayout) < s.now().Format(display.DayLayout) {
		return nil, apperr.Validation("appointment_date cannot be in the past")
	}
	clock, ok := parseClock(req.AppointmentTime)
	if !ok {
		return nil, apperr.Validation("appointment_time must be HH:MM")
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < 5 || duration > 480 {
		return nil, apperr.Validation("duration_minutes must be between 5 and 480")
	}

	var doc *clinic.Doctor
	if req.DoctorID != nil {
		doc, err = s.doctors.GetDoctor(ctx, *req.DoctorID)
		if err != nil {
			return nil, err
		}
		if !doc.Active() {
			return nil, apperr.Validation("%s is not taking appointments", doc.Name)
		}
	}

	p, _, err := s.patients.FindOrCreateByPhone(ctx, patient.Registration{
		Name: req.PatientName, Phone: req.PatientPhone, Email: req.PatientEmail, Age: req.PatientAge,
	})
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:       p.ID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: clock,
		DurationMinutes: duration,
		Status:          StatusScheduled,
	}
	if notes := patient.Sanitize(req.Notes); notes != "" {
		a.Notes = &notes
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	a.Patient = &PatientRef{UID: p.UID, Name: p.Name, Phone: p.Phone}
	if doc != nil {
		a.Doctor = &DoctorRef{Name: doc.Name, Specialization: doc.Specialization}
	}
	s.publish(notification.KindSuccess, "Appointment booked",
		fmt.Sprintf("%s on %s at %s", p.Name, a.AppointmentDate, a.AppointmentTime))
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// List returns the filtered appointments and the unfiltered bucket counts.
func (s *Service) List(ctx context.Context, f Filter) (*Listing, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, apperr.Validation("invalid appointment status: %s", f.Status)
	}
	if f.Date != "" {
		if _, err := time.Parse(display.DayLayout, f.Date); err != nil {
			return nil, apperr.Validation("date must be YYYY-MM-DD")
		}
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Department = strings.ToLower(strings.TrimSpace(f.Department))

	items, total, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	counts, err := s.appointments.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return &Listing{Appointments: items, Total: total, Counts: *counts}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validation("invalid appointment status: %s", to)
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.Conflict("cannot move appointment from %s to %s", a.Status, to)
	}
	if err := s.appointments.UpdateStatus(ctx, id, a.Status, to); err != nil {
		return nil, err
	}
	a.Status = to
	a.UpdatedAt = s.now().UTC()
	s.publish(notification.KindSuccess, "Appointment updated", "Appointment "+display.Label(to)+" successfully")
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(notification.KindInfo, "Appointment deleted", "Appointment deleted successfully")
	return nil
}

func (s *Service) publish(kind notification.Kind, title, message string) {
	if s.notify == nil {
		return
	}
	s.notify.Publish(notification.Notification{Kind: kind, Title: title, Message: message})
}
