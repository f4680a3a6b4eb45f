package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediqueue/mediqueue/internal/domain/clinic"
	"github.com/mediqueue/mediqueue/internal/domain/patient"
	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/cache"
	"github.com/mediqueue/mediqueue/internal/platform/db"
	"github.com/mediqueue/mediqueue/internal/platform/notification"
	"github.com/mediqueue/mediqueue/internal/platform/telemetry"
	"github.com/mediqueue/mediqueue/internal/platform/websocket"
	"github.com/mediqueue/mediqueue/pkg/display"
	"github.com/mediqueue/mediqueue/pkg/queuecalc"
)

// Patients is the part of the patient service bookings and consultations use.
type Patients interface {
	FindOrCreateByPhone(ctx context.Context, reg patient.Registration) (*patient.Patient, bool, error)
	RecordHistory(ctx context.Context, uid string, entry patient.HistoryEntry) (*patient.MedicalHistory, error)
}

// Departments is the part of the clinic service the queue reads.
type Departments interface {
	GetDepartment(ctx context.Context, name string) (*clinic.Department, error)
	ListDepartments(ctx context.Context, activeOnly bool) ([]*clinic.Department, error)
	MaintenanceMode(ctx context.Context) bool
}

const bookAttempts = 3

type Service struct {
	visits      VisitRepository
	patients    Patients
	departments Departments
	clinicID    string

	cache   *cache.Store
	events  websocket.EventPublisher
	notify  notification.Publisher
	metrics *telemetry.Metrics
	now     func() time.Time
}

type Option func(*Service)

// WithCache serves queue status from store between visit mutations.
func WithCache(store *cache.Store) Option { return func(s *Service) { s.cache = store } }

func WithEvents(p websocket.EventPublisher) Option { return func(s *Service) { s.events = p } }

func WithNotifications(p notification.Publisher) Option { return func(s *Service) { s.notify = p } }

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(visits VisitRepository, patients Patients, departments Departments, clinicID string, opts ...Option) *Service {
	s := &Service{
		visits:      visits,
		patients:    patients,
		departments: departments,
		clinicID:    clinicID,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) today() string { return s.now().Format(display.DayLayout) }

// -- Booking --

// Book reuses the patient registered under the phone number or creates one,
// then issues the next token for the department.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if s.departments.MaintenanceMode(ctx) {
		return nil, apperr.Unavailable("bookings are paused while the clinic is in maintenance mode", nil)
	}
	req.Department = strings.ToLower(strings.TrimSpace(req.Department))
	if req.Department == "" {
		return nil, apperr.Validation("department is required")
	}
	switch req.PaymentStatus {
	case "":
		req.PaymentStatus = PaymentPayAtClinic
	case PaymentPayAtClinic, PaymentPending:
	default:
		return nil, apperr.Validation("invalid payment status: %s", req.PaymentStatus)
	}
	dept, err := s.departments.GetDepartment(ctx, req.Department)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, apperr.Validation("%s is not accepting bookings", dept.DisplayName)
	}

	p, created, err := s.patients.FindOrCreateByPhone(ctx, patient.Registration{
		Name: req.Name, Phone: req.Phone, Age: req.Age, Email: req.Email,
	})
	if err != nil {
		return nil, err
	}

	clinicID := db.ClinicFromContext(ctx, s.clinicID)
	date := s.today()
	var v *Visit
	for attempt := 1; ; attempt++ {
		v = &Visit{
			ID:            uuid.New(),
			PatientID:     p.ID,
			ClinicID:      clinicID,
			Department:    dept.Name,
			VisitDate:     date,
			Status:        StatusWaiting,
			PaymentStatus: req.PaymentStatus,
		}
		v.QRPayload = QRPayload{VisitID: v.ID, PatientUID: p.UID, ClinicID: clinicID, Department: dept.Name, VisitDate: date}.Encode()
		err = s.visits.Create(ctx, v)
		if !errors.Is(err, ErrSTNTaken) || attempt == bookAttempts {
			break
		}
		zerolog.Ctx(ctx).Debug().Str("department", dept.Name).Int("attempt", attempt).Msg("token number collision, retrying")
	}
	if err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}
	v.Patient = &PatientRef{UID: p.UID, Name: p.Name, Phone: p.Phone, Age: p.Age}

	s.changed(ctx, "visit.created", v)
	s.metrics.ObserveBooking(dept.Name, created)
	if s.notify != nil {
		s.notify.Publish(notification.Notification{
			Kind:    notification.KindSuccess,
			Title:   "Token booked",
			Message: fmt.Sprintf("%s booked token #%d in %s", p.Name, v.STN, dept.DisplayName),
		})
	}

	out := &Booking{Visit: v, PatientUID: p.UID, PatientName: p.Name, NewPatient: created}
	if st, err := s.Status(ctx, dept.Name); err == nil {
		out.Position = queuecalc.Position(v.STN, st.NowServing)
		out.EstimatedWait = queuecalc.EstimateWaitTime(out.Position, st.AvgServiceTime)
	}
	return out, nil
}

// -- Live status --

func statusKey(department, date string) string { return "status:" + department + ":" + date }

// Status returns today's board for department. Reads may be served from the
// cache for up to its TTL.
func (s *Service) Status(ctx context.Context, department string) (*Status, error) {
	department = strings.ToLower(strings.TrimSpace(department))
	dept, err := s.departments.GetDepartment(ctx, department)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, dept)
}

func (s *Service) status(ctx context.Context, dept *clinic.Department) (*Status, error) {
	date := s.today()
	key := statusKey(dept.Name, date)

	var cached Status
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("queue cache read failed")
	} else if ok {
		return &cached, nil
	}

	c, err := s.visits.Counts(ctx, dept.Name, date)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}
	avg := dept.AverageConsultationTime
	if avg <= 0 {
		avg = queuecalc.DefaultServiceTime
	}
	waiting := c.Waiting + c.CheckedIn
	load := queuecalc.Load(waiting)
	st := &Status{
		Department:     dept.Name,
		DisplayName:    dept.DisplayName,
		ColorCode:      dept.ColorCode,
		Date:           date,
		NowServing:     c.NowServing,
		TotalWaiting:   waiting,
		TotalCompleted: c.Completed,
		InService:      c.InService,
		Held:           c.Held,
		AvgServiceTime: avg,
		EstimatedWait:  queuecalc.EstimateWaitTime(waiting, avg),
		Load:           load,
		LoadMessage:    load.Message(),
		UpdatedAt:      s.now().UTC(),
	}
	s.metrics.SetQueueWaiting(dept.Name, waiting)

	if err := s.cache.Set(ctx, key, st); err != nil && !errors.Is(err, cache.ErrDisabled) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("queue cache write failed")
	}
	return st, nil
}

// Overview returns the board of every active department.
func (s *Service) Overview(ctx context.Context) ([]*Status, error) {
	depts, err := s.departments.ListDepartments(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]*Status, 0, len(depts))
	for _, d := range depts {
		st, err := s.status(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Position reports how far token stn is from the front of today's queue.
func (s *Service) Position(ctx context.Context, department string, stn int) (*Position, error) {
	if stn <= 0 {
		return nil, apperr.Validation("stn must be a positive token number")
	}
	st, err := s.Status(ctx, department)
	if err != nil {
		return nil, err
	}
	v, err := s.visits.GetBySTN(ctx, st.Department, st.Date, stn)
	if err != nil {
		return nil, err
	}
	pos := queuecalc.Position(stn, st.NowServing)
	if Terminal(v.Status) || v.Status == StatusInService {
		pos = 0
	}
	return &Position{
		Department:    st.Department,
		STN:           stn,
		VisitStatus:   v.Status,
		NowServing:    st.NowServing,
		Position:      pos,
		EstimatedWait: queuecalc.EstimateWaitTime(pos, st.AvgServiceTime),
		Progress:      queuecalc.Progress(stn, st.NowServing),
	}, nil
}

// -- Visits --

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

// ListVisits defaults to today's visits. Date "all" lists every day.
func (s *Service) ListVisits(ctx context.Context, f VisitFilter) ([]*Visit, int, error) {
	switch f.Date {
	case "":
		f.Date = s.today()
	case "all":
		f.Date = ""
	default:
		if _, err := time.Parse(display.DayLayout, f.Date); err != nil {
			return nil, 0, apperr.Validation("date must be YYYY-MM-DD")
		}
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validation("invalid visit status: %s", f.Status)
	}
	f.Department = strings.ToLower(strings.TrimSpace(f.Department))
	f.Search = strings.TrimSpace(f.Search)
	return s.visits.List(ctx, f)
}

// UpdateStatus moves a visit along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*Visit, error) {
	return s.transition(ctx, id, to, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string, doctorID *uuid.UUID) (*Visit, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validation("invalid visit status: %s", to)
	}
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(v.Status, to) {
		return nil, apperr.Conflict("cannot move visit from %s to %s", v.Status, to)
	}
	if err := s.visits.UpdateStatus(ctx, id, v.Status, to, doctorID); err != nil {
		return nil, err
	}
	from := v.Status
	v.Status = to
	if doctorID != nil {
		v.DoctorID = doctorID
	}
	v.UpdatedAt = s.now().UTC()

	s.metrics.ObserveVisitTransition(from, to)
	s.changed(ctx, "visit.status_changed", v)
	return v, nil
}

// -- Doctor room --

// DoctorQueue lists today's open visits for a department by token order.
func (s *Service) DoctorQueue(ctx context.Context, department string) ([]*Visit, error) {
	department = strings.ToLower(strings.TrimSpace(department))
	if department == "" {
		return nil, apperr.Validation("department is required")
	}
	items, _, err := s.visits.List(ctx, VisitFilter{Date: s.today(), Department: department, Statuses: activeStatuses})
	return items, err
}

// Call puts the visit in service, assigning doctorID when given.
func (s *Service) Call(ctx context.Context, id uuid.UUID, doctorID *uuid.UUID) (*Visit, error) {
	return s.transition(ctx, id, StatusInService, doctorID)
}

// Complete finishes the consultation and appends a medical history entry
// when the doctor recorded anything.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, c Consultation) (*Visit, error) {
	v, err := s.transition(ctx, id, StatusCompleted, c.DoctorID)
	if err != nil {
		return nil, err
	}
	if c.Empty() || v.Patient == nil {
		return v, nil
	}
	doctorID := c.DoctorID
	if doctorID == nil {
		doctorID = v.DoctorID
	}
	visitID := v.ID
	if _, err := s.patients.RecordHistory(ctx, v.Patient.UID, patient.HistoryEntry{
		VisitID:      &visitID,
		DoctorID:     doctorID,
		Diagnosis:    c.Diagnosis,
		Prescription: c.Prescription,
		Notes:        c.Notes,
	}); err != nil {
		return nil, fmt.Errorf("record consultation: %w", err)
	}
	return v, nil
}

// changed drops the cached board for the visit's department and pushes the
// visit to subscribers. Neither failure fails the caller.
func (s *Service) changed(ctx context.Context, eventType string, v *Visit) {
	logger := zerolog.Ctx(ctx)
	if err := s.cache.Delete(ctx, statusKey(v.Department, v.VisitDate)); err != nil {
		logger.Warn().Err(err).Str("department", v.Department).Msg("queue cache invalidation failed")
	}
	if s.events == nil {
		return
	}
	data, _ := json.Marshal(v)
	err := s.events.Publish(ctx, websocket.Event{
		Type:       eventType,
		Topic:      websocket.QueueTopic(v.Department),
		Resource:   "visit",
		ResourceID: v.ID.String(),
		Timestamp:  s.now().UTC(),
		Data:       data,
	})
	if err != nil {
		logger.Warn().Err(err).Str("visit_id", v.ID.String()).Msg("queue event publish failed")
	}
}
