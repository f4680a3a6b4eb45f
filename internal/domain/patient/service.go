package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

// ClinicNamer supplies the clinic name printed on documents.
type ClinicNamer interface {
	ClinicName(ctx context.Context) string
}

type Service struct {
	patients      PatientRepository
	history       HistoryRepository
	clinic        ClinicNamer
	defaultClinic string
	now           func() time.Time
}

func NewService(patients PatientRepository, history HistoryRepository, clinic ClinicNamer, defaultClinic string) *Service {
	return &Service{
		patients:      patients,
		history:       history,
		clinic:        clinic,
		defaultClinic: defaultClinic,
		now:           time.Now,
	}
}

func (s *Service) clinicName(ctx context.Context) string {
	if s.clinic == nil {
		return DefaultClinicName
	}
	return s.clinic.ClinicName(ctx)
}

// Register creates a new patient with a UID prefixed by the request's
// clinic.
func (s *Service) Register(ctx context.Context, reg Registration) (*Patient, error) {
	if err := reg.Normalize(); err != nil {
		return nil, err
	}
	return s.create(ctx, reg)
}

func (s *Service) create(ctx context.Context, reg Registration) (*Patient, error) {
	p := &Patient{
		UID:               GenerateUID(db.ClinicFromContext(ctx, s.defaultClinic), s.now()),
		Name:              reg.Name,
		Age:               reg.Age,
		Phone:             reg.Phone,
		Email:             reg.Email,
		Address:           reg.Address,
		EmergencyContact:  reg.EmergencyContact,
		BloodGroup:        reg.BloodGroup,
		Allergies:         reg.Allergies,
		MedicalConditions: reg.MedicalConditions,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

// FindOrCreateByPhone reuses the patient registered with the same phone
// number, or registers a new one. created reports which happened.
func (s *Service) FindOrCreateByPhone(ctx context.Context, reg Registration) (p *Patient, created bool, err error) {
	if err := reg.Normalize(); err != nil {
		return nil, false, err
	}
	existing, err := s.patients.GetByPhone(ctx, reg.Phone)
	switch {
	case err == nil:
		return existing, false, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, false, fmt.Errorf("lookup patient: %w", err)
	}
	p, err = s.create(ctx, reg)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *Service) Get(ctx context.Context, uid string) (*Patient, error) {
	uid = NormalizeUID(uid)
	if uid == "" {
		return nil, apperr.Validation("Please enter a valid Patient UID")
	}
	return s.patients.GetByUID(ctx, uid)
}

// Update replaces contact and clinical fields of an existing patient. The
// UID never changes.
func (s *Service) Update(ctx context.Context, uid string, reg Registration) (*Patient, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := reg.Normalize(); err != nil {
		return nil, err
	}
	p.Name, p.Age, p.Phone = reg.Name, reg.Age, reg.Phone
	p.Email, p.Address, p.EmergencyContact, p.BloodGroup = reg.Email, reg.Address, reg.EmergencyContact, reg.BloodGroup
	p.Allergies, p.MedicalConditions = reg.Allergies, reg.MedicalConditions
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*Patient, int, error) {
	params.Query = strings.TrimSpace(params.Query)
	return s.patients.Search(ctx, params)
}

// Record returns the patient with history (by UID) and visits (by row id).
func (s *Service) Record(ctx context.Context, uid string) (*Record, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByPatientUID(ctx, p.UID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	visits, err := s.patients.ListVisits(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	if history == nil {
		history = []*MedicalHistory{}
	}
	if visits == nil {
		visits = []*VisitSummary{}
	}
	return &Record{Patient: p, History: history, Visits: visits, Summary: summarize(visits, history)}, nil
}

// RecordHistory appends a consultation record for the patient.
func (s *Service) RecordHistory(ctx context.Context, uid string, entry HistoryEntry) (*MedicalHistory, error) {
	entry.Diagnosis = Sanitize(entry.Diagnosis)
	entry.Prescription = Sanitize(entry.Prescription)
	entry.Notes = Sanitize(entry.Notes)
	if entry.Empty() {
		return nil, apperr.Validation("diagnosis, prescription or notes is required")
	}
	p, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	h := &MedicalHistory{
		PatientUID:   p.UID,
		VisitID:      entry.VisitID,
		DoctorID:     entry.DoctorID,
		Diagnosis:    optional(entry.Diagnosis),
		Prescription: optional(entry.Prescription),
		Notes:        optional(entry.Notes),
	}
	if err := s.history.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}
	return h, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Prescriptions looks up every medical record for uid. An unknown UID is
// not found; a known patient with no records is a successful empty result.
func (s *Service) Prescriptions(ctx context.Context, uid string) (*PrescriptionLookup, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	items, err := s.history.ListByPatientUID(ctx, p.UID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	out := &PrescriptionLookup{Patient: p, Prescriptions: items}
	if len(items) == 0 {
		out.Prescriptions = []*MedicalHistory{}
		out.Message = NoPrescriptionsMessage
	} else {
		out.Message = fmt.Sprintf("Found %d prescription(s) for %s", len(items), p.Name)
	}
	return out, nil
}

// Document is a rendered downloadable file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// PrescriptionDocument renders one record as a text prescription. uid must
// own the record.
func (s *Service) PrescriptionDocument(ctx context.Context, id uuid.UUID, uid string) (*Document, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	h, err := s.history.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.PatientUID != p.UID {
		return nil, apperr.NotFound("prescription")
	}
	body, err := renderPrescription(s.clinicName(ctx), p, h, s.now())
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("prescription_%s_%s.txt", underscore(p.Name), underscore(h.CreatedAt.Format(dateLayout))),
		ContentType: "text/plain; charset=utf-8",
		Body:        body,
	}, nil
}

// HistoryDocument renders every record for uid into one text file.
func (s *Service) HistoryDocument(ctx context.Context, uid string) (*Document, error) {
	lookup, err := s.Prescriptions(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(lookup.Prescriptions) == 0 {
		return nil, apperr.NotFound("prescription")
	}
	now := s.now()
	body, err := renderHistory(s.clinicName(ctx), lookup.Patient, lookup.Prescriptions, now)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("complete_medical_history_%s_%s.txt", underscore(lookup.Patient.Name), now.Format("2006-01-02")),
		ContentType: "text/plain; charset=utf-8",
		Body:        body,
	}, nil
}

// ReportDocument renders the printable HTML patient report.
func (s *Service) ReportDocument(ctx context.Context, uid string) (*Document, error) {
	rec, err := s.Record(ctx, uid)
	if err != nil {
		return nil, err
	}
	body, err := renderReport(s.clinicName(ctx), rec, s.now())
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("patient_report_%s.html", rec.Patient.UID),
		ContentType: "text/html; charset=utf-8",
		Body:        body,
	}, nil
}

func underscore(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
