package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is never hard-deleted. UID is the identifier callers use; ID only
// joins rows inside the store.
type Patient struct {
	ID                uuid.UUID `json:"id"`
	UID               string    `json:"uid"`
	Name              string    `json:"name"`
	Age               *int      `json:"age,omitempty"`
	Phone             string    `json:"phone"`
	Email             *string   `json:"email,omitempty"`
	Address           *string   `json:"address,omitempty"`
	EmergencyContact  *string   `json:"emergency_contact,omitempty"`
	BloodGroup        *string   `json:"blood_group,omitempty"`
	Allergies         []string  `json:"allergies"`
	MedicalConditions []string  `json:"medical_conditions"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Registration is the caller-supplied part of a patient record.
type Registration struct {
	Name              string   `json:"name"`
	Age               *int     `json:"age,omitempty"`
	Phone             string   `json:"phone"`
	Email             *string  `json:"email,omitempty"`
	Address           *string  `json:"address,omitempty"`
	EmergencyContact  *string  `json:"emergency_contact,omitempty"`
	BloodGroup        *string  `json:"blood_group,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	MedicalConditions []string `json:"medical_conditions,omitempty"`
}

// MedicalHistory is an append-only consultation record. The doctor and
// visit fields are filled from joins when read.
type MedicalHistory struct {
	ID           uuid.UUID  `json:"id"`
	PatientUID   string     `json:"patient_uid"`
	VisitID      *uuid.UUID `json:"visit_id,omitempty"`
	DoctorID     *uuid.UUID `json:"doctor_id,omitempty"`
	Diagnosis    *string    `json:"diagnosis,omitempty"`
	Prescription *string    `json:"prescription,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	Doctor *DoctorRef `json:"doctor,omitempty"`
	Visit  *VisitRef  `json:"visit,omitempty"`
}

type DoctorRef struct {
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	Qualification   *string `json:"qualification,omitempty"`
	ExperienceYears int     `json:"experience_years"`
}

type VisitRef struct {
	STN        int    `json:"stn"`
	Department string `json:"department"`
	VisitDate  string `json:"visit_date"`
}

// HistoryEntry is what a doctor records at the end of a consultation.
type HistoryEntry struct {
	VisitID      *uuid.UUID `json:"visit_id,omitempty"`
	DoctorID     *uuid.UUID `json:"doctor_id,omitempty"`
	Diagnosis    string     `json:"diagnosis"`
	Prescription string     `json:"prescription"`
	Notes        string     `json:"notes"`
}

func (e HistoryEntry) Empty() bool {
	return e.Diagnosis == "" && e.Prescription == "" && e.Notes == ""
}

// VisitSummary is a row of a patient's visit history.
type VisitSummary struct {
	ID            uuid.UUID `json:"id"`
	STN           int       `json:"stn"`
	Department    string    `json:"department"`
	VisitDate     string    `json:"visit_date"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	DoctorName    *string   `json:"doctor_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Record is the full patient detail view.
type Record struct {
	Patient *Patient          `json:"patient"`
	History []*MedicalHistory `json:"history"`
	Visits  []*VisitSummary   `json:"visits"`
	Summary RecordSummary     `json:"summary"`
}

type RecordSummary struct {
	TotalVisits     int `json:"total_visits"`
	CompletedVisits int `json:"completed_visits"`
	MedicalRecords  int `json:"medical_records"`
	Departments     int `json:"departments"`
}

func summarize(visits []*VisitSummary, history []*MedicalHistory) RecordSummary {
	depts := make(map[string]struct{})
	s := RecordSummary{TotalVisits: len(visits), MedicalRecords: len(history)}
	for _, v := range visits {
		if v.Status == "completed" {
			s.CompletedVisits++
		}
		depts[v.Department] = struct{}{}
	}
	s.Departments = len(depts)
	return s
}

const NoPrescriptionsMessage = "No prescriptions found for this patient."

// PrescriptionLookup answers a UID search from the public download page.
type PrescriptionLookup struct {
	Patient       *Patient          `json:"patient"`
	Prescriptions []*MedicalHistory `json:"prescriptions"`
	Message       string            `json:"message"`
}

type SearchParams struct {
	Query  string
	Limit  int
	Offset int
}
