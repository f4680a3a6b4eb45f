package scheduling

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

const DefaultDuration = 30

// rank orders the forward lifecycle. Cancelled and no-show sit outside it.
var rank = map[string]int{
	StatusScheduled:  0,
	StatusConfirmed:  1,
	StatusInProgress: 2,
	StatusCompleted:  3,
}

func ValidStatus(s string) bool {
	_, ok := rank[s]
	return ok || s == StatusCancelled || s == StatusNoShow
}

func Terminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransition allows forward moves along scheduled, confirmed,
// in_progress, completed; cancellation from any non-terminal status; and
// no-show before the appointment starts.
func CanTransition(from, to string) bool {
	if Terminal(from) || !ValidStatus(from) {
		return false
	}
	switch to {
	case StatusCancelled:
		return true
	case StatusNoShow:
		return from == StatusScheduled || from == StatusConfirmed
	}
	r, ok := rank[to]
	return ok && r > rank[from]
}

type Appointment struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        *uuid.UUID `json:"doctor_id,omitempty"`
	VisitID         *uuid.UUID `json:"visit_id,omitempty"`
	AppointmentDate string     `json:"appointment_date"`
	AppointmentTime string     `json:"appointment_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Patient *PatientRef `json:"patient,omitempty"`
	Doctor  *DoctorRef  `json:"doctor,omitempty"`
}

type PatientRef struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type DoctorRef struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// BookingRequest is the staff appointment form.
type BookingRequest struct {
	PatientName     string     `json:"patient_name"`
	PatientPhone    string     `json:"patient_phone"`
	PatientEmail    *string    `json:"patient_email,omitempty"`
	PatientAge      *int       `json:"patient_age,omitempty"`
	DoctorID        *uuid.UUID `json:"doctor_id,omitempty"`
	AppointmentDate string     `json:"appointment_date"`
	AppointmentTime string     `json:"appointment_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           string     `json:"notes"`
}

// Filter combines its fields with AND. Department matches the doctor's
// specialization.
type Filter struct {
	Search     string
	Status     string
	Department string
	Date       string
	Limit      int
	Offset     int
}

// Counts buckets appointments the way the dashboard shows them.
type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Upcoming  int `json:"upcoming"`
	Cancelled int `json:"cancelled"`
}

type Listing struct {
	Appointments []*Appointment `json:"appointments"`
	Total        int            `json:"total"`
	Counts       Counts         `json:"counts"`
}
