package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mediqueue/mediqueue/pkg/queuecalc"
)

const (
	StatusWaiting   = "waiting"
	StatusCheckedIn = "checked_in"
	StatusInService = "in_service"
	StatusCompleted = "completed"
	StatusHeld      = "held"
	StatusExpired   = "expired"
)

const (
	PaymentPaid        = "paid"
	PaymentPending     = "pending"
	PaymentPayAtClinic = "pay_at_clinic"
	PaymentRefunded    = "refunded"
)

// transitions lists the statuses each visit status may move to. Completed
// and expired are terminal.
var transitions = map[string][]string{
	StatusWaiting:   {StatusCheckedIn, StatusInService, StatusHeld, StatusExpired},
	StatusCheckedIn: {StatusInService, StatusHeld, StatusExpired},
	StatusInService: {StatusCompleted, StatusHeld},
	StatusHeld:      {StatusWaiting, StatusCheckedIn, StatusInService, StatusExpired},
	StatusCompleted: nil,
	StatusExpired:   nil,
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a visit in status from may move to to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func Terminal(status string) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// activeStatuses are the statuses shown on the doctor room board.
var activeStatuses = []string{StatusWaiting, StatusCheckedIn, StatusInService, StatusHeld}

// Visit is one booked token. STN is unique per department and visit date.
type Visit struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	ClinicID      string     `json:"clinic_id"`
	STN           int        `json:"stn"`
	Department    string     `json:"department"`
	VisitDate     string     `json:"visit_date"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	DoctorID      *uuid.UUID `json:"doctor_id,omitempty"`
	QRPayload     string     `json:"qr_payload"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Patient    *PatientRef `json:"patient,omitempty"`
	DoctorName *string     `json:"doctor_name,omitempty"`
}

type PatientRef struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Age   *int   `json:"age,omitempty"`
}

// QRPayload is encoded into the token's QR code.
type QRPayload struct {
	VisitID    uuid.UUID `json:"visit_id"`
	PatientUID string    `json:"patient_uid"`
	ClinicID   string    `json:"clinic_id"`
	Department string    `json:"department"`
	VisitDate  string    `json:"visit_date"`
}

func (q QRPayload) Encode() string {
	b, _ := json.Marshal(q)
	return string(b)
}

// BookingRequest is the public booking form.
type BookingRequest struct {
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Age           *int    `json:"age,omitempty"`
	Email         *string `json:"email,omitempty"`
	Department    string  `json:"department"`
	PaymentStatus string  `json:"payment_status,omitempty"`
}

type Booking struct {
	Visit         *Visit `json:"visit"`
	PatientUID    string `json:"patient_uid"`
	PatientName   string `json:"patient_name"`
	NewPatient    bool   `json:"new_patient"`
	Position      int    `json:"position"`
	EstimatedWait int    `json:"estimated_wait"`
}

// Counts are the per-status totals for one department and day.
type Counts struct {
	NowServing int `json:"now_serving"`
	Waiting    int `json:"waiting"`
	CheckedIn  int `json:"checked_in"`
	InService  int `json:"in_service"`
	Completed  int `json:"completed"`
	Held       int `json:"held"`
	Expired    int `json:"expired"`
}

// Status is the live queue board for a department.
type Status struct {
	Department     string              `json:"department"`
	DisplayName    string              `json:"display_name"`
	ColorCode      string              `json:"color_code"`
	Date           string              `json:"date"`
	NowServing     int                 `json:"now_serving"`
	TotalWaiting   int                 `json:"total_waiting"`
	TotalCompleted int                 `json:"total_completed"`
	InService      int                 `json:"in_service"`
	Held           int                 `json:"held"`
	AvgServiceTime int                 `json:"average_consultation_time"`
	EstimatedWait  int                 `json:"estimated_wait"`
	Load           queuecalc.LoadLevel `json:"load"`
	LoadMessage    string              `json:"load_message"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Position is a patient's place in a department queue.
type Position struct {
	Department    string  `json:"department"`
	STN           int     `json:"stn"`
	VisitStatus   string  `json:"visit_status"`
	NowServing    int     `json:"now_serving"`
	Position      int     `json:"position"`
	EstimatedWait int     `json:"estimated_wait"`
	Progress      float64 `json:"progress"`
}

type VisitFilter struct {
	Date       string
	Department string
	Status     string
	Statuses   []string
	Search     string
	Limit      int
	Offset     int
}

// Consultation is what a doctor submits when completing a visit.
type Consultation struct {
	DoctorID     *uuid.UUID `json:"doctor_id,omitempty"`
	Diagnosis    string     `json:"diagnosis"`
	Prescription string     `json:"prescription"`
	Notes        string     `json:"notes"`
}

func (c Consultation) Empty() bool {
	return c.Diagnosis == "" && c.Prescription == "" && c.Notes == ""
}
