package clinic

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Department is a service line patients queue for. Name is the stable key
// used by visits; DisplayName is what screens show.
type Department struct {
	ID                      uuid.UUID `json:"id"`
	Name                    string    `json:"name"`
	DisplayName             string    `json:"display_name"`
	Description             *string   `json:"description,omitempty"`
	ConsultationFee         float64   `json:"consultation_fee"`
	AverageConsultationTime int       `json:"average_consultation_time"`
	ColorCode               string    `json:"color_code"`
	IsActive                bool      `json:"is_active"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

const (
	DoctorActive   = "active"
	DoctorInactive = "inactive"
)

type Doctor struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Specialization  string    `json:"specialization"`
	Qualification   *string   `json:"qualification,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	ConsultationFee float64   `json:"consultation_fee"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (d *Doctor) Active() bool { return d.Status == DoctorActive }

type Setting struct {
	ID          uuid.UUID       `json:"id"`
	Key         string          `json:"setting_key"`
	Value       json.RawMessage `json:"setting_value"`
	Type        string          `json:"setting_type"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DoctorFilter struct {
	Status         string
	Specialization string
}
