package queue

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusWaiting, StatusCheckedIn, true},
		{StatusWaiting, StatusInService, true},
		{StatusWaiting, StatusCompleted, false},
		{StatusCheckedIn, StatusInService, true},
		{StatusCheckedIn, StatusWaiting, false},
		{StatusInService, StatusCompleted, true},
		{StatusInService, StatusWaiting, false},
		{StatusHeld, StatusWaiting, true},
		{StatusHeld, StatusCompleted, false},
		{StatusCompleted, StatusWaiting, false},
		{StatusExpired, StatusWaiting, false},
		{"bogus", StatusWaiting, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusCompleted: true,
		StatusExpired:   true,
		StatusWaiting:   false,
		StatusHeld:      false,
		"unknown":       false,
	} {
		if got := Terminal(status); got != want {
			t.Errorf("Terminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestQRPayload_Encode(t *testing.T) {
	got := QRPayload{PatientUID: "CLN1-A1", ClinicID: "CLN1", Department: "general", VisitDate: "2026-03-07"}.Encode()
	want := `{"visit_id":"00000000-0000-0000-0000-000000000000","patient_uid":"CLN1-A1","clinic_id":"CLN1","department":"general","visit_date":"2026-03-07"}`
	if got != want {
		t.Errorf("Encode = %s", got)
	}
}
