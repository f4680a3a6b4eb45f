package queuecalc

import "testing"

func TestEstimateWaitTime_NonNegativeAndMonotonic(t *testing.T) {
	for _, svc := range []int{1, DefaultServiceTime, 15, 20} {
		prev := -1
		for pos := 0; pos <= 200; pos++ {
			got := EstimateWaitTime(pos, svc)
			if got < 0 {
				t.Fatalf("EstimateWaitTime(%d, %d) = %d, want >= 0", pos, svc, got)
			}
			if got < prev {
				t.Fatalf("EstimateWaitTime not monotonic at position %d: %d < %d", pos, got, prev)
			}
			prev = got
		}
	}
}

func TestEstimateWaitTime_Values(t *testing.T) {
	tests := []struct {
		pos, svc, want int
	}{
		{0, 10, 0},
		{3, 10, 30},
		{4, 15, 60},
		{-2, 10, 0},
	}
	for _, tt := range tests {
		if got := EstimateWaitTime(tt.pos, tt.svc); got != tt.want {
			t.Errorf("EstimateWaitTime(%d, %d) = %d, want %d", tt.pos, tt.svc, got, tt.want)
		}
	}
}

func TestPosition_NeverNegative(t *testing.T) {
	for user := -5; user <= 30; user++ {
		for serving := -5; serving <= 30; serving++ {
			if p := Position(user, serving); p < 0 {
				t.Fatalf("Position(%d, %d) = %d", user, serving, p)
			}
		}
	}
	if got := Position(12, 7); got != 5 {
		t.Errorf("Position(12, 7) = %d, want 5", got)
	}
	if got := Position(3, 7); got != 0 {
		t.Errorf("Position(3, 7) = %d, want 0", got)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		user, serving int
		want          float64
	}{
		{0, 5, 0},
		{10, 0, 0},
		{10, 1, 0},
		{10, 6, 50},
		{4, 20, 100},
	}
	for _, tt := range tests {
		if got := Progress(tt.user, tt.serving); got != tt.want {
			t.Errorf("Progress(%d, %d) = %v, want %v", tt.user, tt.serving, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		waiting int
		want    LoadLevel
	}{
		{0, LoadNone},
		{1, LoadShort},
		{3, LoadShort},
		{4, LoadModerate},
		{8, LoadModerate},
		{9, LoadBusy},
	}
	for _, tt := range tests {
		if got := Load(tt.waiting); got != tt.want {
			t.Errorf("Load(%d) = %s, want %s", tt.waiting, got, tt.want)
		}
	}
	if LoadBusy.Message() != "Busy - Plan Ahead" {
		t.Errorf("unexpected busy message %q", LoadBusy.Message())
	}
	if LoadLevel("bogus").Message() != LoadNone.Message() {
		t.Error("unknown level should fall back to the no-queue message")
	}
}
