package display

import (
	"testing"
	"time"
)

func TestVisitStatusTone(t *testing.T) {
	tests := map[string]Tone{
		"waiting":    ToneWarning,
		"checked_in": ToneInfo,
		"in_service": ToneSuccess,
		"completed":  ToneNeutral,
		"held":       ToneAttention,
		"expired":    ToneDanger,
	}
	for status, want := range tests {
		if got := VisitStatusTone(status); got != want {
			t.Errorf("VisitStatusTone(%q) = %s, want %s", status, got, want)
		}
	}
}

func TestStatusTones_UnknownFallsBack(t *testing.T) {
	lookups := map[string]func(string) Tone{
		"visit":       VisitStatusTone,
		"payment":     PaymentStatusTone,
		"appointment": AppointmentStatusTone,
		"transaction": TransactionStatusTone,
	}
	inputs := []string{"", "WAITING", "unknown", "paid ", "in-service", "\x00", "🙂"}
	for name, fn := range lookups {
		for _, in := range inputs {
			if got := fn(in); got != ToneNeutral {
				t.Errorf("%s tone for %q = %s, want fallback %s", name, in, got, ToneNeutral)
			}
		}
	}
	if Tone("nonsense").Classes() != ToneNeutral.Classes() {
		t.Error("unknown tone should render neutral classes")
	}
}

func TestPaymentStatusTone(t *testing.T) {
	if PaymentStatusTone("paid") != ToneSuccess {
		t.Error("paid should be success")
	}
	if PaymentStatusTone("pay_at_clinic") != ToneInfo {
		t.Error("pay_at_clinic should be info")
	}
}

func TestNewBadge(t *testing.T) {
	b := NewBadge("in_service", VisitStatusTone)
	if b.Label != "IN SERVICE" {
		t.Errorf("expected label 'IN SERVICE', got %q", b.Label)
	}
	if b.Tone != ToneSuccess || b.Classes == "" {
		t.Errorf("unexpected badge %+v", b)
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0"},
		{500, "₹500"},
		{1234.5, "₹1,234.5"},
		{100000, "₹1,00,000"},
		{1234567.891, "₹12,34,567.89"},
		{-800, "-₹800"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDateAndTime(t *testing.T) {
	ts := time.Date(2026, time.March, 7, 9, 5, 0, 0, time.UTC)
	if got := FormatDate(ts); got != "Mar 07, 2026" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatTime(ts); got != "09:05" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := FormatDate(time.Time{}); got != "Invalid date" {
		t.Errorf("FormatDate(zero) = %q", got)
	}
}

func TestIsToday(t *testing.T) {
	now := time.Date(2026, time.March, 7, 23, 0, 0, 0, time.UTC)
	if !IsToday(now.Add(-22*time.Hour), now) {
		t.Error("expected same day")
	}
	if IsToday(now.Add(-24*time.Hour), now) {
		t.Error("expected previous day")
	}
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "less than a minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-70 * time.Minute), "about 1 hour ago"},
		{now.Add(-3 * time.Hour), "about 3 hours ago"},
		{now.Add(-30 * time.Hour), "1 day ago"},
		{now.Add(-5 * 24 * time.Hour), "5 days ago"},
		{now.Add(2 * time.Hour), "in about 2 hours"},
	}
	for _, tt := range tests {
		if got := FormatRelative(tt.at, now); got != tt.want {
			t.Errorf("FormatRelative(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
