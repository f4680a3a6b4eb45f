package display

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "Jan 02, 2006"
	TimeLayout = "15:04"
	DayLayout  = "2006-01-02"
)

// Label turns a snake_case status into its upper-case display label,
// e.g. "in_service" -> "IN SERVICE".
func Label(status string) string {
	return strings.ToUpper(strings.ReplaceAll(status, "_", " "))
}

// FormatCurrency renders amount in rupees with Indian digit grouping and at
// most two fraction digits: 1234567.5 -> "₹12,34,567.5".
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "₹0"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	out := sign + "₹" + groupIndian(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// groupIndian inserts separators after the last three digits and then
// every two digits.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Invalid date"
	}
	return t.Format(DateLayout)
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "Invalid time"
	}
	return t.Format(TimeLayout)
}

// IsToday reports whether t falls on the same calendar day as now in now's
// location.
func IsToday(t, now time.Time) bool {
	return t.In(now.Location()).Format(DayLayout) == now.Format(DayLayout)
}

// FormatRelative describes the distance between t and now in words, with an
// "ago"/"in" suffix.
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "Invalid time"
	}
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}
	words := distance(d)
	if future {
		return "in " + words
	}
	return words + " ago"
}

func distance(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	const day = 24 * 60
	switch {
	case d < 30*time.Second:
		return "less than a minute"
	case minutes <= 1:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	case minutes < day:
		return fmt.Sprintf("about %d hours", int(math.Round(float64(minutes)/60)))
	case minutes < 42*60:
		return "1 day"
	case minutes < 30*day:
		return fmt.Sprintf("%d days", int(math.Round(float64(minutes)/day)))
	case minutes < 45*day:
		return "about 1 month"
	case minutes < 60*day:
		return "about 2 months"
	case minutes < 365*day:
		return fmt.Sprintf("%d months", int(math.Round(float64(minutes)/(30*day))))
	}
	years := int(math.Round(float64(minutes) / (365 * day)))
	if years <= 1 {
		return "about 1 year"
	}
	return fmt.Sprintf("about %d years", years)
}
