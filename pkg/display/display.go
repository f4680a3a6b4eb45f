// Package display maps record values to presentation categories and formats
// money and dates the way the clinic screens show them. Lookups never fail:
// unknown input yields a neutral fallback.
package display

// Tone is a presentation category for a status badge.
type Tone string

const (
	ToneNeutral   Tone = "neutral"
	ToneWarning   Tone = "warning"
	ToneInfo      Tone = "info"
	ToneSuccess   Tone = "success"
	ToneAttention Tone = "attention"
	ToneDanger    Tone = "danger"
)

var toneClasses = map[Tone]string{
	ToneNeutral:   "bg-gray-100 text-gray-800 border-gray-200",
	ToneWarning:   "bg-yellow-100 text-yellow-800 border-yellow-200",
	ToneInfo:      "bg-blue-100 text-blue-800 border-blue-200",
	ToneSuccess:   "bg-green-100 text-green-800 border-green-200",
	ToneAttention: "bg-orange-100 text-orange-800 border-orange-200",
	ToneDanger:    "bg-red-100 text-red-800 border-red-200",
}

// Classes returns the utility classes the web client applies for the tone.
func (t Tone) Classes() string {
	if c, ok := toneClasses[t]; ok {
		return c
	}
	return toneClasses[ToneNeutral]
}

var visitTones = map[string]Tone{
	"waiting":    ToneWarning,
	"checked_in": ToneInfo,
	"in_service": ToneSuccess,
	"completed":  ToneNeutral,
	"held":       ToneAttention,
	"expired":    ToneDanger,
}

var paymentTones = map[string]Tone{
	"paid":          ToneSuccess,
	"pending":       ToneWarning,
	"pay_at_clinic": ToneInfo,
	"refunded":      ToneDanger,
}

var appointmentTones = map[string]Tone{
	"scheduled":   ToneWarning,
	"confirmed":   ToneInfo,
	"in_progress": ToneSuccess,
	"completed":   ToneNeutral,
	"cancelled":   ToneDanger,
	"no_show":     ToneAttention,
}

var transactionTones = map[string]Tone{
	"completed": ToneSuccess,
	"pending":   ToneWarning,
	"failed":    ToneDanger,
	"refunded":  ToneNeutral,
}

func lookup(table map[string]Tone, status string) Tone {
	if t, ok := table[status]; ok {
		return t
	}
	return ToneNeutral
}

func VisitStatusTone(status string) Tone       { return lookup(visitTones, status) }
func PaymentStatusTone(status string) Tone     { return lookup(paymentTones, status) }
func AppointmentStatusTone(status string) Tone { return lookup(appointmentTones, status) }
func TransactionStatusTone(status string) Tone { return lookup(transactionTones, status) }

// Badge is the rendered form of a status value.
type Badge struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Tone    Tone   `json:"tone"`
	Classes string `json:"classes"`
}

// NewBadge builds a Badge using the given lookup.
func NewBadge(status string, tone func(string) Tone) Badge {
	t := tone(status)
	return Badge{Value: status, Label: Label(status), Tone: t, Classes: t.Classes()}
}
