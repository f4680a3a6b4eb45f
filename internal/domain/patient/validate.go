package patient

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{9,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizePhone removes all whitespace.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

func ValidPhone(phone string) bool { return phonePattern.MatchString(NormalizePhone(phone)) }

func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

func ValidAge(age int) bool { return age >= 1 && age <= 120 }

// Sanitize trims s and drops angle brackets.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(s))
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Sanitize(*s)
	if v == "" {
		return nil
	}
	return &v
}

func sanitizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := Sanitize(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Normalize sanitises r in place and validates it.
func (r *Registration) Normalize() error {
	r.Name = Sanitize(r.Name)
	r.Phone = NormalizePhone(r.Phone)
	r.Email = sanitizePtr(r.Email)
	r.Address = sanitizePtr(r.Address)
	r.EmergencyContact = sanitizePtr(r.EmergencyContact)
	r.BloodGroup = sanitizePtr(r.BloodGroup)
	r.Allergies = sanitizeList(r.Allergies)
	r.MedicalConditions = sanitizeList(r.MedicalConditions)

	if r.Name == "" {
		return apperr.Validation("name is required")
	}
	if !ValidPhone(r.Phone) {
		return apperr.Validation("invalid phone number")
	}
	if r.Email != nil && !ValidEmail(*r.Email) {
		return apperr.Validation("invalid email address")
	}
	if r.Age != nil && !ValidAge(*r.Age) {
		return apperr.Validation("age must be between 1 and 120")
	}
	return nil
}

// NormalizeUID trims and upper-cases a caller-supplied UID.
func NormalizeUID(uid string) string {
	return strings.ToUpper(strings.TrimSpace(uid))
}

const uidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateUID returns PREFIX-<base36 unix millis><6 random base36 chars>,
// upper-cased.
func GenerateUID(prefix string, now time.Time) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	base := big.NewInt(int64(len(uidAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			n = big.NewInt(now.UnixNano() % int64(len(uidAlphabet)))
		}
		b.WriteByte(uidAlphabet[n.Int64()])
	}
	return strings.ToUpper(b.String())
}
