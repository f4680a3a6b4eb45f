// Package queuecalc derives queue position, wait estimates and load levels
// from live token counters. Nothing here is persisted.
package queuecalc

// DefaultServiceTime is the assumed consultation length in minutes when a
// department does not define one.
const DefaultServiceTime = 10

// EstimateWaitTime returns the expected wait in minutes for a patient who is
// position places from the front. Never negative.
func EstimateWaitTime(position, avgServiceTime int) int {
	wait := position * avgServiceTime
	if wait < 0 {
		return 0
	}
	return wait
}

// Position returns how many tokens are ahead of userToken.
func Position(userToken, nowServing int) int {
	if p := userToken - nowServing; p > 0 {
		return p
	}
	return 0
}

// Progress returns the percentage of the queue already served ahead of
// userToken, clamped to [0, 100].
func Progress(userToken, nowServing int) float64 {
	if userToken <= 0 {
		return 0
	}
	pct := float64(nowServing-1) / float64(userToken) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

type LoadLevel string

const (
	LoadNone     LoadLevel = "no_queue"
	LoadShort    LoadLevel = "short"
	LoadModerate LoadLevel = "moderate"
	LoadBusy     LoadLevel = "busy"
)

var loadMessages = map[LoadLevel]string{
	LoadNone:     "No Queue - Walk In!",
	LoadShort:    "Short Queue - Quick Service",
	LoadModerate: "Moderate Queue - Book Now",
	LoadBusy:     "Busy - Plan Ahead",
}

// Load classifies a department by the number of patients waiting.
func Load(totalWaiting int) LoadLevel {
	switch {
	case totalWaiting <= 0:
		return LoadNone
	case totalWaiting <= 3:
		return LoadShort
	case totalWaiting <= 8:
		return LoadModerate
	default:
		return LoadBusy
	}
}

func (l LoadLevel) Message() string {
	if m, ok := loadMessages[l]; ok {
		return m
	}
	return loadMessages[LoadNone]
}
