// Package notification holds the in-app notification stack shown to staff
// and patients: transient toasts that dismiss themselves after a duration,
// and persistent ones that stay until dismissed.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Notification Types
// ---------------------------------------------------------------------------

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// DefaultDuration applies to non-persistent notifications without a duration.
// Longer requests are capped at MaxDuration.
const (
	DefaultDuration = 5000 * time.Millisecond
	MaxDuration     = time.Hour
)

var validKinds = map[Kind]bool{
	KindSuccess: true, KindError: true, KindWarning: true, KindInfo: true,
}

// Notification is a single entry in the active stack.
type Notification struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Persistent bool      `json:"persistent"`
	CreatedAt  time.Time `json:"created_at"`
}

type EventType string

const (
	EventAdded   EventType = "added"
	EventRemoved EventType = "removed"
	EventCleared EventType = "cleared"
)

// Event describes a change to the active stack.
type Event struct {
	Type         EventType     `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
}

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules auto-dismiss callbacks. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// ---------------------------------------------------------------------------
// Bus
// ---------------------------------------------------------------------------

// Publisher is what services depend on to raise notifications.
type Publisher interface {
	Publish(n Notification) Notification
}

// Bus owns the active notification stack. It is safe for concurrent use.
type Bus struct {
	clock Clock

	mu     sync.Mutex
	active []*Notification
	timers map[string]Timer
	subs   map[int]chan Event
	nextID int
}

// NewBus creates a Bus. A nil clock uses wall time.
func NewBus(clock Clock) *Bus {
	if clock == nil {
		clock = realClock{}
	}
	return &Bus{
		clock:  clock,
		timers: make(map[string]Timer),
		subs:   make(map[int]chan Event),
	}
}

// Publish adds n to the stack and returns it with its id and defaults
// filled in. Non-persistent notifications are removed after their duration.
func (b *Bus) Publish(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if !validKinds[n.Kind] {
		n.Kind = KindInfo
	}
	switch {
	case n.DurationMs <= 0:
		n.DurationMs = DefaultDuration.Milliseconds()
	case n.DurationMs > MaxDuration.Milliseconds():
		n.DurationMs = MaxDuration.Milliseconds()
	}
	n.CreatedAt = b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	stored := n
	b.active = append(b.active, &stored)
	if !n.Persistent {
		id := n.ID
		b.timers[id] = b.clock.AfterFunc(time.Duration(n.DurationMs)*time.Millisecond, func() {
			b.Dismiss(id)
		})
	}
	b.emit(Event{Type: EventAdded, Notification: &n})
	return n
}

func (b *Bus) Success(title, message string) Notification {
	return b.Publish(Notification{Kind: KindSuccess, Title: title, Message: message})
}

func (b *Bus) Error(title, message string) Notification {
	return b.Publish(Notification{Kind: KindError, Title: title, Message: message})
}

func (b *Bus) Warning(title, message string) Notification {
	return b.Publish(Notification{Kind: KindWarning, Title: title, Message: message})
}

func (b *Bus) Info(title, message string) Notification {
	return b.Publish(Notification{Kind: KindInfo, Title: title, Message: message})
}

// Dismiss removes the notification with id. Unknown ids are ignored and it
// reports whether anything was removed.
func (b *Bus) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i, n := range b.active {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	removed := b.active[idx]
	b.active = append(b.active[:idx], b.active[idx+1:]...)
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	cp := *removed
	b.emit(Event{Type: EventRemoved, Notification: &cp})
	return true
}

// Clear removes every notification and cancels pending auto-dismissals.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	b.active = nil
	b.emit(Event{Type: EventCleared})
}

// Active returns a copy of the stack, oldest first.
func (b *Bus) Active() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notification, len(b.active))
	for i, n := range b.active {
		out[i] = *n
	}
	return out
}

// Subscribe returns a channel of stack changes and a func that ends the
// subscription. Slow subscribers miss events rather than block publishers.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 32)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// emit must be called with b.mu held.
func (b *Bus) emit(ev Event) {
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
