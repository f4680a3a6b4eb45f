// Package datastore wraps the relational store behind a client that can be
// unconfigured or disconnected without crashing callers. Every page-level
// operation runs through Safe, which turns failures into a {data, error}
// envelope.
package datastore

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/db"
)

// ErrNotConfigured is returned for every operation when no database
// connection parameters were supplied.
var ErrNotConfigured = apperr.Unavailable("database not configured", nil)

// Conn is the pool surface the client needs.
type Conn interface {
	db.DBTX
	Ping(ctx context.Context) error
}

// Gate reports whether the store can be used at all.
type Gate interface {
	Configured() bool
}

// StaticGate is a fixed Gate, used where no client exists.
type StaticGate bool

func (g StaticGate) Configured() bool { return bool(g) }

type State string

const (
	StateUnconfigured State = "unconfigured"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Status is a snapshot of the connection state.
type Status struct {
	Configured bool       `json:"configured"`
	Connected  bool       `json:"connected"`
	State      State      `json:"state"`
	LastError  string     `json:"last_error,omitempty"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
	Attempts   int        `json:"attempts"`
}

type Options struct {
	ProbeRetries int
	ProbeBackoff time.Duration
	// Sleep waits between probe attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Seed runs after the first successful probe. Defaults to Seed with the
	// embedded defaults.
	Seed func(ctx context.Context, q db.DBTX) error
}

// Client implements db.DBTX on top of an optional connection.
type Client struct {
	conn   Conn
	opts   Options
	logger zerolog.Logger

	mu        sync.RWMutex
	state     State
	lastErr   string
	checkedAt time.Time
	attempts  int
	seeded    bool
}

// NewClient returns a client over conn. A nil conn yields a permanently
// unconfigured client.
func NewClient(conn Conn, opts Options, logger zerolog.Logger) *Client {
	if opts.ProbeRetries < 1 {
		opts.ProbeRetries = 3
	}
	if opts.ProbeBackoff <= 0 {
		opts.ProbeBackoff = time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Seed == nil {
		opts.Seed = func(ctx context.Context, q db.DBTX) error {
			return Seed(ctx, q, logger)
		}
	}

	state := StateConnecting
	if conn == nil {
		state = StateUnconfigured
	}
	return &Client{conn: conn, opts: opts, logger: logger, state: state}
}

func (c *Client) Configured() bool { return c != nil && c.conn != nil }

func (c *Client) Status() Status {
	if c == nil {
		return Status{State: StateUnconfigured}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		Configured: c.conn != nil,
		Connected:  c.state == StateConnected,
		State:      c.state,
		LastError:  c.lastErr,
		Attempts:   c.attempts,
	}
	if !c.checkedAt.IsZero() {
		t := c.checkedAt
		s.CheckedAt = &t
	}
	return s
}

func (c *Client) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	return c.conn.Query(ctx, sql, args...)
}

func (c *Client) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if !c.Configured() {
		return errRow{ErrNotConfigured}
	}
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *Client) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if !c.Configured() {
		return pgconn.CommandTag{}, ErrNotConfigured
	}
	return c.conn.Exec(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...interface{}) error { return r.err }

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
