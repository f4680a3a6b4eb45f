package datastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
)

// Result is the outcome of a store operation. Exactly one of Data and Err is
// set. It encodes as {"data": ..., "error": ...}.
type Result[T any] struct {
	Data *T
	Err  error
}

func (r Result[T]) OK() bool { return r.Err == nil }

func (r Result[T]) MarshalJSON() ([]byte, error) {
	env := struct {
		Data  *T      `json:"data"`
		Error *string `json:"error"`
	}{Data: r.Data}
	if r.Err != nil {
		msg := apperr.Message(r.Err)
		env.Data = nil
		env.Error = &msg
	}
	return json.Marshal(env)
}

// Safe runs fn unless the store is unconfigured. Errors and panics raised by
// fn are captured in the Result and logged; Safe itself never fails.
func Safe[T any](ctx context.Context, g Gate, fn func(ctx context.Context) (T, error)) (res Result[T]) {
	logger := zerolog.Ctx(ctx)

	if g == nil || !g.Configured() {
		return Result[T]{Err: ErrNotConfigured}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("store operation panicked")
			res = Result[T]{Err: fmt.Errorf("store operation panicked: %v", r)}
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		ev := logger.Warn()
		if apperr.KindOf(err) == apperr.KindInternal {
			ev = logger.Error()
		}
		ev.Err(err).Msg("store operation failed")
		return Result[T]{Err: err}
	}
	return Result[T]{Data: &v}
}

// Exec is Safe for operations that produce no value.
func Exec(ctx context.Context, g Gate, fn func(ctx context.Context) error) Result[struct{}] {
	return Safe(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}
