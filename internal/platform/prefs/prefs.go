// Package prefs keeps small per-user UI preferences (theme, last selected
// department, refresh interval) as JSON values in Redis.
package prefs

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/cache"
)

const anonymousScope = "anonymous"

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

type Store struct {
	kv *cache.Store
}

func NewStore(kv *cache.Store) *Store {
	return &Store{kv: kv}
}

func storageKey(scope, key string) string {
	if scope == "" {
		scope = anonymousScope
	}
	return scope + ":" + key
}

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return apperr.Validation("invalid preference key %q", key)
	}
	return nil
}

// Get returns the stored value, or fallback when the key is absent, the
// store is disabled, or the stored bytes are not valid JSON.
func (s *Store) Get(ctx context.Context, scope, key string, fallback json.RawMessage) (json.RawMessage, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, ok, err := s.kv.GetRaw(ctx, storageKey(scope, key))
	if err != nil || !ok || !json.Valid(data) {
		return fallback, nil
	}
	return json.RawMessage(data), nil
}

func (s *Store) Set(ctx context.Context, scope, key string, value json.RawMessage) error {
	if err := validKey(key); err != nil {
		return err
	}
	if len(value) == 0 || !json.Valid(value) {
		return apperr.Validation("preference value must be valid JSON")
	}
	if err := s.kv.SetRaw(ctx, storageKey(scope, key), value); err != nil {
		if err == cache.ErrDisabled {
			return apperr.Unavailable("preferences storage not configured", err)
		}
		return apperr.Unavailable("preferences storage unavailable", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, scope, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, storageKey(scope, key)); err != nil {
		return apperr.Unavailable("preferences storage unavailable", err)
	}
	return nil
}
