// Package storage persists small JSON documents (annotations, notification
// settings, saved filters) under string keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys under which the client persists its state.
const (
	KeyAnnotations          = "ids-top.annotations"
	KeyNotificationSettings = "ids-top.notification-settings"
	KeySavedFilters         = "ids-top.saved-filters"
)

// ErrNotFound is returned by Load when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// KV is a string key/value store. Writers replace the whole value; there is
// no cross-process locking, the last writer wins.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// LoadJSON decodes the value under key into v. It returns ErrNotFound
// unchanged so callers can fall back to defaults.
func LoadJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := kv.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return kv.Save(ctx, key, data)
}
