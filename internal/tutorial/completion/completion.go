// Package completion persists the tour completion flag: a single boolean
// written when the tour is skipped or finished and read when deciding
// whether to show it again.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Key is the storage key of the completion flag.
const Key = "bitcoinpitch_tutorial_completed"

const markedValue = "true"

// ErrStoreUnavailable reports a flag operation without a backing store.
var ErrStoreUnavailable = errors.New("completion store is not configured")

// Store is a durable string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Flag is the completion marker for one scope (a visitor, or the whole
// process when scope is empty).
type Flag struct {
	store Store
	key   string
}

// NewFlag returns the flag stored under Key, namespaced by scope.
func NewFlag(store Store, scope string) Flag {
	key := Key
	if scope = strings.TrimSpace(scope); scope != "" {
		key = scope + ":" + Key
	}
	return Flag{store: store, key: key}
}

// StorageKey returns the key the flag is persisted under.
func (f Flag) StorageKey() string {
	return f.key
}

// IsSet reports whether the flag was persisted. Read failures count as not set.
func (f Flag) IsSet(ctx context.Context) bool {
	set, err := f.Lookup(ctx)
	return err == nil && set
}

// Lookup reads the flag, surfacing store failures.
func (f Flag) Lookup(ctx context.Context) (bool, error) {
	if f.store == nil {
		return false, ErrStoreUnavailable
	}
	value, ok, err := f.store.Get(ctx, f.key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", f.key, err)
	}
	return ok && value != "", nil
}

// Mark persists the flag.
func (f Flag) Mark(ctx context.Context) error {
	if f.store == nil {
		return ErrStoreUnavailable
	}
	if err := f.store.Set(ctx, f.key, markedValue); err != nil {
		return fmt.Errorf("write %s: %w", f.key, err)
	}
	return nil
}

// Clear removes the flag so the tour shows again.
func (f Flag) Clear(ctx context.Context) error {
	if f.store == nil {
		return ErrStoreUnavailable
	}
	if err := f.store.Delete(ctx, f.key); err != nil {
		return fmt.Errorf("delete %s: %w", f.key, err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Close is a no-op so MemoryStore can stand in for closable backends.
func (s *MemoryStore) Close() error {
	return nil
}
