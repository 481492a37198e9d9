// Package store persists profile history and alert configuration to local
// key-value storage. Persistence is strictly optional: a missing, disabled
// or corrupt store degrades to empty history, never a startup failure.
package store

import (
	"context"
	"errors"
	"sync"
)

// Documented storage keys for the persisted blobs.
const (
	KeyProfiles    = "rendertune/profiles"
	KeyAlertConfig = "rendertune/alert-config"
)

// ErrNotFound signals that a key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Provider defines the minimal key-value operations the engine needs.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NoopProvider implements Provider but never stores data. Used when
// persistence is disabled.
type NoopProvider struct{}

// Get always returns ErrNotFound.
func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

// Set discards the value and returns nil.
func (NoopProvider) Set(context.Context, string, []byte) error { return nil }

// Delete is a no-op.
func (NoopProvider) Delete(context.Context, string) error { return nil }

// Close is a no-op.
func (NoopProvider) Close() error { return nil }

// MemoryProvider is an in-process Provider for tests and ephemeral runs.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryProvider constructs an empty in-memory store.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

// Get returns the stored value or ErrNotFound.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of the value.
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

// Delete removes the key.
func (m *MemoryProvider) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryProvider) Close() error { return nil }
