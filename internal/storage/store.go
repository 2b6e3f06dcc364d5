package storage

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"
)

var (
	// ErrKeyNotFound is returned by Get for a key that was never stored or was deleted.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyKey is returned by Put when the key is empty.
	ErrEmptyKey = errors.New("key must not be empty")

	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Store is a flat byte-value store keyed by string.
// Implementations are safe for concurrent use and never hand out slices
// that alias their own memory.
type Store interface {
	// Get returns a copy of the value, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Put stores a copy of value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// List returns every key in ascending byte order.
	List() ([]string, error)

	Stats() (StoreStats, error)

	// Close releases the store. Later calls fail with ErrClosed.
	Close() error
}

// StoreStats summarises store contents.
type StoreStats struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"` // sum of value lengths
}

// MemoryStore keeps values in a map. Its contents are lost on Close.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.values[key] = slices.Clone(value)
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	delete(m.values, key)
	return nil
}

func (m *MemoryStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *MemoryStore) Stats() (StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return StoreStats{}, ErrClosed
	}

	stats := StoreStats{Keys: len(m.values)}
	for _, v := range m.values {
		stats.Bytes += len(v)
	}
	return stats, nil
}

// Close drops the contents. Closing twice is not an error.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.values = nil
	return nil
}
