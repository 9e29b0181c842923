package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a key is absent or expired
var ErrNotFound = errors.New("session: key not found")

// Store kinds
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

// Backend is a byte-oriented key/value store with per-entry expiry
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and deletes it atomically, so only one caller gets it
	Take(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// NewBackend selects a backend by kind. Redis and Badger handles are
// supplied by the caller so ownership stays in main.
func NewBackend(kind string, rdb RedisClient, badgerDB BadgerDB) (Backend, error) {
	switch strings.ToLower(kind) {
	case StoreMemory, "":
		return NewMemoryBackend(), nil
	case StoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("session store %q requires a redis client", kind)
		}
		return NewRedisBackend(rdb), nil
	case StoreBadger:
		if badgerDB == nil {
			return nil, fmt.Errorf("session store %q requires a badger database", kind)
		}
		return NewBadgerBackend(badgerDB), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", kind)
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend keeps entries in process memory
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Take(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, key)
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryBackend) Close() error { return nil }
