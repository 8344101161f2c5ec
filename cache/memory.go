package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Cache for tests and single-node deployments
// without Redis. Expired entries are evicted lazily on Get.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// FlushPrefix deletes every entry whose key starts with prefix.
func (m *Memory) FlushPrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len reports the number of live entries (expired ones included until read).
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
