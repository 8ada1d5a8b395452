package tokenstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Memory is an in-process Store with TTL expiry. Suitable for tests and
// single-instance deployments without Redis.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemory creates an in-memory store. A ttl of zero means DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, payload any) (string, error) {
	data, err := marshal(payload)
	if err != nil {
		return "", err
	}

	token := newToken()
	m.mu.Lock()
	m.entries[token] = memoryEntry{data: data, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return token, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, token string, out any) error {
	m.mu.RLock()
	entry, ok := m.entries[token]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		return ErrNotFound
	}
	return json.Unmarshal(entry.data, out)
}

// Close stops the background janitor.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	for token, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, token)
		}
	}
	m.mu.Unlock()
}
