package localstore

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	value     int64
	expiresAt time.Time
}

// Memory keeps entries in process. Used for dev runs and tests.
type Memory struct {
	mu       sync.Mutex
	data     map[string]string
	counters map[string]counter
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]string),
		counters: make(map[string]counter),
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// IncrWithTTL backs the auth rate limiter when no redis is configured.
func (m *Memory) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c, ok := m.counters[key]
	if !ok || (!c.expiresAt.IsZero() && !now.Before(c.expiresAt)) {
		c = counter{}
		if ttl > 0 {
			c.expiresAt = now.Add(ttl)
		}
	}
	c.value++
	m.counters[key] = c
	return c.value, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}
