package cache

import (
	"context"
	"sync"
	"time"

	"tapx-earn-go/internal/models"
)

// Memory is the in-process settings cache used when no Redis is configured.
// A zero ttl disables caching.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	value   *models.Settings
	expires time.Time
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) Get(_ context.Context) (*models.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.value == nil || !m.now().Before(m.expires) {
		return nil, false, nil
	}
	c := *m.value
	return &c, true, nil
}

func (m *Memory) Set(_ context.Context, s *models.Settings) error {
	if m.ttl <= 0 {
		return nil
	}
	c := *s
	m.mu.Lock()
	m.value = &c
	m.expires = m.now().Add(m.ttl)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context) error {
	m.mu.Lock()
	m.value = nil
	m.mu.Unlock()
	return nil
}
