package session

import (
	"context"
	"sync"
	"time"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// MockLocker implements Locker using an in-memory map (tests, single-process servers).
type MockLocker struct {
	leases      map[string]*model.Lease
	mu          sync.Mutex
	ttlDuration time.Duration
}

// NewMockLocker creates a new MockLocker with the default TTL.
func NewMockLocker() *MockLocker {
	return &MockLocker{
		leases:      make(map[string]*model.Lease),
		ttlDuration: DefaultLeaseTTL,
	}
}

func (m *MockLocker) Acquire(ctx context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	if existing, ok := m.leases[name]; ok {
		if existing.ExpiresAt > now && existing.Owner != owner {
			return ErrLeaseHeld
		}
	}

	m.leases[name] = &model.Lease{
		Name:      name,
		Owner:     owner,
		ExpiresAt: now + int64(m.ttlDuration.Seconds()),
	}
	return nil
}

func (m *MockLocker) Release(ctx context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.leases[name]; ok && existing.Owner == owner {
		delete(m.leases, name)
	}
	return nil
}
