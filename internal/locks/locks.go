package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned when a lock is already held by another party.
var ErrHeld = errors.New("lock already held")

// Manager hands out mutual-exclusion locks keyed by string. Settlement uses
// one lock per market so competing settlement calls are rejected instead of
// interleaved.
type Manager interface {
	// Acquire attempts to obtain the lock for key. On success it returns a
	// release function that is safe to call more than once. If the lock is
	// held elsewhere it returns ErrHeld.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// LocalManager is the in-process Manager used for single-instance
// deployments and tests.
type LocalManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalManager() *LocalManager {
	return &LocalManager{held: make(map[string]struct{})}
}

func (m *LocalManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return nil, ErrHeld
	}
	m.held[key] = struct{}{}

	released := false
	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(m.held, key)
	}
	return release, nil
}
