package appointment

import (
	"context"
	"sync"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

// localLocker serializes bookings per slot inside one process. It is used when
// no Redis instance is configured and in tests.
type localLocker struct {
	mu    sync.Mutex
	slots map[string]*slotMutex
}

type slotMutex struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() redisclient.Locker {
	return &localLocker{slots: make(map[string]*slotMutex)}
}

func (l *localLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	m := l.acquireRef(key)
	defer l.releaseRef(key, m)

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.ch }()

	return fn(ctx)
}

func (l *localLocker) acquireRef(key string) *slotMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.slots[key]
	if !ok {
		m = &slotMutex{ch: make(chan struct{}, 1)}
		l.slots[key] = m
	}
	m.refs++
	return m
}

func (l *localLocker) releaseRef(key string, m *slotMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(l.slots, key)
	}
}
