// Package lock serializes turns that share a (bot, session) key.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock could not be acquired within the wait bound.
var ErrLockTimeout = errors.New("timed out waiting for turn lock")

// Locker grants exclusive access to a key. The returned release func must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// TurnKey returns the lock key of a (bot, session) pair.
func TurnKey(botID int64, userSession string) string {
	return fmt.Sprintf("bot:%d:session:%s", botID, userSession)
}

// Memory is an in-process Locker. Entries are reference counted and dropped
// once no caller holds or waits for them.
type Memory struct {
	wait time.Duration

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	slot chan struct{}
	refs int
}

// NewMemory creates an in-process locker. A non-positive wait means callers
// wait until their context is done.
func NewMemory(wait time.Duration) *Memory {
	return &Memory{
		wait:    wait,
		entries: make(map[string]*memoryEntry),
	}
}

var _ Locker = (*Memory)(nil)

// Acquire implements Locker.
func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{slot: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	waitCtx, cancel := withWait(ctx, m.wait)
	defer cancel()

	select {
	case entry.slot <- struct{}{}:
	case <-waitCtx.Done():
		m.unref(key, entry)
		return nil, waitError(ctx, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			m.unref(key, entry)
		})
	}, nil
}

func (m *Memory) unref(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

// size is the number of live entries.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// waitError reports a caller cancellation as-is and anything else as a timeout.
func waitError(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrLockTimeout, key)
}
