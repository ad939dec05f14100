package memory

import (
	"context"
	"sync"
	"time"

	"fulfillment/internal/pkg/clock"
)

// EntityLocker is a ports.EntityLocker for a single process. A lock whose ttl
// ran out may be taken by the next caller.
type EntityLocker struct {
	mu    sync.Mutex
	clock clock.Clock
	held  map[string]lease
	seq   uint64
}

type lease struct {
	token   uint64
	expires time.Time
}

func NewEntityLocker(clk clock.Clock) *EntityLocker {
	return &EntityLocker{clock: clk, held: map[string]lease{}}
}

// TryLock never blocks and never fails. The returned unlock only frees the lock
// it took, so a holder whose ttl ran out cannot release the next one.
func (l *EntityLocker) TryLock(
	_ context.Context,
	key string,
	ttl time.Duration,
) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if current, ok := l.held[key]; ok && now.Before(current.expires) {
		return nil, false, nil
	}

	l.seq++
	token := l.seq
	l.held[key] = lease{token: token, expires: now.Add(ttl)}

	unlock := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.token == token {
			delete(l.held, key)
		}
		return nil
	}
	return unlock, true, nil
}
