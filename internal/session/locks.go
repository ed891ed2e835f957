package session

import (
	"context"
	"sync"
)

// Locks serializes mutating operations per session id. Different ids never
// contend. Entries are reference counted and dropped when unused.
type Locks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{m: make(map[string]*keyLock)}
}

// Lock blocks until the lock for id is held or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (l *Locks) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	kl := l.m[id]
	if kl == nil {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.m[id] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return func() {
			<-kl.ch
			l.release(id, kl)
		}, nil
	case <-ctx.Done():
		l.release(id, kl)
		return nil, ctx.Err()
	}
}

func (l *Locks) release(id string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.m, id)
	}
}

// Len returns the number of ids with a holder or waiter.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
