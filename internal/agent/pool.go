package agent

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// BuildFunc constructs a handle for a session.
type BuildFunc func(sessionID string) (*Handle, error)

// PoolConfig configures a Pool. Zero values pick the defaults.
type PoolConfig struct {
	TTL        time.Duration
	MaxHandles int
	Build      BuildFunc
}

// Pool caches execution handles by session id with LRU and idle-TTL
// eviction. It holds no session state; the Store is the only authority.
type Pool struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxHandles int

	lru *list.List               // front=MRU
	m   map[string]*list.Element // id -> element(Value=*poolItem)

	build BuildFunc
	group singleflight.Group
	now   func() time.Time
}

type poolItem struct {
	id       string
	h        *Handle
	lastUsed time.Time
}

// NewPool creates a pool. TTL defaults to 30 minutes and MaxHandles to 64.
func NewPool(cfg PoolConfig) *Pool {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	maxHandles := cfg.MaxHandles
	if maxHandles <= 0 {
		maxHandles = 64
	}
	return &Pool{
		ttl:        ttl,
		maxHandles: maxHandles,
		lru:        list.New(),
		m:          map[string]*list.Element{},
		build:      cfg.Build,
		now:        time.Now,
	}
}

// ProfileBuilder returns a BuildFunc that loads the named profile for
// every new handle.
func ProfileBuilder(loader *Loader, profile string) BuildFunc {
	return func(sessionID string) (*Handle, error) {
		p, err := loader.Load(profile)
		if err != nil {
			return nil, err
		}
		return &Handle{SessionID: sessionID, Profile: *p, CreatedAt: time.Now().UTC()}, nil
	}
}

// Get returns the cached handle for id or builds one. Concurrent misses
// for the same id share one build.
func (p *Pool) Get(ctx context.Context, id string) (*Handle, error) {
	if h, ok := p.lookup(id); ok {
		return h, nil
	}

	ch := p.group.DoChan(id, func() (any, error) {
		h, err := p.build(id)
		if err != nil {
			return nil, err
		}
		p.insert(id, h)
		return h, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Evict drops the handle for id, if any.
func (p *Pool) Evict(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.m[id]; e != nil {
		p.deleteElemLocked(e)
	}
}

// Len returns the number of live handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictExpiredLocked(p.now())
	return p.lru.Len()
}

func (p *Pool) lookup(id string) (*Handle, bool) {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictExpiredLocked(now)

	e := p.m[id]
	if e == nil {
		return nil, false
	}
	it := e.Value.(*poolItem)
	it.lastUsed = now
	p.lru.MoveToFront(e)
	return it.h, true
}

func (p *Pool) insert(id string, h *Handle) {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if e := p.m[id]; e != nil {
		it := e.Value.(*poolItem)
		it.h = h
		it.lastUsed = now
		p.lru.MoveToFront(e)
		return
	}
	p.m[id] = p.lru.PushFront(&poolItem{id: id, h: h, lastUsed: now})
	p.evictOverLimitLocked()
}

func (p *Pool) evictExpiredLocked(now time.Time) {
	for e := p.lru.Back(); e != nil; {
		prev := e.Prev()
		if now.Sub(e.Value.(*poolItem).lastUsed) <= p.ttl {
			break
		}
		p.deleteElemLocked(e)
		e = prev
	}
}

func (p *Pool) evictOverLimitLocked() {
	for p.lru.Len() > p.maxHandles {
		p.deleteElemLocked(p.lru.Back())
	}
}

func (p *Pool) deleteElemLocked(e *list.Element) {
	delete(p.m, e.Value.(*poolItem).id)
	p.lru.Remove(e)
}
