// Package maxmemory bounds approximate keyspace memory use with an LRU
// eviction policy, the generalized descendant of a bounded in-memory
// cache's own eviction/janitor pair. Instead of owning storage itself,
// a Policy tracks access order and a byte budget alongside a
// store.Registry's dicts, and evicts through store.Database.DBDelete
// once that budget is crossed.
package maxmemory

import (
	"container/list"
	"sync"
)

// entry is the LRU list payload: enough to find a tracked key's owning
// database when it comes up for eviction.
type entry struct {
	dbID int
	key  string
	size int64
}

type dbKey struct {
	dbID int
	key  string
}

// Policy tracks approximate per-key memory use across a registry and
// decides which key to evict next once usage crosses MaxBytes. The zero
// value has no budget, ShouldEvict always reports false, use New to
// configure one with options.
type Policy struct {
	mu       sync.Mutex
	maxBytes int64
	overhead int64
	used     int64
	order    *list.List
	index    map[dbKey]*list.Element
	stats    Stats
}

// Option configures a Policy built by New.
type Option func(*Policy)

// WithMaxBytes sets the approximate byte budget; zero (the default)
// disables eviction entirely.
func WithMaxBytes(n int64) Option {
	return func(p *Policy) { p.maxBytes = n }
}

// WithKeyOverhead sets a flat per-key bookkeeping cost added to every
// tracked entry's measured size, approximating the dict-entry and
// encoding-header overhead a raw payload length wouldn't capture.
func WithKeyOverhead(n int64) Option {
	return func(p *Policy) { p.overhead = n }
}

// New builds a Policy from opts. With no WithMaxBytes, Touch/Forget
// still track access order for free, but ShouldEvict never reports true
// and EvictOne is never called.
func New(opts ...Option) *Policy {
	p := &Policy{
		order: list.New(),
		index: make(map[dbKey]*list.Element),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxBytes returns the configured budget, or 0 if eviction is disabled.
func (p *Policy) MaxBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxBytes
}

// Used returns the current estimated byte usage across all tracked keys.
func (p *Policy) Used() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Touch records key as just accessed or written in dbID with an
// approximate size in bytes. An existing entry moves to the front of
// the order and its size is updated in place; a new one is pushed to
// the front with the configured per-key overhead added on top.
func (p *Policy) Touch(dbID int, key string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := dbKey{dbID, key}
	total := size + p.overhead
	if e, ok := p.index[k]; ok {
		old := e.Value.(*entry)
		p.used += total - old.size
		old.size = total
		p.order.MoveToFront(e)
		return
	}
	e := &entry{dbID: dbID, key: key, size: total}
	p.index[k] = p.order.PushFront(e)
	p.used += total
}

// Forget stops tracking key in dbID, called after DEL, an expiry, or a
// FLUSHDB/FLUSHALL so stale entries don't hold the budget down forever.
func (p *Policy) Forget(dbID int, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.index[dbKey{dbID, key}]
	if !ok {
		return
	}
	p.removeElement(e)
}

// ForgetDB drops every entry tracked for dbID, for FLUSHDB.
func (p *Policy) ForgetDB(dbID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var next *list.Element
	for e := p.order.Front(); e != nil; e = next {
		next = e.Next()
		if e.Value.(*entry).dbID == dbID {
			p.removeElement(e)
		}
	}
}

// ForgetAll drops every tracked entry across every database, for
// FLUSHALL.
func (p *Policy) ForgetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order.Init()
	p.index = make(map[dbKey]*list.Element)
	p.used = 0
}

func (p *Policy) removeElement(e *list.Element) {
	it := e.Value.(*entry)
	p.order.Remove(e)
	delete(p.index, dbKey{it.dbID, it.key})
	p.used -= it.size
}

// ShouldEvict reports whether tracked usage currently exceeds MaxBytes.
func (p *Policy) ShouldEvict() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxBytes > 0 && p.used > p.maxBytes
}

// EvictOne removes and returns the least-recently-touched tracked key.
// The caller is responsible for actually deleting it from the owning
// store.Database, Policy only keeps the ordering, it never touches
// store.Registry itself.
func (p *Policy) EvictOne() (dbID int, key string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.order.Back()
	if e == nil {
		return 0, "", false
	}
	it := e.Value.(*entry)
	dbID, key = it.dbID, it.key
	p.removeElement(e)
	p.stats.evictions.Add(1)
	return dbID, key, true
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (p *Policy) Stats() Snapshot { return p.stats.snapshot() }

// RecordHit and RecordMiss feed the Stats hit-rate counters; callers
// report these from the same lookup path that calls Touch.
func (p *Policy) RecordHit()  { p.stats.hits.Add(1) }
func (p *Policy) RecordMiss() { p.stats.misses.Add(1) }
