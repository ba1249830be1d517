package maxmemory

import (
	"github.com/tempuskv/tempuskv/internal/reactor"
	"github.com/tempuskv/tempuskv/internal/store"
)

// EvictFunc deletes dbID's key from the registry and frees its value
// however the caller sees fit (inline or handed off to a lazy-free
// worker pool).
type EvictFunc func(reg *store.Registry, dbID int, key string)

// periodMs is how often the eviction sweep runs when armed on the
// reactor, eviction only needs to catch up with the write rate, not
// track it in real time, so this is no finer than the active-expire
// cycle's fast period (both are 100 ms).
const periodMs = 100

// ArmTimer registers the policy's eviction sweep as a reactor timer,
// eviction shares the same single-threaded scheduling seam every other
// periodic task in this engine uses, rather than running its own ticker
// goroutine against the keyspace.
func (p *Policy) ArmTimer(loop *reactor.EventLoop, reg *store.Registry, evict EvictFunc) int64 {
	var proc reactor.TimeProc
	proc = func(id int64) int64 {
		p.sweep(reg, evict)
		return periodMs
	}
	return loop.AddTimer(periodMs, proc, nil)
}

// sweep evicts keys until usage falls back under budget or there is
// nothing left to track.
func (p *Policy) sweep(reg *store.Registry, evict EvictFunc) {
	for p.ShouldEvict() {
		dbID, key, ok := p.EvictOne()
		if !ok {
			return
		}
		evict(reg, dbID, key)
	}
}
