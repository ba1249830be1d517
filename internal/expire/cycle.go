// Package expire implements TTL policy: the replication/AOF-aware lazy
// check store.Database delegates to, and a periodic active-expiration
// sweep driven by the reactor's timer facility.
//
// internal/store owns the mechanism (the parallel expires dict); this
// package owns policy (when a key actually gets evicted, what gets
// propagated, and the background sampling loop), matching the split
// original_source/db.c draws between keyIsExpired/expireIfNeeded (policy,
// consulting server.masterhost and the lazy-free config) and the dict
// itself (mechanism).
package expire

import (
	"time"

	"github.com/tempuskv/tempuskv/internal/reactor"
	"github.com/tempuskv/tempuskv/internal/store"
	"github.com/tempuskv/tempuskv/internal/value"
)

// Role distinguishes a master (which actively deletes and propagates) from
// a replica (which defers deletion to the master's own DEL, but still
// reports expired keys as logically absent to readers).
type Role int

const (
	RoleMaster Role = iota
	RoleReplica
)

// Propagator receives the synthetic DEL/UNLINK an expiry produces, for
// fan-out to replicas and the AOF, mirrors propagateExpire.
type Propagator interface {
	PropagateExpire(dbID int, key string, lazy bool)
}

type noopPropagator struct{}

func (noopPropagator) PropagateExpire(int, string, bool) {}

// NotifyFunc emits a keyspace notification; wired to internal/pubsub's
// router. Nil is a valid, silent default.
type NotifyFunc func(class, event, key string, dbID int)

// Cycle implements store.ExpirePolicy plus the active sweep. One Cycle is
// shared across every database in a Registry.
type Cycle struct {
	Role       Role
	Propagator Propagator
	Notify     NotifyFunc
	LazyFree   bool // mirrors server.lazyfree_lazy_expire

	// FreeFunc, when LazyFree is true, receives the expiring value instead
	// of letting the reactor goroutine that's running this cycle pay for
	// deallocating it inline, wired to internal/lazyfree.Worker.Free by
	// internal/server. Nil is a valid, silent default (equivalent to
	// LazyFree being false).
	FreeFunc func(v *value.Value)

	// Now returns the authoritative clock, frozen for the duration of a
	// script execution elsewhere in the engine (lua_time_start), kept as
	// an injected func so a single frozen instant can be threaded through
	// without a global.
	Now func() int64

	// fastPeriodMs/slowPeriodMs are the two active-cycle cadences; the
	// cycle stays on the fast period while current_perc (the trailing
	// expired-ratio average) suggests more due keys are likely still
	// queued, and relaxes to the slow period once a pass comes back
	// mostly empty.
	fastPeriodMs int64
	slowPeriodMs int64
	currentPerc  float64
}

// NewCycle returns a master-role Cycle with no-op propagation/notification,
// using the wall clock. Override fields after construction as needed.
func NewCycle() *Cycle {
	return &Cycle{
		Role:         RoleMaster,
		Propagator:   noopPropagator{},
		Now:          func() int64 { return time.Now().UnixMilli() },
		fastPeriodMs: 100,
		slowPeriodMs: 1000,
	}
}

// ExpireIfNeeded implements store.ExpirePolicy. Mirrors expireIfNeeded: a
// replica reports expiry without deleting (the master's DEL will arrive
// over replication); a master deletes synchronously or hands off to
// lazyfree depending on LazyFree, then propagates and notifies.
func (c *Cycle) ExpireIfNeeded(db *store.Database, key string) bool {
	when, ok := db.GetExpire(key)
	if !ok || c.now() <= when {
		return false
	}
	if c.Role == RoleReplica {
		return true
	}
	c.Propagator.PropagateExpire(db.ID, key, c.LazyFree)
	if c.Notify != nil {
		c.Notify("EXPIRED", "expired", key, db.ID)
	}
	var v *value.Value
	if c.LazyFree && c.FreeFunc != nil {
		v, _ = db.PeekValue(key)
	}
	db.DBDelete(key)
	if v != nil {
		c.FreeFunc(v)
	}
	return true
}

func (c *Cycle) now() int64 {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UnixMilli()
}

// sampleSize is how many expires entries one sampling round inspects per
// database per pass, matches the original's ACTIVE_EXPIRE_CYCLE_KEYS_PER_LOOP
// default of 20.
const sampleSize = 20

// expiredRatioThreshold is the adaptive-continuation cutoff: keep sampling
// this database's expires table while at least this fraction of the last
// sample was due.
const expiredRatioThreshold = 0.25

// RunOnce performs one active-expiration pass over every database in reg,
// bounded by budget wall-clock time. Mirrors activeExpireCycle's per-db
// loop: sample sampleSize keys, expire the due ones, and keep sampling
// that database while the due ratio exceeds expiredRatioThreshold, subject
// to the shared time budget.
func (c *Cycle) RunOnce(reg *store.Registry, budget time.Duration, randUint64 func() uint64) {
	if c.Role == RoleReplica {
		return
	}
	deadline := time.Now().Add(budget)
	totalSampled, totalExpired := 0, 0

	for i := 0; i < reg.Count(); i++ {
		db, err := reg.Select(i)
		if err != nil {
			continue
		}
		if db.ExpiresSize() == 0 {
			continue
		}
		cursor := uint64(0)
		for {
			if time.Now().After(deadline) {
				c.updatePerc(totalSampled, totalExpired)
				return
			}
			sampled, expired, next := c.sampleOnce(db, cursor, randUint64)
			totalSampled += sampled
			totalExpired += expired
			cursor = next
			if sampled == 0 || float64(expired)/float64(sampled) < expiredRatioThreshold {
				break
			}
		}
	}
	c.updatePerc(totalSampled, totalExpired)
}

func (c *Cycle) sampleOnce(db *store.Database, cursor uint64, randUint64 func() uint64) (sampled, expired int, nextCursor uint64) {
	keys, next := db.SampleExpireKeys(sampleSize, cursor, randUint64)
	for _, key := range keys {
		sampled++
		if c.ExpireIfNeeded(db, key) {
			expired++
		}
	}
	return sampled, expired, next
}

func (c *Cycle) updatePerc(sampled, expired int) {
	if sampled == 0 {
		c.currentPerc = 0
		return
	}
	ratio := float64(expired) / float64(sampled)
	// Exponential moving average, matching activeExpireCycleTryExpire's
	// intent to smooth out bursts rather than react to one noisy sample.
	const alpha = 0.2
	c.currentPerc = alpha*ratio + (1-alpha)*c.currentPerc
}

// FastMode reports whether the cycle believes more due keys remain queued
// (so the periodic timer should re-arm at the fast period rather than the
// slow one).
func (c *Cycle) FastMode() bool { return c.currentPerc > expiredRatioThreshold }

// NextPeriodMs returns the delay in milliseconds before the next active
// cycle should run, reflecting FastMode.
func (c *Cycle) NextPeriodMs() int64 {
	if c.FastMode() {
		return c.fastPeriodMs
	}
	return c.slowPeriodMs
}

// ArmTimer registers the active-expiration cycle as a reactor timer,
// re-arming itself at NextPeriodMs after every run, the Go analogue of
// the server cron calling activeExpireCycle on a fixed hz tick, generalized
// to an adaptive fast/slow cadence.
func (c *Cycle) ArmTimer(loop *reactor.EventLoop, reg *store.Registry, randUint64 func() uint64) int64 {
	var proc reactor.TimeProc
	proc = func(id int64) int64 {
		c.RunOnce(reg, time.Millisecond, randUint64)
		return c.NextPeriodMs()
	}
	return loop.AddTimer(c.fastPeriodMs, proc, nil)
}
