// Package store implements the keyspace: one Database per logical DB index,
// backed by internal/dict, plus the collaborator seams (replication, AOF,
// cluster slots) the engine core talks to without depending on their
// concrete implementations.
package store

import (
	"sync"

	"github.com/tempuskv/tempuskv/internal/dict"
)

// ReplicationFeed receives propagated write commands for fan-out to
// replicas. The default implementation is a no-op so the core runs
// standalone.
type ReplicationFeed interface {
	Propagate(dbID int, args []string)
}

// AppendOnlyFeed receives propagated write commands for the append-only log.
type AppendOnlyFeed interface {
	Feed(dbID int, args []string)
}

// ClusterSlotIndex tracks which hash slot each key belongs to, for cluster
// mode's key migration bookkeeping. A standalone server wires a no-op.
type ClusterSlotIndex interface {
	Add(key string)
	Del(key string)
	Flush()
}

type noopReplicationFeed struct{}

func (noopReplicationFeed) Propagate(int, []string) {}

type noopAppendOnlyFeed struct{}

func (noopAppendOnlyFeed) Feed(int, []string) {}

type noopClusterSlotIndex struct{}

func (noopClusterSlotIndex) Add(string) {}
func (noopClusterSlotIndex) Del(string) {}
func (noopClusterSlotIndex) Flush()     {}

// Database is one numbered keyspace: the main dict, the parallel expires
// dict (keys present here are a subset of the main dict's keys), and the
// bookkeeping a blocking-command / WATCH layer needs.
//
// A Database is not safe for concurrent use from multiple goroutines; the
// reactor's single-threaded tick is what makes that safe in practice. The
// mutex here exists only to guard the rare cross-goroutine read (stats
// reporting, admin commands) from the reactor goroutine's writes.
type Database struct {
	mu sync.RWMutex

	ID int

	keys    *dict.Dict
	expires *dict.Dict

	// watchedKeys maps a key to the set of client IDs that WATCH it; used
	// by internal/txn to invalidate transactions touching dirtied keys.
	watchedKeys map[string]map[int64]struct{}

	// readyKeys tracks list/zset keys that became non-empty this tick, so
	// blocked clients (BLPOP family) can be woken without a full scan.
	readyKeys map[string]struct{}

	avgTTL float64

	Repl    ReplicationFeed
	AOF     AppendOnlyFeed
	Cluster ClusterSlotIndex

	// ExpirePolicy governs lazy-expiration side effects (replication,
	// lazy-free deletion). Nil uses a synchronous always-delete default;
	// see keyspace.go's expirePolicy().
	ExpirePolicy ExpirePolicy

	clusterEnabled bool
}

// NewDatabase constructs an empty database with id as its logical index.
// Collaborator interfaces default to no-ops; wire real ones via the Repl/
// AOF/Cluster fields once constructed (internal/server keeps the no-op
// defaults).
func NewDatabase(id int) *Database {
	return &Database{
		ID:          id,
		keys:        dict.New(),
		expires:     dict.New(),
		watchedKeys: make(map[string]map[int64]struct{}),
		readyKeys:   make(map[string]struct{}),
		Repl:        noopReplicationFeed{},
		AOF:         noopAppendOnlyFeed{},
		Cluster:     noopClusterSlotIndex{},
	}
}

// Size returns the number of keys, including logically-expired ones not yet
// reaped (matches DBSIZE's dictSize semantics).
func (db *Database) Size() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.keys.Len()
}

// ExpiresSize returns the number of keys carrying a TTL.
func (db *Database) ExpiresSize() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.expires.Len()
}

// Watch registers clientID as watching key, for WATCH's CAS-dirty tracking.
func (db *Database) Watch(key string, clientID int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	set, ok := db.watchedKeys[key]
	if !ok {
		set = make(map[int64]struct{})
		db.watchedKeys[key] = set
	}
	set[clientID] = struct{}{}
}

// Unwatch removes clientID from every key it was watching.
func (db *Database) Unwatch(clientID int64, keys []string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, key := range keys {
		if set, ok := db.watchedKeys[key]; ok {
			delete(set, clientID)
			if len(set) == 0 {
				delete(db.watchedKeys, key)
			}
		}
	}
}

// TouchWatchers returns the client IDs watching key, for internal/txn to
// mark dirty on any mutation (signalModifiedKey's WATCH side).
func (db *Database) TouchWatchers(key string) []int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	set, ok := db.watchedKeys[key]
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// MarkReady records that key (a list/zset) became non-empty, for a blocking
// command dispatcher to drain after the current command finishes.
func (db *Database) MarkReady(key string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.readyKeys[key] = struct{}{}
}

// DrainReady returns and clears the set of keys marked ready since the last
// call, mirrors server.c's per-tick ready_keys list processed after each
// command.
func (db *Database) DrainReady() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.readyKeys) == 0 {
		return nil
	}
	out := make([]string, 0, len(db.readyKeys))
	for k := range db.readyKeys {
		out = append(out, k)
	}
	db.readyKeys = make(map[string]struct{})
	return out
}

// EnableCluster flips on slot-index bookkeeping on dbAdd/dbDelete, mirroring
// server.cluster_enabled gating slotToKeyAdd/Del calls in db.c.
func (db *Database) EnableCluster(enabled bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.clusterEnabled = enabled
}
