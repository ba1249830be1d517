package store

import (
	"errors"
	"time"

	"github.com/tempuskv/tempuskv/internal/dict"
	"github.com/tempuskv/tempuskv/internal/value"
)

// ErrKeyExists is returned by DBAdd when the key is already present,
// DBAdd mirrors dbAdd's "program aborted if key exists" contract as an
// error return instead of a process abort.
var ErrKeyExists = errors.New("store: key already exists")

// ErrKeyNotExists is returned by DBOverwrite/RemoveExpire when the key is
// absent, mirrors dbOverwrite's/removeExpire's assert-on-missing-key
// contract.
var ErrKeyNotExists = errors.New("store: key does not exist")

// ExpirePolicy decides whether a key is logically expired and, if so, what
// to do about it (delete synchronously, defer to a master, etc). Database's
// lookup methods consult it so replication/AOF/lazy-free policy stays out
// of the keyspace mechanism. Wire a richer implementation (internal/expire's
// Cycle) via Database.ExpirePolicy; the zero value is defaultExpirePolicy,
// a synchronous always-delete policy suitable for a standalone server.
type ExpirePolicy interface {
	// ExpireIfNeeded reports whether key is logically expired, and as a
	// side effect deletes it from db per policy (master deletes now,
	// replica defers to the master's DEL).
	ExpireIfNeeded(db *Database, key string) (expired bool)
}

type defaultExpirePolicy struct{}

func (defaultExpirePolicy) ExpireIfNeeded(db *Database, key string) bool {
	when, ok := db.getExpireRaw(key)
	if !ok || time.Now().UnixMilli() <= when {
		return false
	}
	db.dbDeleteRaw(key)
	return true
}

// LookupRead looks up key for a read-only operation: expires it if due,
// updates the dict's LRU/LFU access clock, and returns (nil, false) if
// absent or expired. Mirrors lookupKeyRead.
func (db *Database) LookupRead(key string) (*value.Value, bool) {
	if db.expirePolicy().ExpireIfNeeded(db, key) {
		return nil, false
	}
	return db.lookupTouch(key)
}

// LookupWrite looks up key for a write operation: expires it if due (always
// deletes, even as a replica would for a write's own consistency), then
// returns the current value. Mirrors lookupKeyWrite.
func (db *Database) LookupWrite(key string) (*value.Value, bool) {
	db.expirePolicy().ExpireIfNeeded(db, key)
	return db.lookupTouch(key)
}

func (db *Database) lookupTouch(key string) (*value.Value, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.keys.FetchEntry(key)
	if !ok {
		return nil, false
	}
	v := e.Value.(*value.Value)
	v.Touch(value.CoarseLRUClock(time.Now()))
	return v, true
}

// PeekValue fetches key's current value with no expiry check and no LRU/LFU
// touch, for callers (internal/expire's active cycle) that already know a
// key is expiring and need its value before unlinking it, without
// re-entering ExpirePolicy.
func (db *Database) PeekValue(key string) (*value.Value, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.keys.FetchEntry(key)
	if !ok {
		return nil, false
	}
	return e.Value.(*value.Value), true
}

func (db *Database) expirePolicy() ExpirePolicy {
	db.mu.RLock()
	p := db.ExpirePolicy
	db.mu.RUnlock()
	if p == nil {
		return defaultExpirePolicy{}
	}
	return p
}

// DBAdd inserts val at key, which must not already exist. Mirrors dbAdd:
// signals the key ready for blocked clients if val is a list/zset, and
// updates the cluster slot index when enabled.
func (db *Database) DBAdd(key string, val *value.Value) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.keys.Add(key, val); err != nil {
		return ErrKeyExists
	}
	if val.Type == value.TypeList || val.Type == value.TypeZSet {
		db.readyKeys[key] = struct{}{}
	}
	if db.clusterEnabled {
		db.Cluster.Add(key)
	}
	return nil
}

// DBOverwrite replaces the value at an existing key without touching its
// expire entry. Mirrors dbOverwrite's explicit "does not modify the expire
// time" contract, callers wanting SET's replace-and-clear-TTL behavior
// call RemoveExpire themselves, as setGenericCommand does.
func (db *Database) DBOverwrite(key string, val *value.Value) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.keys.FetchEntry(key)
	if !ok {
		return ErrKeyNotExists
	}
	old := e.Value.(*value.Value)
	val.LRUOrLFU = old.LRUOrLFU
	e.Value = val
	return nil
}

// SetKey is the high-level "make key mean val, however it existed before"
// operation: adds or overwrites and clears any TTL. It does not notify
// watchers; callers do that through their own notification hook. Mirrors
// setKey. Every new key in the database should go through this
// unless the caller deliberately wants dbOverwrite's TTL-preserving
// behavior (e.g. SET ... KEEPTTL).
func (db *Database) SetKey(key string, val *value.Value) {
	if _, exists := db.LookupWrite(key); !exists {
		_ = db.DBAdd(key, val)
	} else {
		_ = db.DBOverwrite(key, val)
	}
	_ = db.RemoveExpire(key)
}

// Exists reports whether key is present, without touching expiry or LRU,
// mirrors dbExists's raw dictFind.
func (db *Database) Exists(key string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.keys.Find(key)
	return ok
}

// DBDelete removes key and its expire entry, reporting whether it existed.
// Mirrors dbSyncDelete. It never hands the value to internal/lazyfree;
// callers that want an async free look the value up and pass it to their
// lazy-free hook themselves.
func (db *Database) DBDelete(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.dbDeleteLocked(key)
}

func (db *Database) dbDeleteRaw(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.dbDeleteLocked(key)
}

func (db *Database) dbDeleteLocked(key string) bool {
	_ = db.expires.Delete(key)
	err := db.keys.Delete(key)
	if err == nil && db.clusterEnabled {
		db.Cluster.Del(key)
	}
	return err == nil
}

// RandomKey returns a uniformly random live key, expiring and retrying if
// the sampled entry turns out to be logically expired, mirrors
// dbRandomKey's retry loop, bounded the same way dict's RandomEntry is.
func (db *Database) RandomKey(randUint64 func() uint64) (string, bool) {
	for attempts := 0; attempts < 100; attempts++ {
		db.mu.RLock()
		e := db.keys.RandomEntry(randUint64)
		db.mu.RUnlock()
		if e == nil {
			return "", false
		}
		if db.expirePolicy().ExpireIfNeeded(db, e.Key) {
			continue
		}
		return e.Key, true
	}
	return "", false
}

// SampleExpireKeys draws up to count candidate keys from the expires table
// starting at cursor, for the active-expiration cycle's probabilistic scan.
// It does not check whether they're actually due, callers filter with
// GetExpire/ExpireIfNeeded, mirroring dictGetSomeKeys' "cheap statistical
// sample, not a verified list" contract that activeExpireCycle builds on.
func (db *Database) SampleExpireKeys(count int, cursor uint64, randUint64 func() uint64) (keys []string, nextCursor uint64) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if cursor == 0 && randUint64 != nil {
		cursor = randUint64()
	}
	entries, next := db.expires.GetSomeKeys(count, cursor)
	keys = make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, next
}

// EmptyDb removes every key and expire entry, returning the count removed.
// Mirrors emptyDb scoped to a single database; internal/server loops this
// across all databases for FLUSHALL.
func (db *Database) EmptyDb() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	removed := db.keys.Len()
	db.keys = dict.New()
	db.expires = dict.New()
	if db.clusterEnabled {
		db.Cluster.Flush()
	}
	return removed
}

// SetExpire sets key's absolute expiry time in unix milliseconds. key must
// already exist. Mirrors setExpire.
func (db *Database) SetExpire(key string, whenMs int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.keys.Find(key); !ok {
		return ErrKeyNotExists
	}
	db.expires.Replace(key, whenMs)
	return nil
}

// GetExpire returns key's absolute expiry time in unix milliseconds, or
// (-1, false) if key has no TTL. Mirrors getExpire.
func (db *Database) GetExpire(key string) (int64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.getExpireRawLocked(key)
}

func (db *Database) getExpireRaw(key string) (int64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.getExpireRawLocked(key)
}

func (db *Database) getExpireRawLocked(key string) (int64, bool) {
	if db.expires.Len() == 0 {
		return -1, false
	}
	v, ok := db.expires.Find(key)
	if !ok {
		return -1, false
	}
	return v.(int64), true
}

// RemoveExpire clears key's TTL, making it persistent. key must already
// exist in the main dict (mirrors removeExpire's assert).
func (db *Database) RemoveExpire(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.keys.Find(key); !ok {
		return ErrKeyNotExists
	}
	_ = db.expires.Delete(key)
	return nil
}

// Registry holds every numbered database a server exposes and implements
// SELECT/SWAPDB at the top level (swapDatabases only makes sense across two
// entries in the same registry).
type Registry struct {
	dbs []*Database
}

// NewRegistry creates count empty databases, numbered 0..count-1.
func NewRegistry(count int) *Registry {
	r := &Registry{dbs: make([]*Database, count)}
	for i := range r.dbs {
		r.dbs[i] = NewDatabase(i)
	}
	return r
}

// Select returns database id, or an error if out of range. Mirrors
// selectDb's bounds check (the client-pointer reassignment itself is
// internal/server's concern).
func (r *Registry) Select(id int) (*Database, error) {
	if id < 0 || id >= len(r.dbs) {
		return nil, errors.New("store: DB index is out of range")
	}
	return r.dbs[id], nil
}

// Count returns the number of databases in the registry.
func (r *Registry) Count() int { return len(r.dbs) }

// Swap exchanges the dict/expires/avgTTL state of two databases in place,
// their blocking_keys/ready_keys/watched_keys stay put so clients remain
// attached to the same logical db after the swap. Mirrors dbSwapDatabases.
func (r *Registry) Swap(id1, id2 int) error {
	if id1 < 0 || id1 >= len(r.dbs) || id2 < 0 || id2 >= len(r.dbs) {
		return errors.New("store: DB index is out of range")
	}
	if id1 == id2 {
		return nil
	}
	a, b := r.dbs[id1], r.dbs[id2]
	a.mu.Lock()
	b.mu.Lock()
	a.keys, b.keys = b.keys, a.keys
	a.expires, b.expires = b.expires, a.expires
	a.avgTTL, b.avgTTL = b.avgTTL, a.avgTTL
	b.mu.Unlock()
	a.mu.Unlock()
	return nil
}

// EmptyAll flushes every database in the registry, returning the total keys
// removed. Mirrors emptyDb(-1, ...).
func (r *Registry) EmptyAll() int {
	total := 0
	for _, db := range r.dbs {
		total += db.EmptyDb()
	}
	return total
}
