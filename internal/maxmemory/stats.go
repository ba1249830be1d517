package maxmemory

import "sync/atomic"

// Stats holds atomic hit/miss/eviction counters, read without needing
// Policy's own lock.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Snapshot is a point-in-time copy of Stats, safe to log or serve over
// an INFO-style command.
type Snapshot struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}
