package dict

import "fmt"

// Iterator walks every entry of a Dict. Two flavors share this type:
//
//   - Safe iterators (NewIterator) increment the table's iterator counter for
//     their lifetime, which pauses rehashStep; Release must be called exactly
//     once to let rehashing resume.
//   - Unsafe iterators (NewUnsafeIterator) take a fingerprint of the table's
//     shape at creation and compare it again at Release; any mutation during
//     iteration changes the fingerprint and Release reports it as a
//     programming error rather than silently returning corrupted results.
type Iterator struct {
	d           *Dict
	safe        bool
	fingerprint uint64
	tableIdx    int
	bucketIdx   int
	cur         *Entry
	released    bool
}

// NewIterator returns a safe iterator: no mutation restriction, but rehash
// progress is suspended until Release.
func (d *Dict) NewIterator() *Iterator {
	d.iterators++
	return &Iterator{d: d, safe: true}
}

// NewUnsafeIterator returns an iterator that does not pause rehashing and
// therefore forbids mutating the dict for its lifetime.
func (d *Dict) NewUnsafeIterator() *Iterator {
	return &Iterator{d: d, safe: false, fingerprint: d.fingerprint()}
}

// fingerprint folds each table's index, bucket count, used count and bucket
// slice capacity, plus rehashIdx, into one value; it changes if (and with
// very high probability only if) the table's shape changes between two
// observations. Mirrors dict.c's dictFingerprint, except that no table
// pointers are mixed in, since Go has no stable pointer-to-integer cast for
// a growable slice backing array.
func (d *Dict) fingerprint() uint64 {
	var hash uint64
	mix := func(x uint64) {
		hash = (hash ^ x) * 2654435761
		hash = hash ^ (hash >> 29)
	}
	for i, t := range d.tables {
		mix(uint64(i))
		mix(uint64(len(t.buckets)))
		mix(uint64(t.used))
		mix(uint64(cap(t.buckets)))
	}
	mix(uint64(d.rehashIdx))
	return hash
}

// Next advances the iterator, returning (entry, true) or (nil, false) when
// exhausted.
func (it *Iterator) Next() (*Entry, bool) {
	for {
		if it.cur != nil {
			it.cur = it.cur.next
		}
		for it.cur == nil {
			if it.tableIdx >= len(it.d.tables) {
				return nil, false
			}
			t := it.d.tables[it.tableIdx]
			if it.tableIdx == 1 && !it.d.isRehashing() {
				it.tableIdx++
				continue
			}
			if it.bucketIdx >= len(t.buckets) {
				it.tableIdx++
				it.bucketIdx = 0
				continue
			}
			it.cur = t.buckets[it.bucketIdx]
			it.bucketIdx++
		}
		return it.cur, true
	}
}

// Release must be called exactly once when the caller is done iterating.
// For an unsafe iterator it panics if the dict was mutated during iteration
//, a programming error the original treats as an assertion failure
// (redisassert aborts the process); here it panics instead, and the
// reactor's handler-boundary recover() discards the panic so the whole
// server keeps running. No error reply is produced for it.
func (it *Iterator) Release() {
	if it.released {
		return
	}
	it.released = true
	if it.safe {
		it.d.iterators--
		return
	}
	if it.fingerprint != it.d.fingerprint() {
		panic(fmt.Errorf("dict: unsafe iterator used after a concurrent mutation"))
	}
}

// RandomEntry samples one entry uniformly at random by rejecting empty
// buckets, capped at a bounded number of attempts so an all-expired or
// all-empty table doesn't spin forever.
func (d *Dict) RandomEntry(randUint64 func() uint64) *Entry {
	if d.Len() == 0 {
		return nil
	}
	d.rehashStepIfNeeded()

	const maxAttempts = 1000
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var t *table
		if d.isRehashing() && d.tables[1].used > 0 && randUint64()%2 == 0 {
			t = d.tables[1]
		} else {
			t = d.tables[0]
		}
		if t.used == 0 {
			continue
		}
		idx := randUint64() & t.mask
		e := t.buckets[idx]
		if e == nil {
			continue
		}
		// Walk the chain a random distance so every entry in a long chain
		// has a chance, not just the head.
		length := 0
		for n := e; n != nil; n = n.next {
			length++
		}
		skip := int(randUint64()) % length
		if skip < 0 {
			skip = -skip
		}
		for i := 0; i < skip; i++ {
			e = e.next
		}
		return e
	}
	return nil
}

// GetSomeKeys returns up to count entries drawn from a small contiguous run
// of buckets, the same near-contiguous sampling strategy as
// dictGetSomeKeys: cheap statistical sampling for things like active
// expiration, not a uniform sample.
func (d *Dict) GetSomeKeys(count int, startCursor uint64) (entries []*Entry, nextCursor uint64) {
	if d.Len() == 0 {
		return nil, 0
	}
	cursor := startCursor
	attempts := count * 10
	for len(entries) < count && attempts > 0 {
		attempts--
		before := len(entries)
		cursor = d.Scan(cursor, func(e *Entry) {
			entries = append(entries, e)
		})
		if cursor == 0 {
			break
		}
		if len(entries) == before && attempts <= 0 {
			break
		}
	}
	return entries, cursor
}
