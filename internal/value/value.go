// Package value implements the engine's typed value model: a tagged record
// {type, encoding, lru_or_lfu, refcount, payload} with an encoding upgrade
// path per type, matching the "robj" object model in
// original_source/t_string.c, t_hash.c and t_list.c.
//
// Go has no sum types, so the polymorphic {type, encoding} dispatch becomes
// a concrete Value struct holding one of several encoding-specific payload
// interfaces, switched on Type/Encoding the same way the C implementation
// switches on o->type/o->encoding.
package value

import "time"

// Type is the logical type of a Value.
type Type uint8

const (
	TypeString Type = iota
	TypeList
	TypeHash
	TypeSet
	TypeZSet
	TypeStream
	TypeModule
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeStream:
		return "stream"
	default:
		return "module"
	}
}

// Encoding is the physical representation selected for a Value. Upgrades are
// monotone: once a value crosses a size/content threshold it moves to the
// richer encoding and never moves back.
type Encoding uint8

const (
	// String encodings.
	EncInt Encoding = iota
	EncEmbstr
	EncRaw
	// List: always the compact node list; a node's own sub-container can be
	// independently listpack or hashtable-backed, tracked per-node.
	EncQuicklist
	// Hash/Set/ZSet: packed pair sequence vs. expanded structure.
	EncListpack
	EncHashtable
	EncIntset // SET of only integers
	EncSkiplist
	EncStream
)

func (e Encoding) String() string {
	switch e {
	case EncInt:
		return "int"
	case EncEmbstr:
		return "embstr"
	case EncRaw:
		return "raw"
	case EncQuicklist:
		return "quicklist"
	case EncListpack:
		return "listpack"
	case EncHashtable:
		return "hashtable"
	case EncIntset:
		return "intset"
	case EncSkiplist:
		return "skiplist"
	case EncStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Payload is implemented by each type's concrete container
// (*StringPayload, *ListPayload, *HashPayload, *SetPayload, *ZSetPayload,
// *StreamPayload). It exists purely so Value.Payload can be typed any
// without an interface{} escape hatch at every call site; handlers type
// assert to the concrete payload they expect and get a WRONGTYPE-shaped
// mismatch for free via a failed assertion.
type Payload interface {
	payload()
}

// Value is the engine's tagged record. A command must never cache a pointer
// into Payload across a mutation: encodings change under the caller's feet,
// and Unshare may swap Payload out for a fresh copy entirely.
type Value struct {
	Type     Type
	Encoding Encoding
	Payload  Payload

	// Refcount > 1 marks a shared, immutable object (small integer cache,
	// shared reply fragments). Writers must Unshare before mutating.
	Refcount int32

	// LRUOrLFU is the 24-bit access-recency field: a coarse clock timestamp
	// under LRU, or (minutes<<8 | log-counter) under LFU. Updated by
	// Touch() unless the access path opts out (NOTOUCH).
	LRUOrLFU uint32
}

// New wraps a payload as a fresh, exclusively-owned (refcount==1) Value.
func New(t Type, enc Encoding, p Payload) *Value {
	return &Value{Type: t, Encoding: enc, Payload: p, Refcount: 1}
}

// Shared returns a Value with refcount bumped to mark it immutable,
// callers must route all mutation through Unshare before writing to it.
func (v *Value) Shared() *Value {
	v.Refcount++
	return v
}

// Touch updates the access-recency field using an LRU coarse clock
// (seconds-resolution, wrapping) supplied by the caller, the reactor holds
// the authoritative clock, not this package.
func (v *Value) Touch(lruClock uint32) {
	v.LRUOrLFU = lruClock
}

// lfuLogIncr applies the original's probabilistic logarithmic counter
// increment: the higher the counter already is, the less likely a single
// access bumps it, so the counter saturates slowly and stays representative
// under skewed workloads.
func lfuLogIncr(counter uint8, prob func() float64) uint8 {
	const lfuInitVal = 5
	const lfuMaxVal = 255
	if counter == lfuMaxVal {
		return counter
	}
	baseVal := float64(counter) - lfuInitVal
	if baseVal < 0 {
		baseVal = 0
	}
	const lfuLogFactor = 10
	p := 1.0 / (baseVal*lfuLogFactor + 1)
	if prob() < p {
		counter++
	}
	return counter
}

// TouchLFU applies an LFU access using the supplied random source, matching
// LFULogIncr's diminishing-probability counter growth.
func (v *Value) TouchLFU(nowMinutes uint32, prob func() float64) {
	counter := uint8(v.LRUOrLFU & 0xff)
	counter = lfuLogIncr(counter, prob)
	v.LRUOrLFU = (nowMinutes << 8) | uint32(counter)
}

// CoarseLRUClock returns a seconds-resolution clock value suitable for
// LRUOrLFU, matching the original's 24-bit wrapping LRU_CLOCK().
func CoarseLRUClock(now time.Time) uint32 {
	const lruClockResolution = time.Second
	const lruClockMax = 1 << 24
	return uint32((now.UnixNano() / int64(lruClockResolution)) % lruClockMax)
}
