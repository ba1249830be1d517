package maxmemory

import "github.com/tempuskv/tempuskv/internal/value"

// perElementOverhead approximates the fixed cost of one collection
// element (pointer, map/list bookkeeping, skiplist level pointers)
// beyond its own payload bytes.
const perElementOverhead = 16

// ApproxSize estimates v's footprint in bytes well enough to rank keys
// by size for eviction purposes. It is deliberately approximate, an
// exact accounting would need to walk every encoding's internal
// representation, which no caller here needs.
func ApproxSize(v *value.Value) int64 {
	if v == nil {
		return 0
	}
	switch p := v.Payload.(type) {
	case *value.StringPayload:
		return int64(p.Len())
	case *value.ListPayload:
		return int64(p.Len()) * perElementOverhead
	case *value.HashPayload:
		return int64(p.Len()) * perElementOverhead * 2
	case *value.SetPayload:
		return int64(p.Len()) * perElementOverhead
	case *value.ZSetPayload:
		return int64(p.Len()) * perElementOverhead * 2
	case *value.StreamPayload:
		return int64(p.Len()) * perElementOverhead * 2
	default:
		return perElementOverhead
	}
}
