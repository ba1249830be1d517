package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StreamID is a (milliseconds, sequence) pair, stream entries' sort key.
type StreamID struct {
	Ms  int64
	Seq int64
}

func (id StreamID) String() string { return fmt.Sprintf("%d-%d", id.Ms, id.Seq) }

func (id StreamID) Less(other StreamID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// ParseStreamID parses "ms-seq" or a bare "ms" (seq defaults to 0).
func ParseStreamID(s string) (StreamID, error) {
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("invalid stream ID specified as stream command argument")
	}
	if len(parts) == 1 {
		return StreamID{Ms: ms}, nil
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("invalid stream ID specified as stream command argument")
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// StreamEntry is one appended record: an ID plus its field/value pairs.
type StreamEntry struct {
	ID     StreamID
	Fields []HashField
}

// StreamPayload is the STREAM type's payload: an append-only, ID-ordered
// log, plus the last-generated ID needed for auto-ID assignment. There are
// no consumer groups, just the log itself.
type StreamPayload struct {
	entries []StreamEntry
	lastID  StreamID
}

func (*StreamPayload) payload() {}

func NewStream() *Value {
	return New(TypeStream, EncStream, &StreamPayload{})
}

func (p *StreamPayload) Len() int { return len(p.entries) }

func (p *StreamPayload) LastID() StreamID { return p.lastID }

// NextAutoID returns the ID XADD with "*" would assign: the current
// millisecond if it's after lastID.Ms, else lastID with Seq bumped,
// mirrors streamNextID's "never go backward, never collide" rule.
func (p *StreamPayload) NextAutoID(nowMs int64) StreamID {
	if nowMs > p.lastID.Ms {
		return StreamID{Ms: nowMs, Seq: 0}
	}
	return StreamID{Ms: p.lastID.Ms, Seq: p.lastID.Seq + 1}
}

// Append adds entry, which must have an ID strictly greater than the
// stream's current last ID (enforced by the caller via NextAutoID or
// explicit-ID validation before calling Append).
func (p *StreamPayload) Append(id StreamID, fields []HashField) {
	p.entries = append(p.entries, StreamEntry{ID: id, Fields: fields})
	p.lastID = id
}

// Range returns entries with start <= ID <= end, in ID order, capped at
// count when count > 0.
func (p *StreamPayload) Range(start, end StreamID, count int) []StreamEntry {
	idx := sort.Search(len(p.entries), func(i int) bool {
		return !p.entries[i].ID.Less(start)
	})
	var out []StreamEntry
	for ; idx < len(p.entries); idx++ {
		e := p.entries[idx]
		if end.Less(e.ID) {
			break
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}
