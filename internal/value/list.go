package value

import (
	"container/list"

	"github.com/klauspost/compress/s2"
)

// Node fill/compression thresholds, matching quicklist's defaults: a node
// holds up to listMaxNodeEntries elements (or fewer once their packed size
// would exceed listMaxNodeBytes), and any node further than
// listCompressDepth nodes from either end may be compressed at rest.
const (
	listMaxNodeEntries = 128
	listMaxNodeBytes   = 8 * 1024
	listCompressDepth  = 1
	// listPlainThreshold is quicklist's "plain node" cutover: a single
	// element whose packed length would exceed this is kept in its own
	// uncompressed, unpacked node instead of inside a shared node, the same
	// quicklistNode->container==PLAIN path as the original.
	listPlainThreshold = 1 << 30 / 64 // conservative stand-in for 1GB/SIZE_SAFETY_LIMIT
)

// listNode is one quicklist node: either a packed run of small elements, or
// a single oversized "plain" element. Packed nodes may be compressed; head
// and tail nodes are always kept decompressed for O(1) push/pop.
type listNode struct {
	plain      bool
	elems      [][]byte // decompressed packed elements, empty when compressed
	compressed []byte   // non-nil when this node's elems are compressed at rest
}

func (n *listNode) count() int {
	if n.plain {
		return 1
	}
	return len(n.elems)
}

func (n *listNode) size() int {
	total := 0
	for _, e := range n.elems {
		total += len(e)
	}
	return total
}

// compress packs elems via S2 (standing in for the original's LZF: a fast,
// low-ratio, block-local compressor for a bounded node) and drops the
// decompressed copy. Only called on interior nodes during the list's
// "compress non-extremal nodes" maintenance pass, never on head/tail.
func (n *listNode) compress() {
	if n.plain || n.compressed != nil || len(n.elems) == 0 {
		return
	}
	raw := encodeElems(n.elems)
	n.compressed = s2.Encode(nil, raw)
	n.elems = nil
}

func (n *listNode) decompress() {
	if n.compressed == nil {
		return
	}
	raw, err := s2.Decode(nil, n.compressed)
	if err != nil {
		// A corrupted node is a programming error in this in-process model
		// (no disk/network round trip can have flipped a bit); fail loudly
		// at the tick boundary rather than silently losing data.
		panic(err)
	}
	n.elems = decodeElems(raw)
	n.compressed = nil
}

func encodeElems(elems [][]byte) []byte {
	var out []byte
	var lenBuf [4]byte
	for _, e := range elems {
		putUint32(lenBuf[:], uint32(len(e)))
		out = append(out, lenBuf[:]...)
		out = append(out, e...)
	}
	return out
}

func decodeElems(raw []byte) [][]byte {
	var out [][]byte
	for len(raw) > 0 {
		n := getUint32(raw)
		raw = raw[4:]
		out = append(out, append([]byte(nil), raw[:n]...))
		raw = raw[n:]
	}
	return out
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// ListPayload is the LIST type's payload: a doubly-linked run of listNodes.
// The logical type always reports EncQuicklist; encoding polymorphism lives
// at the node granularity (packed vs. plain, compressed vs. not), which is
// why it's invisible at the Value.Encoding level, OBJECT ENCODING for a
// LIST always answers "quicklist" in the original too.
type ListPayload struct {
	nodes *list.List // of *listNode
	count int
}

func (*ListPayload) payload() {}

// NewList returns an empty list payload wrapped as a Value.
func NewList() *Value {
	return New(TypeList, EncQuicklist, &ListPayload{nodes: list.New()})
}

func (p *ListPayload) Len() int { return p.count }

func (p *ListPayload) headNode() *list.Element {
	e := p.nodes.Front()
	if e != nil {
		e.Value.(*listNode).decompress()
	}
	return e
}

func (p *ListPayload) tailNode() *list.Element {
	e := p.nodes.Back()
	if e != nil {
		e.Value.(*listNode).decompress()
	}
	return e
}

func elemSize(b []byte) int {
	if len(b) > 64 {
		return len(b)
	}
	return len(b) + 11 // overhead guess, matches the ~11 byte listpack entry header
}

// PushFront inserts elem at the head, creating a new node when the current
// head is full, oversized, or doesn't exist yet.
func (p *ListPayload) PushFront(elem []byte) {
	if len(elem) > listPlainThreshold {
		n := &listNode{plain: true, elems: [][]byte{elem}}
		p.nodes.PushFront(n)
		p.count++
		p.recompressInterior()
		return
	}
	e := p.headNode()
	if e == nil {
		n := &listNode{elems: [][]byte{elem}}
		p.nodes.PushFront(n)
		p.count++
		return
	}
	n := e.Value.(*listNode)
	if n.plain || n.count() >= listMaxNodeEntries || n.size()+elemSize(elem) > listMaxNodeBytes {
		n = &listNode{elems: [][]byte{elem}}
		p.nodes.PushFront(n)
	} else {
		n.elems = append([][]byte{append([]byte(nil), elem...)}, n.elems...)
	}
	p.count++
	p.recompressInterior()
}

// PushBack mirrors PushFront at the tail.
func (p *ListPayload) PushBack(elem []byte) {
	if len(elem) > listPlainThreshold {
		n := &listNode{plain: true, elems: [][]byte{elem}}
		p.nodes.PushBack(n)
		p.count++
		p.recompressInterior()
		return
	}
	e := p.tailNode()
	if e == nil {
		n := &listNode{elems: [][]byte{elem}}
		p.nodes.PushBack(n)
		p.count++
		return
	}
	n := e.Value.(*listNode)
	if n.plain || n.count() >= listMaxNodeEntries || n.size()+elemSize(elem) > listMaxNodeBytes {
		n = &listNode{elems: [][]byte{elem}}
		p.nodes.PushBack(n)
	} else {
		n.elems = append(n.elems, append([]byte(nil), elem...))
	}
	p.count++
	p.recompressInterior()
}

// PopFront removes and returns the head element.
func (p *ListPayload) PopFront() ([]byte, bool) {
	e := p.headNode()
	if e == nil {
		return nil, false
	}
	n := e.Value.(*listNode)
	v := n.elems[0]
	n.elems = n.elems[1:]
	p.count--
	if n.count() == 0 {
		p.nodes.Remove(e)
	}
	return v, true
}

// PopBack removes and returns the tail element.
func (p *ListPayload) PopBack() ([]byte, bool) {
	e := p.tailNode()
	if e == nil {
		return nil, false
	}
	n := e.Value.(*listNode)
	v := n.elems[len(n.elems)-1]
	n.elems = n.elems[:len(n.elems)-1]
	p.count--
	if n.count() == 0 {
		p.nodes.Remove(e)
	}
	return v, true
}

// recompressInterior keeps every node farther than listCompressDepth nodes
// from either end compressed, and every node within that depth decompressed
//, maintenance pass mirroring quicklistCompress, invoked after any push so
// interior nodes don't accumulate uncompressed.
func (p *ListPayload) recompressInterior() {
	n := p.nodes.Len()
	if n <= listCompressDepth*2 {
		return
	}
	i := 0
	for e := p.nodes.Front(); e != nil; e = e.Next() {
		nd := e.Value.(*listNode)
		if i < listCompressDepth || i >= n-listCompressDepth {
			nd.decompress()
		} else {
			nd.compress()
		}
		i++
	}
}

// Index returns the element at logical index idx (0-based from head,
// negative indices counted from the tail), matching LINDEX/GETRANGE-style
// negative index resolution used across the list commands.
func (p *ListPayload) Index(idx int) ([]byte, bool) {
	if idx < 0 {
		idx += p.count
	}
	if idx < 0 || idx >= p.count {
		return nil, false
	}
	pos := 0
	for e := p.nodes.Front(); e != nil; e = e.Next() {
		n := e.Value.(*listNode)
		n.decompress()
		if idx < pos+n.count() {
			return n.elems[idx-pos], true
		}
		pos += n.count()
	}
	return nil, false
}

// Range returns a copy of elements in [start,stop] inclusive, with negative
// indices resolved relative to length and the range clamped to bounds.
func (p *ListPayload) Range(start, stop int) [][]byte {
	if start < 0 {
		start += p.count
	}
	if stop < 0 {
		stop += p.count
	}
	if start < 0 {
		start = 0
	}
	if stop >= p.count {
		stop = p.count - 1
	}
	if start > stop || p.count == 0 {
		return nil
	}
	var out [][]byte
	pos := 0
	for e := p.nodes.Front(); e != nil && pos <= stop; e = e.Next() {
		n := e.Value.(*listNode)
		n.decompress()
		for _, elem := range n.elems {
			if pos >= start && pos <= stop {
				out = append(out, elem)
			}
			pos++
		}
	}
	return out
}

// All materializes the full list, used by LPOS/LREM/LTRIM-family rewrites
// that are simpler to express against a flat rebuild than node surgery.
func (p *ListPayload) All() [][]byte {
	return p.Range(0, p.count-1)
}

// Rebuild replaces the list's contents with elems, used by LTRIM/LREM once
// they've computed the surviving slice, simpler and just as correct as
// in-place node splicing for the list sizes this engine targets, at the
// cost of an O(n) rebuild instead of O(k) for the removed portion.
func (p *ListPayload) Rebuild(elems [][]byte) {
	p.nodes = list.New()
	p.count = 0
	for _, e := range elems {
		p.PushBack(e)
	}
}

// InsertBefore/InsertAfter splice elem relative to the first occurrence of
// pivot, returning false if pivot isn't present.
func (p *ListPayload) InsertBefore(pivot, elem []byte) bool {
	return p.insertAt(pivot, elem, 0)
}

func (p *ListPayload) InsertAfter(pivot, elem []byte) bool {
	return p.insertAt(pivot, elem, 1)
}

func (p *ListPayload) insertAt(pivot, elem []byte, offset int) bool {
	all := p.All()
	for i, e := range all {
		if string(e) == string(pivot) {
			pos := i + offset
			out := make([][]byte, 0, len(all)+1)
			out = append(out, all[:pos]...)
			out = append(out, elem)
			out = append(out, all[pos:]...)
			p.Rebuild(out)
			return true
		}
	}
	return false
}

// Set overwrites the element at idx (negative indices allowed), returning
// false if idx is out of range, LSET's contract.
func (p *ListPayload) Set(idx int, elem []byte) bool {
	if idx < 0 {
		idx += p.count
	}
	if idx < 0 || idx >= p.count {
		return false
	}
	all := p.All()
	all[idx] = elem
	p.Rebuild(all)
	return true
}

// Remove deletes up to |count| occurrences of value: from the head when
// count>=0, from the tail when count<0; count==0 removes all. Returns the
// number removed.
func (p *ListPayload) Remove(count int, val []byte) int {
	all := p.All()
	removed := 0
	out := make([][]byte, 0, len(all))

	if count >= 0 {
		limit := count
		for _, e := range all {
			if (limit == 0 || removed < limit) && string(e) == string(val) {
				removed++
				continue
			}
			out = append(out, e)
		}
	} else {
		limit := -count
		for i := len(all) - 1; i >= 0; i-- {
			e := all[i]
			if removed < limit && string(e) == string(val) {
				removed++
				continue
			}
			out = append([][]byte{e}, out...)
		}
	}
	p.Rebuild(out)
	return removed
}
