package value

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStringIntegerRoundTrip(t *testing.T) {
	v := NewString([]byte("12345"))
	require.Equal(t, EncInt, v.Encoding)
	sp := v.Payload.(*StringPayload)
	require.Equal(t, "12345", string(sp.Bytes()))
}

func TestNewStringSharedSmallInt(t *testing.T) {
	a := NewString([]byte("42"))
	b := NewStringInt64(42)
	require.Same(t, a, b)
	require.True(t, a.Refcount > 1)
}

func TestUnshareCopiesSharedInt(t *testing.T) {
	shared := NewStringInt64(7)
	before := shared.Refcount
	mutable := Unshare(shared)
	require.NotSame(t, shared, mutable)
	require.Equal(t, int32(1), mutable.Refcount)
	require.Equal(t, before, shared.Refcount)
	require.Equal(t, EncRaw, mutable.Encoding)
}

func TestUnshareNoopWhenAlreadyMutable(t *testing.T) {
	v := NewString([]byte("hello world this is raw enough to stay raw"))
	got := Unshare(v)
	require.Same(t, v, got)
}

func TestListPushPopOrder(t *testing.T) {
	v := NewList()
	p := v.Payload.(*ListPayload)
	p.PushFront([]byte("a"))
	p.PushFront([]byte("b"))
	p.PushFront([]byte("c"))

	all := p.All()
	require.Equal(t, [][]byte{[]byte("c"), []byte("b"), []byte("a")}, all)

	elem, ok := p.PopBack()
	require.True(t, ok)
	require.Equal(t, "a", string(elem))
	require.Equal(t, 2, p.Len())
}

func TestListCompressesInteriorNodes(t *testing.T) {
	v := NewList()
	p := v.Payload.(*ListPayload)
	// Force many nodes so the middle ones are farther than listCompressDepth
	// from either end and get compressed.
	for i := 0; i < listMaxNodeEntries*6; i++ {
		p.PushBack([]byte(strings.Repeat("x", 200)))
	}
	foundCompressed := false
	for e := p.nodes.Front(); e != nil; e = e.Next() {
		if e.Value.(*listNode).compressed != nil {
			foundCompressed = true
			break
		}
	}
	require.True(t, foundCompressed, "expected at least one interior node to be compressed")
	require.Equal(t, listMaxNodeEntries*6, p.Len())
	// Reads must still work transparently across compressed nodes.
	_, ok := p.Index(0)
	require.True(t, ok)
	_, ok = p.Index(p.Len() - 1)
	require.True(t, ok)
}

func TestHashUpgradesOnEntryCount(t *testing.T) {
	v := NewHash()
	p := v.Payload.(*HashPayload)
	for i := 0; i < HashMaxListpackEntries+2; i++ {
		p.Set(fmt.Sprintf("f%d", i), []byte("v"))
		MaybeUpgradeHash(v)
	}
	require.Equal(t, EncHashtable, v.Encoding)
}

func TestHashUpgradesOnValueLength(t *testing.T) {
	v := NewHash()
	p := v.Payload.(*HashPayload)
	p.Set("f1", []byte("short"))
	MaybeUpgradeHash(v)
	require.Equal(t, EncListpack, v.Encoding)

	p.Set("f2", []byte(strings.Repeat("x", HashMaxListpackValue+1)))
	MaybeUpgradeHash(v)
	require.Equal(t, EncHashtable, v.Encoding)
}

func TestSetUpgradesOnNonInteger(t *testing.T) {
	v := NewSet()
	p := v.Payload.(*SetPayload)
	p.Add("123")
	MaybeUpgradeSet(v)
	require.Equal(t, EncIntset, v.Encoding)

	p.Add("not-a-number")
	MaybeUpgradeSet(v)
	require.Equal(t, EncHashtable, v.Encoding)
}

func TestZSetOrdering(t *testing.T) {
	v := NewZSet()
	p := v.Payload.(*ZSetPayload)
	p.Set("b", 1)
	p.Set("a", 1)
	p.Set("c", 0.5)

	sorted := p.Sorted()
	require.Equal(t, []string{"c", "a", "b"}, []string{sorted[0].Member, sorted[1].Member, sorted[2].Member})
}

func TestStreamAutoID(t *testing.T) {
	v := NewStream()
	p := v.Payload.(*StreamPayload)

	id := p.NextAutoID(1000)
	p.Append(id, testFields("f", "v"))
	require.Equal(t, StreamID{Ms: 1000, Seq: 0}, id)

	id2 := p.NextAutoID(1000)
	require.Equal(t, StreamID{Ms: 1000, Seq: 1}, id2)

	id3 := p.NextAutoID(999)
	require.Equal(t, StreamID{Ms: 1000, Seq: 1}, id3)
}

func testFields(kv ...string) []HashField {
	var out []HashField
	for i := 0; i < len(kv); i += 2 {
		out = append(out, HashField{Field: kv[i], Value: []byte(kv[i+1])})
	}
	return out
}
