package dict

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFindDelete(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("a", 1))
	require.ErrorIs(t, d.Add("a", 2), ErrDuplicate)

	v, ok := d.Find("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	require.NoError(t, d.Delete("a"))
	require.ErrorIs(t, d.Delete("a"), ErrNotFound)

	_, ok = d.Find("a")
	require.False(t, ok)
}

func TestReplace(t *testing.T) {
	d := New()
	require.False(t, d.Replace("a", 1))
	require.True(t, d.Replace("a", 2))
	v, _ := d.Find("a")
	require.Equal(t, 2, v)
}

// TestRehashPreservesMultiset drives incremental rehashing by inserting
// enough keys to force a grow, then asserts every key is still reachable
// after each partial rehashStep.
func TestRehashPreservesMultiset(t *testing.T) {
	d := New()
	const n = 5000
	for i := 0; i < n; i++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", i), i))
	}

	for d.isRehashing() {
		for i := 0; i < n; i++ {
			v, ok := d.Find(fmt.Sprintf("k%d", i))
			require.True(t, ok)
			require.Equal(t, i, v)
		}
		d.rehashStep(1)
	}

	for i := 0; i < n; i++ {
		v, ok := d.Find(fmt.Sprintf("k%d", i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestScanVisitsEveryKeyAcrossResize(t *testing.T) {
	d := New()
	const n = 10000
	for i := 0; i < n; i++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", i), i))
	}

	seen := make(map[string]bool, n)
	var cursor uint64
	iterations := 0
	for {
		cursor = d.Scan(cursor, func(e *Entry) {
			seen[e.Key] = true
		})
		iterations++
		// Insert more keys midway to exercise scan-survives-resize.
		if iterations == 3 {
			for i := n; i < n+n; i++ {
				require.NoError(t, d.Add(fmt.Sprintf("k%d", i), i))
			}
		}
		if cursor == 0 {
			break
		}
		if iterations > 100000 {
			t.Fatal("scan did not terminate")
		}
	}

	for i := 0; i < n; i++ {
		require.True(t, seen[fmt.Sprintf("k%d", i)], "missing key k%d", i)
	}
}

func TestUnsafeIteratorDetectsMutation(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("a", 1))

	it := d.NewUnsafeIterator()
	_, _ = it.Next()
	require.NoError(t, d.Add("b", 2))

	require.Panics(t, func() { it.Release() })
}

func TestSafeIteratorPausesRehash(t *testing.T) {
	d := New()
	for i := 0; i < 600; i++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", i), i))
	}
	require.True(t, d.isRehashing())

	it := d.NewIterator()
	before := d.rehashIdx
	d.rehashStepIfNeeded()
	require.Equal(t, before, d.rehashIdx, "rehash must not progress while a safe iterator is live")
	it.Release()

	d.rehashStepIfNeeded()
	require.NotEqual(t, before, d.rehashIdx)
}

func TestRandomEntry(t *testing.T) {
	d := New()
	require.Nil(t, d.RandomEntry(rand.New(rand.NewSource(1)).Uint64))

	for i := 0; i < 50; i++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", i), i))
	}
	r := rand.New(rand.NewSource(1))
	e := d.RandomEntry(r.Uint64)
	require.NotNil(t, e)
}
