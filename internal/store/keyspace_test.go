package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempuskv/tempuskv/internal/value"
)

func TestDBAddThenLookup(t *testing.T) {
	db := NewDatabase(0)
	require.NoError(t, db.DBAdd("k", value.NewString([]byte("v"))))

	v, ok := db.LookupRead("k")
	require.True(t, ok)
	require.Equal(t, "v", string(v.Payload.(*value.StringPayload).Bytes()))
}

func TestDBAddDuplicateFails(t *testing.T) {
	db := NewDatabase(0)
	require.NoError(t, db.DBAdd("k", value.NewString([]byte("v"))))
	require.ErrorIs(t, db.DBAdd("k", value.NewString([]byte("v2"))), ErrKeyExists)
}

func TestDBOverwritePreservesExpire(t *testing.T) {
	db := NewDatabase(0)
	require.NoError(t, db.DBAdd("k", value.NewString([]byte("v1"))))
	require.NoError(t, db.SetExpire("k", 99999999999999))

	require.NoError(t, db.DBOverwrite("k", value.NewString([]byte("v2"))))

	when, ok := db.GetExpire("k")
	require.True(t, ok)
	require.Equal(t, int64(99999999999999), when)
}

func TestSetKeyClearsExpire(t *testing.T) {
	db := NewDatabase(0)
	db.SetKey("k", value.NewString([]byte("v1")))
	require.NoError(t, db.SetExpire("k", 99999999999999))

	db.SetKey("k", value.NewString([]byte("v2")))

	_, ok := db.GetExpire("k")
	require.False(t, ok)
}

func TestLookupReadExpiresPastKey(t *testing.T) {
	db := NewDatabase(0)
	db.SetKey("k", value.NewString([]byte("v")))
	require.NoError(t, db.SetExpire("k", 1)) // already in the past

	_, ok := db.LookupRead("k")
	require.False(t, ok)
	require.False(t, db.Exists("k"))
}

func TestDBDeleteRemovesKeyAndExpire(t *testing.T) {
	db := NewDatabase(0)
	db.SetKey("k", value.NewString([]byte("v")))
	require.NoError(t, db.SetExpire("k", 99999999999999))

	require.True(t, db.DBDelete("k"))
	require.False(t, db.Exists("k"))
	_, ok := db.GetExpire("k")
	require.False(t, ok)
}

func TestEmptyDbRemovesEverything(t *testing.T) {
	db := NewDatabase(0)
	for i := 0; i < 10; i++ {
		db.SetKey(string(rune('a'+i)), value.NewString([]byte("v")))
	}
	require.Equal(t, 10, db.EmptyDb())
	require.Equal(t, 0, db.Size())
}

func TestRegistrySwapExchangesContent(t *testing.T) {
	reg := NewRegistry(2)
	db0, _ := reg.Select(0)
	db1, _ := reg.Select(1)

	db0.SetKey("only-in-0", value.NewString([]byte("v")))
	db1.SetKey("only-in-1", value.NewString([]byte("v")))

	require.NoError(t, reg.Swap(0, 1))

	require.True(t, db0.Exists("only-in-1"))
	require.False(t, db0.Exists("only-in-0"))
	require.True(t, db1.Exists("only-in-0"))
}

func TestRegistrySelectOutOfRange(t *testing.T) {
	reg := NewRegistry(1)
	_, err := reg.Select(5)
	require.Error(t, err)
}

func TestWatchAndTouchWatchers(t *testing.T) {
	db := NewDatabase(0)
	db.Watch("k", 42)
	db.Watch("k", 43)

	ids := db.TouchWatchers("k")
	require.ElementsMatch(t, []int64{42, 43}, ids)

	db.Unwatch(42, []string{"k"})
	ids = db.TouchWatchers("k")
	require.Equal(t, []int64{43}, ids)
}

var fixedSeq uint64

func sequentialRand() uint64 {
	fixedSeq++
	return fixedSeq
}

func TestRandomKeySkipsExpired(t *testing.T) {
	db := NewDatabase(0)
	db.SetKey("live", value.NewString([]byte("v")))
	db.SetKey("dead", value.NewString([]byte("v")))
	require.NoError(t, db.SetExpire("dead", 1))

	for i := 0; i < 20; i++ {
		k, ok := db.RandomKey(sequentialRand)
		if ok {
			require.Equal(t, "live", k)
		}
	}
}
