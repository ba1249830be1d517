package expire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tempuskv/tempuskv/internal/store"
	"github.com/tempuskv/tempuskv/internal/value"
)

func fixedClock(ms int64) func() int64 {
	return func() int64 { return ms }
}

func sequentialRand() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

func TestExpireIfNeededDeletesPastKey(t *testing.T) {
	db := store.NewDatabase(0)
	c := NewCycle()
	c.Now = fixedClock(1000)
	db.ExpirePolicy = c

	db.SetKey("k", value.NewString([]byte("v")))
	require.NoError(t, db.SetExpire("k", 500))

	_, ok := db.LookupRead("k")
	require.False(t, ok)
	require.False(t, db.Exists("k"))
}

func TestExpireIfNeededKeepsFutureKey(t *testing.T) {
	db := store.NewDatabase(0)
	c := NewCycle()
	c.Now = fixedClock(1000)
	db.ExpirePolicy = c

	db.SetKey("k", value.NewString([]byte("v")))
	require.NoError(t, db.SetExpire("k", 5000))

	_, ok := db.LookupRead("k")
	require.True(t, ok)
}

func TestReplicaDoesNotDeleteButReportsExpired(t *testing.T) {
	db := store.NewDatabase(0)
	c := NewCycle()
	c.Role = RoleReplica
	c.Now = fixedClock(1000)
	db.ExpirePolicy = c

	db.SetKey("k", value.NewString([]byte("v")))
	require.NoError(t, db.SetExpire("k", 500))

	_, ok := db.LookupRead("k")
	require.False(t, ok, "replica must report the key as logically absent")
	require.True(t, db.Exists("k"), "replica must not delete; waits for master's DEL")
}

func TestActiveCycleExpiresDueKeys(t *testing.T) {
	reg := store.NewRegistry(1)
	db, _ := reg.Select(0)
	c := NewCycle()
	c.Now = fixedClock(10_000)
	db.ExpirePolicy = c

	for i := 0; i < 30; i++ {
		key := string(rune('a' + i%26))
		db.SetKey(key+string(rune('0'+i/26)), value.NewString([]byte("v")))
		require.NoError(t, db.SetExpire(key+string(rune('0'+i/26)), 1))
	}

	c.RunOnce(reg, 50*time.Millisecond, sequentialRand())

	require.Less(t, db.ExpiresSize(), 30)
}

func TestFastModeReflectsExpiredRatio(t *testing.T) {
	reg := store.NewRegistry(1)
	db, _ := reg.Select(0)
	c := NewCycle()
	c.Now = fixedClock(10_000)
	db.ExpirePolicy = c

	// currentPerc is a moving average with alpha 0.2: one all-expired pass
	// lifts it to 0.2, a second to 0.36, past the 0.25 fast-mode cutoff.
	for round := 0; round < 2; round++ {
		for i := 0; i < 25; i++ {
			n := round*25 + i
			key := string(rune('a'+n%26)) + string(rune('0'+n/26))
			db.SetKey(key, value.NewString([]byte("v")))
			require.NoError(t, db.SetExpire(key, 1))
		}
		c.RunOnce(reg, 50*time.Millisecond, sequentialRand())
	}
	require.True(t, c.FastMode())
}
