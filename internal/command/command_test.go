package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempuskv/tempuskv/internal/store"
	"github.com/tempuskv/tempuskv/internal/value"
)

func newTestContext() (*Context, Table) {
	db := store.NewDatabase(0)
	ctx := &Context{
		DB:         db,
		NowMs:      func() int64 { return 1_700_000_000_000 },
		RandUint64: func() uint64 { return 42 },
	}
	return ctx, NewTable()
}

func run(table Table, ctx *Context, argv ...string) Reply {
	return table.Dispatch(ctx, argv)
}

func requireInt(t *testing.T, r Reply, want int64) {
	t.Helper()
	require.Equal(t, KindInteger, r.Kind, "err=%v", r.Err)
	require.Equal(t, want, r.Int)
}

func requireBulk(t *testing.T, r Reply, want string) {
	t.Helper()
	require.Equal(t, KindBulk, r.Kind, "err=%v", r.Err)
	require.Equal(t, want, string(r.Bulk))
}

func requireOK(t *testing.T, r Reply) {
	t.Helper()
	require.Equal(t, KindSimple, r.Kind, "err=%v", r.Err)
	require.Equal(t, "OK", r.Str)
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx, table := newTestContext()
	requireOK(t, run(table, ctx, "SET", "k", "v"))
	requireBulk(t, run(table, ctx, "GET", "k"), "v")
}

func TestSetRangeGetRangeRoundTrip(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "k", "Hello World")
	requireInt(t, run(table, ctx, "SETRANGE", "k", "6", "Redis"), 11)
	requireBulk(t, run(table, ctx, "GET", "k"), "Hello Redis")
	requireBulk(t, run(table, ctx, "GETRANGE", "k", "0", "4"), "Hello")
	requireBulk(t, run(table, ctx, "GETRANGE", "k", "-5", "-1"), "Redis")
}

func TestIncrDecr(t *testing.T) {
	ctx, table := newTestContext()
	requireInt(t, run(table, ctx, "INCR", "counter"), 1)
	requireInt(t, run(table, ctx, "INCRBY", "counter", "9"), 10)
	requireInt(t, run(table, ctx, "DECR", "counter"), 9)
	requireInt(t, run(table, ctx, "DECRBY", "counter", "4"), 5)
}

func TestIncrOnNonIntegerErrors(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "k", "not-a-number")
	r := run(table, ctx, "INCR", "k")
	require.Equal(t, KindError, r.Kind)
}

func TestLPushLRangeOrder(t *testing.T) {
	ctx, table := newTestContext()
	requireInt(t, run(table, ctx, "RPUSH", "l", "a", "b", "c"), 3)
	r := run(table, ctx, "LRANGE", "l", "0", "-1")
	require.Equal(t, KindArray, r.Kind)
	require.Len(t, r.Array, 3)
	for i, want := range []string{"a", "b", "c"} {
		requireBulk(t, r.Array[i], want)
	}

	requireInt(t, run(table, ctx, "LPUSH", "l", "z"), 4)
	requireBulk(t, run(table, ctx, "LINDEX", "l", "0"), "z")
}

func TestRPopLPushSelfMoveRotatesList(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "RPUSH", "l", "a", "b", "c")
	requireBulk(t, run(table, ctx, "RPOPLPUSH", "l", "l"), "c")
	r := run(table, ctx, "LRANGE", "l", "0", "-1")
	require.Equal(t, KindArray, r.Kind)
	require.Len(t, r.Array, 3)
	requireBulk(t, r.Array[0], "c")
	requireBulk(t, r.Array[1], "a")
	requireBulk(t, r.Array[2], "b")
}

func TestHSetHGetHDel(t *testing.T) {
	ctx, table := newTestContext()
	requireInt(t, run(table, ctx, "HSET", "h", "f1", "v1", "f2", "v2"), 2)
	requireBulk(t, run(table, ctx, "HGET", "h", "f1"), "v1")
	requireInt(t, run(table, ctx, "HLEN", "h"), 2)
	requireInt(t, run(table, ctx, "HDEL", "h", "f1"), 1)
	requireInt(t, run(table, ctx, "HEXISTS", "h", "f1"), 0)
	requireInt(t, run(table, ctx, "HEXISTS", "h", "f2"), 1)
}

func TestDelRemovesKeyAndReportsCount(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "a", "1")
	run(table, ctx, "SET", "b", "2")
	requireInt(t, run(table, ctx, "DEL", "a", "b", "missing"), 2)
	requireInt(t, run(table, ctx, "EXISTS", "a"), 0)
}

func TestExpireAndTTL(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "k", "v")
	requireInt(t, run(table, ctx, "EXPIRE", "k", "100"), 1)
	requireInt(t, run(table, ctx, "TTL", "k"), 100)
	requireInt(t, run(table, ctx, "PERSIST", "k"), 1)
	requireInt(t, run(table, ctx, "TTL", "k"), -1)
}

func TestExpireInThePastDeletesImmediately(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "k", "v")
	requireInt(t, run(table, ctx, "EXPIREAT", "k", "1"), 1)
	requireInt(t, run(table, ctx, "EXISTS", "k"), 0)
}

func TestObjectEncodingUpgradeThreshold(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "k", "short")
	requireBulk(t, run(table, ctx, "OBJECT", "ENCODING", "k"), "embstr")

	long := repeatX(64)
	run(table, ctx, "SET", "k2", long)
	requireBulk(t, run(table, ctx, "OBJECT", "ENCODING", "k2"), "raw")
}

func repeatX(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}

func TestFlushDBEmptiesDatabase(t *testing.T) {
	ctx, table := newTestContext()
	run(table, ctx, "SET", "a", "1")
	run(table, ctx, "SET", "b", "2")
	requireOK(t, run(table, ctx, "FLUSHDB"))
	requireInt(t, run(table, ctx, "DBSIZE"), 0)
}

func TestDelRoutesThroughLazyFreeHook(t *testing.T) {
	ctx, table := newTestContext()
	freed := 0
	ctx.LazyFree = func(v *value.Value) { freed++ }
	run(table, ctx, "SET", "k", "v")
	requireInt(t, run(table, ctx, "DEL", "k"), 1)
	require.Equal(t, 1, freed)
}
