package command

import (
	"strings"

	"github.com/tempuskv/tempuskv/internal/store"
	"github.com/tempuskv/tempuskv/internal/value"
)

// Context is everything a handler needs beyond its own argument vector:
// the selected database, the clocks the original threads through
// server.mstime()/server.unixtime, and the random source dict's sampling
// operations want. One Context is built per dispatched command.
type Context struct {
	DB *store.Database

	// NowMs returns the current time in unix milliseconds. Injected so a
	// MULTI/EXEC batch (or a test) can freeze it for the whole command, the
	// same role server.lua_time_start plays for scripts.
	NowMs func() int64

	// RandUint64 backs RANDOMKEY and any other command needing a uniform
	// random source.
	RandUint64 func() uint64

	// DBID is the numeric index of DB, used in keyspace-notification
	// channel names built by internal/server.
	DBID int

	// ClientID identifies the calling client, for blocking-list waiter
	// bookkeeping. Zero is a valid id for single-client test harnesses.
	ClientID int64

	// InMulti is true while this command executes as part of a queued
	// transaction (including EXEC's own run). Blocking commands check this
	// and fall back to their non-blocking behavior.
	InMulti bool

	// Notify emits a keyspace-notification event, wired to internal/pubsub
	// by internal/server. Nil is a valid, silent default.
	Notify func(class, event, key string)

	// Hub services BLPOP/BRPOP/BRPOPLPUSH waiters when a push command adds
	// an element. Nil disables blocking-aware wakeups (pushes still
	// succeed; just nobody gets woken, fine for a single-client test).
	Hub Waker

	// LazyFree hands an unlinked value to internal/lazyfree's background
	// pool instead of letting the caller's goroutine pay for deallocating
	// it. Nil means free inline (fine for tests; internal/server always
	// wires this).
	LazyFree func(v *value.Value)
}

// free routes v through ctx.LazyFree if wired, otherwise does nothing
// beyond letting the caller's own reference drop, Go's GC reclaims it
// either way, this only decides which goroutine pays for walking it.
func (ctx *Context) free(v *value.Value) {
	if ctx.LazyFree != nil && v != nil {
		ctx.LazyFree(v)
	}
}

func (ctx *Context) wake(key string) {
	if ctx.Hub != nil {
		ctx.Hub.Wake(ctx.DBID, key)
	}
}

// Handler executes one command's body given its argv (argv[0] is the
// command name, matching the original's client->argv convention).
type Handler func(ctx *Context, argv []string) Reply

// Table maps upper-cased command names to handlers, the Go analogue of
// redisCommandTable.
type Table map[string]Handler

// NewTable builds the dispatch table for every command this package
// implements, across string/hash/list/set/zset/stream.
func NewTable() Table {
	t := Table{}
	registerStringCommands(t)
	registerHashCommands(t)
	registerListCommands(t)
	registerSetCommands(t)
	registerZSetCommands(t)
	registerStreamCommands(t)
	registerGenericCommands(t)
	return t
}

// Dispatch looks up argv[0] (case-insensitively) and runs it, returning an
// "unknown command" error Reply if absent.
func (t Table) Dispatch(ctx *Context, argv []string) Reply {
	if len(argv) == 0 {
		return Err(ErrWrongArgs)
	}
	name := strings.ToUpper(argv[0])
	h, ok := t[name]
	if !ok {
		return Err(simpleErr("unknown command '" + argv[0] + "'"))
	}
	return h(ctx, argv)
}

// notify emits a keyspace-notification event if the context has a sink
// wired, a no-op otherwise, every mutating handler calls this right
// before returning its reply.
func (ctx *Context) notify(class, event, key string) {
	if ctx.Notify != nil {
		ctx.Notify(class, event, key)
	}
}

func arityError(argv []string) Reply {
	return Err(simpleErr("wrong number of arguments for '" + strings.ToLower(argv[0]) + "' command"))
}
