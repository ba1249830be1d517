package command

import (
	"strconv"
	"strings"
)

func registerGenericCommands(t Table) {
	t["DEL"] = cmdDel
	t["EXISTS"] = cmdExists
	t["TYPE"] = cmdType
	t["EXPIRE"] = cmdExpire
	t["PEXPIRE"] = cmdPExpire
	t["EXPIREAT"] = cmdExpireAt
	t["PEXPIREAT"] = cmdPExpireAt
	t["TTL"] = cmdTTL
	t["PTTL"] = cmdPTTL
	t["PERSIST"] = cmdPersist
	t["OBJECT"] = cmdObject
	t["RANDOMKEY"] = cmdRandomKey
	t["DBSIZE"] = cmdDBSize
	t["FLUSHDB"] = cmdFlushDB
	t["FLUSHALL"] = cmdFlushAll
}

func cmdDel(ctx *Context, argv []string) Reply {
	if len(argv) < 2 {
		return arityError(argv)
	}
	removed := 0
	for _, key := range argv[1:] {
		v, existed := ctx.DB.LookupWrite(key)
		if !existed {
			continue
		}
		if ctx.DB.DBDelete(key) {
			removed++
			ctx.free(v)
			ctx.notify("GENERIC", "del", key)
		}
	}
	return Integer(int64(removed))
}

func cmdExists(ctx *Context, argv []string) Reply {
	if len(argv) < 2 {
		return arityError(argv)
	}
	count := 0
	for _, key := range argv[1:] {
		if _, ok := ctx.DB.LookupRead(key); ok {
			count++
		}
	}
	return Integer(int64(count))
}

func cmdType(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Simple("none")
	}
	return Simple(v.Type.String())
}

// cmdExpire and friends all route through expireGeneric, matching
// expireGenericCommand's single implementation behind EXPIRE/PEXPIRE/
// EXPIREAT/PEXPIREAT, the only difference between them is the unit
// (seconds vs. milliseconds) and whether the argument is relative or
// absolute.
func cmdExpire(ctx *Context, argv []string) Reply {
	return expireGeneric(ctx, argv, 1000, false)
}

func cmdPExpire(ctx *Context, argv []string) Reply {
	return expireGeneric(ctx, argv, 1, false)
}

func cmdExpireAt(ctx *Context, argv []string) Reply {
	return expireGeneric(ctx, argv, 1000, true)
}

func cmdPExpireAt(ctx *Context, argv []string) Reply {
	return expireGeneric(ctx, argv, 1, true)
}

func expireGeneric(ctx *Context, argv []string, unitMs int64, absolute bool) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	n, err := strconv.ParseInt(argv[2], 10, 64)
	if err != nil {
		return Err(ErrNotInteger)
	}
	v, ok := ctx.DB.LookupWrite(argv[1])
	if !ok {
		return Integer(0)
	}
	var whenMs int64
	if absolute {
		whenMs = n * unitMs
	} else {
		whenMs = ctx.NowMs() + n*unitMs
	}
	if whenMs <= ctx.NowMs() {
		ctx.DB.DBDelete(argv[1])
		ctx.free(v)
		ctx.notify("GENERIC", "del", argv[1])
		return Integer(1)
	}
	_ = ctx.DB.SetExpire(argv[1], whenMs)
	ctx.notify("GENERIC", "expire", argv[1])
	return Integer(1)
}

func cmdTTL(ctx *Context, argv []string) Reply {
	return ttlGeneric(ctx, argv, 1000)
}

func cmdPTTL(ctx *Context, argv []string) Reply {
	return ttlGeneric(ctx, argv, 1)
}

func ttlGeneric(ctx *Context, argv []string, unitMs int64) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	if _, ok := ctx.DB.LookupRead(argv[1]); !ok {
		return Integer(-2)
	}
	when, ok := ctx.DB.GetExpire(argv[1])
	if !ok {
		return Integer(-1)
	}
	remaining := when - ctx.NowMs()
	if remaining < 0 {
		remaining = 0
	}
	return Integer(remaining / unitMs)
}

func cmdPersist(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	if _, ok := ctx.DB.LookupWrite(argv[1]); !ok {
		return Integer(0)
	}
	if _, ok := ctx.DB.GetExpire(argv[1]); !ok {
		return Integer(0)
	}
	_ = ctx.DB.RemoveExpire(argv[1])
	ctx.notify("GENERIC", "persist", argv[1])
	return Integer(1)
}

// cmdObject implements only the ENCODING subcommand, the one piece of
// OBJECT exercised by the encoding-threshold tests.
func cmdObject(ctx *Context, argv []string) Reply {
	if len(argv) != 3 || !strings.EqualFold(argv[1], "ENCODING") {
		return Err(ErrSyntax)
	}
	v, ok := ctx.DB.LookupRead(argv[2])
	if !ok {
		return Err(simpleErr("no such key"))
	}
	return BulkString(v.Encoding.String())
}

func cmdRandomKey(ctx *Context, argv []string) Reply {
	if len(argv) != 1 {
		return arityError(argv)
	}
	key, ok := ctx.DB.RandomKey(ctx.RandUint64)
	if !ok {
		return NullBulk()
	}
	return BulkString(key)
}

func cmdDBSize(ctx *Context, argv []string) Reply {
	if len(argv) != 1 {
		return arityError(argv)
	}
	return Integer(int64(ctx.DB.Size()))
}

func cmdFlushDB(ctx *Context, argv []string) Reply {
	if len(argv) != 1 {
		return arityError(argv)
	}
	ctx.DB.EmptyDb()
	ctx.notify("GENERIC", "flushdb", "")
	return OK()
}

// cmdFlushAll only flushes the database the current Context is bound to;
// internal/server loops FLUSHALL across every registry entry before
// replying, since a single Context never sees the whole Registry.
func cmdFlushAll(ctx *Context, argv []string) Reply {
	if len(argv) != 1 {
		return arityError(argv)
	}
	ctx.DB.EmptyDb()
	return OK()
}
