package command

import (
	"strconv"

	"github.com/tempuskv/tempuskv/internal/value"
)

func registerHashCommands(t Table) {
	t["HSET"] = cmdHSet
	t["HSETNX"] = cmdHSetNX
	t["HGET"] = cmdHGet
	t["HMGET"] = cmdHMGet
	t["HDEL"] = cmdHDel
	t["HLEN"] = cmdHLen
	t["HEXISTS"] = cmdHExists
	t["HGETALL"] = cmdHGetAll
	t["HKEYS"] = cmdHKeys
	t["HVALS"] = cmdHVals
	t["HINCRBY"] = cmdHIncrBy
	t["HINCRBYFLOAT"] = cmdHIncrByFloat
}

// hashForWrite looks up key for a write, creating an empty hash if absent,
// and returns an error Reply if key holds a different type.
func hashForWrite(ctx *Context, key string) (*value.Value, *value.HashPayload, Reply) {
	v, exists := ctx.DB.LookupWrite(key)
	if !exists {
		v = value.NewHash()
		_ = ctx.DB.DBAdd(key, v)
		return v, v.Payload.(*value.HashPayload), Reply{}
	}
	if v.Type != value.TypeHash {
		return nil, nil, Err(ErrWrongType)
	}
	return v, v.Payload.(*value.HashPayload), Reply{}
}

func hashForRead(ctx *Context, key string) (*value.HashPayload, bool, Reply) {
	v, ok := ctx.DB.LookupRead(key)
	if !ok {
		return nil, false, Reply{}
	}
	if v.Type != value.TypeHash {
		return nil, false, Err(ErrWrongType)
	}
	return v.Payload.(*value.HashPayload), true, Reply{}
}

// cmdHSet is variadic: HSET key field value [field value ...], returning
// the number of fields newly created (not updated).
func cmdHSet(ctx *Context, argv []string) Reply {
	if len(argv) < 4 || len(argv)%2 != 0 {
		return arityError(argv)
	}
	v, hp, errReply := hashForWrite(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	created := 0
	for i := 2; i < len(argv); i += 2 {
		if hp.Set(argv[i], []byte(argv[i+1])) {
			created++
		}
	}
	value.MaybeUpgradeHash(v)
	ctx.notify("HASH", "hset", argv[1])
	return Integer(int64(created))
}

func cmdHSetNX(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	v, hp, errReply := hashForWrite(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if _, ok := hp.Get(argv[2]); ok {
		return Integer(0)
	}
	hp.Set(argv[2], []byte(argv[3]))
	value.MaybeUpgradeHash(v)
	ctx.notify("HASH", "hset", argv[1])
	return Integer(1)
}

func cmdHGet(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return NullBulk()
	}
	val, ok := hp.Get(argv[2])
	if !ok {
		return NullBulk()
	}
	return Bulk(val)
}

func cmdHMGet(ctx *Context, argv []string) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	out := make([]Reply, 0, len(argv)-2)
	for _, field := range argv[2:] {
		if !ok {
			out = append(out, NullBulk())
			continue
		}
		val, found := hp.Get(field)
		if !found {
			out = append(out, NullBulk())
		} else {
			out = append(out, Bulk(val))
		}
	}
	return Array(out...)
}

func cmdHDel(ctx *Context, argv []string) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return Integer(0)
	}
	if v.Type != value.TypeHash {
		return Err(ErrWrongType)
	}
	hp := v.Payload.(*value.HashPayload)
	removed := 0
	for _, field := range argv[2:] {
		if hp.Del(field) {
			removed++
		}
	}
	if hp.Len() == 0 {
		ctx.DB.DBDelete(argv[1])
	}
	if removed > 0 {
		ctx.notify("HASH", "hdel", argv[1])
	}
	return Integer(int64(removed))
}

func cmdHLen(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Integer(0)
	}
	return Integer(int64(hp.Len()))
}

func cmdHExists(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Integer(0)
	}
	if _, found := hp.Get(argv[2]); found {
		return Integer(1)
	}
	return Integer(0)
}

func cmdHGetAll(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Array()
	}
	fields := hp.Fields()
	out := make([]Reply, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, BulkString(f.Field), Bulk(f.Value))
	}
	return Array(out...)
}

func cmdHKeys(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Array()
	}
	fields := hp.Fields()
	out := make([]Reply, 0, len(fields))
	for _, f := range fields {
		out = append(out, BulkString(f.Field))
	}
	return Array(out...)
}

func cmdHVals(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	hp, ok, errReply := hashForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Array()
	}
	fields := hp.Fields()
	out := make([]Reply, 0, len(fields))
	for _, f := range fields {
		out = append(out, Bulk(f.Value))
	}
	return Array(out...)
}

func cmdHIncrBy(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	delta, err := strconv.ParseInt(argv[3], 10, 64)
	if err != nil {
		return Err(ErrNotInteger)
	}
	v, hp, errReply := hashForWrite(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	var cur int64
	if existing, ok := hp.Get(argv[2]); ok {
		n, err := strconv.ParseInt(string(existing), 10, 64)
		if err != nil {
			return Err(ErrNotInteger)
		}
		cur = n
	}
	if (delta > 0 && cur > maxInt64-delta) || (delta < 0 && cur < minInt64-delta) {
		return Err(value.ErrOverflow)
	}
	result := cur + delta
	hp.Set(argv[2], []byte(strconv.FormatInt(result, 10)))
	value.MaybeUpgradeHash(v)
	ctx.notify("HASH", "hincrby", argv[1])
	return Integer(result)
}

// cmdHIncrByFloat parallels cmdIncrByFloat's NaN/Inf rejection and
// SET-style replication rewrite (performed one layer up, in
// internal/server, exactly like INCRBYFLOAT).
func cmdHIncrByFloat(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	delta, err := strconv.ParseFloat(argv[3], 64)
	if err != nil {
		return Err(ErrNotFloat)
	}
	v, hp, errReply := hashForWrite(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	var cur float64
	if existing, ok := hp.Get(argv[2]); ok {
		f, err := strconv.ParseFloat(string(existing), 64)
		if err != nil {
			return Err(ErrNotFloat)
		}
		cur = f
	}
	result := cur + delta
	if isNaNOrInf(result) {
		return Err(simpleErr("increment would produce NaN or Infinity"))
	}
	formatted := strconv.FormatFloat(result, 'f', -1, 64)
	hp.Set(argv[2], []byte(formatted))
	value.MaybeUpgradeHash(v)
	ctx.notify("HASH", "hincrbyfloat", argv[1])
	return BulkString(formatted)
}
