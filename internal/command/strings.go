package command

import (
	"strconv"
	"strings"

	"github.com/tempuskv/tempuskv/internal/value"
)

func registerStringCommands(t Table) {
	t["SET"] = cmdSet
	t["GET"] = cmdGet
	t["GETSET"] = cmdGetSet
	t["SETNX"] = cmdSetNX
	t["SETEX"] = cmdSetEX
	t["PSETEX"] = cmdPSetEX
	t["SETRANGE"] = cmdSetRange
	t["GETRANGE"] = cmdGetRange
	t["APPEND"] = cmdAppend
	t["STRLEN"] = cmdStrlen
	t["INCR"] = cmdIncr
	t["DECR"] = cmdDecr
	t["INCRBY"] = cmdIncrBy
	t["DECRBY"] = cmdDecrBy
	t["INCRBYFLOAT"] = cmdIncrByFloat
	t["MSET"] = cmdMSet
	t["MSETNX"] = cmdMSetNX
	t["MGET"] = cmdMGet
}

func stringAt(ctx *Context, key string) (*value.StringPayload, bool, Reply) {
	v, ok := ctx.DB.LookupRead(key)
	if !ok {
		return nil, false, Reply{}
	}
	if v.Type != value.TypeString {
		return nil, false, Err(ErrWrongType)
	}
	return v.Payload.(*value.StringPayload), true, Reply{}
}

// cmdSet implements SET key value [NX|XX] [EX s|PX ms] [KEEPTTL]. NX/XX are
// mutually exclusive, as are EX/PX, and KEEPTTL is mutually exclusive with
// EX/PX (KEEPTTL keeps the existing TTL, EX/PX sets a new one - they can't
// both hold); on NX-exists or XX-missing the command is a no-op returning
// a null reply.
func cmdSet(ctx *Context, argv []string) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	key, val := argv[1], argv[2]

	var nx, xx, keepTTL bool
	var exMs int64 = -1
	for i := 3; i < len(argv); i++ {
		switch strings.ToUpper(argv[i]) {
		case "NX":
			if xx {
				return Err(ErrSyntax)
			}
			nx = true
		case "XX":
			if nx {
				return Err(ErrSyntax)
			}
			xx = true
		case "KEEPTTL":
			if exMs != -1 {
				return Err(ErrSyntax)
			}
			keepTTL = true
		case "EX", "PX":
			if exMs != -1 || keepTTL || i+1 >= len(argv) {
				return Err(ErrSyntax)
			}
			n, err := strconv.ParseInt(argv[i+1], 10, 64)
			if err != nil || n <= 0 {
				return Err(ErrSyntax)
			}
			if strings.ToUpper(argv[i]) == "EX" {
				n *= 1000
			}
			exMs = n
			i++
		default:
			return Err(ErrSyntax)
		}
	}

	_, exists := ctx.DB.LookupWrite(key)
	if nx && exists {
		return NullBulk()
	}
	if xx && !exists {
		return NullBulk()
	}

	nv := value.NewString([]byte(val))
	if keepTTL {
		if exists {
			_ = ctx.DB.DBOverwrite(key, nv)
		} else {
			_ = ctx.DB.DBAdd(key, nv)
		}
	} else {
		ctx.DB.SetKey(key, nv)
	}
	if exMs != -1 {
		_ = ctx.DB.SetExpire(key, ctx.NowMs()+exMs)
	}
	ctx.notify("STRING", "set", key)
	return OK()
}

func cmdGet(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	sp, ok, errReply := stringAt(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return NullBulk()
	}
	return Bulk(sp.Bytes())
}

func cmdGetSet(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	sp, ok, errReply := stringAt(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	ctx.DB.SetKey(argv[1], value.NewString([]byte(argv[2])))
	ctx.notify("STRING", "set", argv[1])
	if !ok {
		return NullBulk()
	}
	return Bulk(sp.Bytes())
}

func cmdSetNX(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	if _, exists := ctx.DB.LookupWrite(argv[1]); exists {
		return Integer(0)
	}
	ctx.DB.SetKey(argv[1], value.NewString([]byte(argv[2])))
	ctx.notify("STRING", "set", argv[1])
	return Integer(1)
}

func cmdSetEX(ctx *Context, argv []string) Reply {
	return setExGeneric(ctx, argv, 1000)
}

func cmdPSetEX(ctx *Context, argv []string) Reply {
	return setExGeneric(ctx, argv, 1)
}

func setExGeneric(ctx *Context, argv []string, unitMs int64) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	n, err := strconv.ParseInt(argv[2], 10, 64)
	if err != nil || n <= 0 {
		return Err(ErrSyntax)
	}
	ctx.DB.SetKey(argv[1], value.NewString([]byte(argv[3])))
	_ = ctx.DB.SetExpire(argv[1], ctx.NowMs()+n*unitMs)
	ctx.notify("STRING", "set", argv[1])
	return OK()
}

// cmdSetRange implements SETRANGE key offset value: absent key + empty
// value returns 0 without creating anything; otherwise the string is
// zero-padded out to offset+len(value) before the overwrite.
func cmdSetRange(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	offset, err := strconv.Atoi(argv[2])
	if err != nil || offset < 0 {
		return Err(simpleErr("offset is out of range"))
	}
	patch := []byte(argv[3])

	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists && len(patch) == 0 {
		return Integer(0)
	}
	if exists && v.Type != value.TypeString {
		return Err(ErrWrongType)
	}

	var buf []byte
	if exists {
		buf = append([]byte(nil), v.Payload.(*value.StringPayload).Bytes()...)
	}
	end := offset + len(patch)
	if end > value.MaxStringLength {
		return Err(simpleErr("string exceeds maximum allowed size (proto-max-bulk-len)"))
	}
	if end > len(buf) {
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], patch)

	if exists {
		_ = ctx.DB.DBOverwrite(argv[1], value.NewRawString(buf))
	} else {
		_ = ctx.DB.DBAdd(argv[1], value.NewRawString(buf))
	}
	ctx.notify("STRING", "setrange", argv[1])
	return Integer(int64(len(buf)))
}

func cmdGetRange(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	sp, ok, errReply := stringAt(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Bulk(nil)
	}
	b := sp.Bytes()
	start, errS := strconv.Atoi(argv[2])
	stop, errE := strconv.Atoi(argv[3])
	if errS != nil || errE != nil {
		return Err(ErrNotInteger)
	}
	n := len(b)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return Bulk([]byte{})
	}
	return Bulk(append([]byte(nil), b[start:stop+1]...))
}

func cmdAppend(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		ctx.DB.SetKey(argv[1], value.NewString([]byte(argv[2])))
		ctx.notify("STRING", "append", argv[1])
		return Integer(int64(len(argv[2])))
	}
	if v.Type != value.TypeString {
		return Err(ErrWrongType)
	}
	uv := value.Unshare(v)
	sp := uv.Payload.(*value.StringPayload)
	merged := append(append([]byte(nil), sp.Bytes()...), argv[2]...)
	if len(merged) > value.MaxStringLength {
		return Err(simpleErr("string exceeds maximum allowed size (proto-max-bulk-len)"))
	}
	_ = ctx.DB.DBOverwrite(argv[1], value.NewRawString(merged))
	ctx.notify("STRING", "append", argv[1])
	return Integer(int64(len(merged)))
}

func cmdStrlen(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	sp, ok, errReply := stringAt(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Integer(0)
	}
	return Integer(int64(sp.Len()))
}

func cmdIncr(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	return incrDecrBy(ctx, argv[1], 1)
}

func cmdDecr(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	return incrDecrBy(ctx, argv[1], -1)
}

func cmdIncrBy(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	n, err := strconv.ParseInt(argv[2], 10, 64)
	if err != nil {
		return Err(ErrNotInteger)
	}
	return incrDecrBy(ctx, argv[1], n)
}

func cmdDecrBy(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	n, err := strconv.ParseInt(argv[2], 10, 64)
	if err != nil {
		return Err(ErrNotInteger)
	}
	return incrDecrBy(ctx, argv[1], -n)
}

func incrDecrBy(ctx *Context, key string, delta int64) Reply {
	v, exists := ctx.DB.LookupWrite(key)
	var cur int64
	if exists {
		if v.Type != value.TypeString {
			return Err(ErrWrongType)
		}
		n, err := v.Payload.(*value.StringPayload).AsInt64()
		if err != nil {
			return Err(ErrNotInteger)
		}
		cur = n
	}
	// Overflow check before mutating: a failed INCR must leave the key
	// untouched.
	if (delta > 0 && cur > maxInt64-delta) || (delta < 0 && cur < minInt64-delta) {
		return Err(value.ErrOverflow)
	}
	result := cur + delta
	nv := value.NewStringInt64(result)
	if exists {
		_ = ctx.DB.DBOverwrite(key, nv)
	} else {
		_ = ctx.DB.DBAdd(key, nv)
	}
	ctx.notify("STRING", "incrby", key)
	return Integer(result)
}

const maxInt64 = 1<<63 - 1
const minInt64 = -1 << 63

// cmdIncrByFloat rejects NaN/Inf results; the caller (internal/server's
// replication feed) is responsible for rewriting this command to SET with
// the formatted result before propagating, the same way the original
// avoids floating-point replication drift, this handler only returns the
// computed value and lets that rewrite happen one layer up.
func cmdIncrByFloat(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	delta, err := strconv.ParseFloat(argv[2], 64)
	if err != nil {
		return Err(ErrNotFloat)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	var cur float64
	if exists {
		if v.Type != value.TypeString {
			return Err(ErrWrongType)
		}
		f, err := strconv.ParseFloat(string(v.Payload.(*value.StringPayload).Bytes()), 64)
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
	ctx.DB.SetKey(argv[1], value.NewString([]byte(formatted)))
	ctx.notify("STRING", "incrbyfloat", argv[1])
	return BulkString(formatted)
}

func isNaNOrInf(f float64) bool {
	return f != f || f > maxFloat || f < -maxFloat
}

const maxFloat = 1.797693134862315708145274237317043567981e+308

// cmdMSet sets every key/value pair unconditionally; MSETNX additionally
// requires every key to be absent first (all-or-nothing).
func cmdMSet(ctx *Context, argv []string) Reply {
	if len(argv) < 3 || len(argv)%2 != 1 {
		return arityError(argv)
	}
	for i := 1; i < len(argv); i += 2 {
		ctx.DB.SetKey(argv[i], value.NewString([]byte(argv[i+1])))
		ctx.notify("STRING", "set", argv[i])
	}
	return OK()
}

func cmdMSetNX(ctx *Context, argv []string) Reply {
	if len(argv) < 3 || len(argv)%2 != 1 {
		return arityError(argv)
	}
	for i := 1; i < len(argv); i += 2 {
		if _, exists := ctx.DB.LookupWrite(argv[i]); exists {
			return Integer(0)
		}
	}
	for i := 1; i < len(argv); i += 2 {
		ctx.DB.SetKey(argv[i], value.NewString([]byte(argv[i+1])))
		ctx.notify("STRING", "set", argv[i])
	}
	return Integer(1)
}

func cmdMGet(ctx *Context, argv []string) Reply {
	if len(argv) < 2 {
		return arityError(argv)
	}
	out := make([]Reply, 0, len(argv)-1)
	for _, key := range argv[1:] {
		v, ok := ctx.DB.LookupRead(key)
		if !ok || v.Type != value.TypeString {
			out = append(out, NullBulk())
			continue
		}
		out = append(out, Bulk(v.Payload.(*value.StringPayload).Bytes()))
	}
	return Array(out...)
}
