package command

import (
	"strconv"

	"github.com/tempuskv/tempuskv/internal/value"
)

func registerListCommands(t Table) {
	t["LPUSH"] = cmdLPush
	t["RPUSH"] = cmdRPush
	t["LPUSHX"] = cmdLPushX
	t["RPUSHX"] = cmdRPushX
	t["LPOP"] = cmdLPop
	t["RPOP"] = cmdRPop
	t["LLEN"] = cmdLLen
	t["LRANGE"] = cmdLRange
	t["LINDEX"] = cmdLIndex
	t["LSET"] = cmdLSet
	t["LINSERT"] = cmdLInsert
	t["LTRIM"] = cmdLTrim
	t["LREM"] = cmdLRem
	t["RPOPLPUSH"] = cmdRPopLPush
	t["BLPOP"] = cmdBLPop
	t["BRPOP"] = cmdBRPop
	t["BRPOPLPUSH"] = cmdBRPopLPush
}

func listForRead(ctx *Context, key string) (*value.ListPayload, bool, Reply) {
	v, ok := ctx.DB.LookupRead(key)
	if !ok {
		return nil, false, Reply{}
	}
	if v.Type != value.TypeList {
		return nil, false, Err(ErrWrongType)
	}
	return v.Payload.(*value.ListPayload), true, Reply{}
}

func pushGeneric(ctx *Context, argv []string, front, requireExists bool) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	key := argv[1]
	v, exists := ctx.DB.LookupWrite(key)
	if !exists {
		if requireExists {
			return Integer(0)
		}
		v = value.NewList()
		_ = ctx.DB.DBAdd(key, v)
	} else if v.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	lp := v.Payload.(*value.ListPayload)
	for _, elem := range argv[2:] {
		if front {
			lp.PushFront([]byte(elem))
		} else {
			lp.PushBack([]byte(elem))
		}
	}
	ctx.notify("LIST", "lpush", key)
	ctx.wake(key)
	return Integer(int64(lp.Len()))
}

func cmdLPush(ctx *Context, argv []string) Reply  { return pushGeneric(ctx, argv, true, false) }
func cmdRPush(ctx *Context, argv []string) Reply  { return pushGeneric(ctx, argv, false, false) }
func cmdLPushX(ctx *Context, argv []string) Reply { return pushGeneric(ctx, argv, true, true) }
func cmdRPushX(ctx *Context, argv []string) Reply { return pushGeneric(ctx, argv, false, true) }

func popGeneric(ctx *Context, argv []string, front bool) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	key := argv[1]
	v, exists := ctx.DB.LookupWrite(key)
	if !exists {
		return NullBulk()
	}
	if v.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	lp := v.Payload.(*value.ListPayload)
	var elem []byte
	var ok bool
	if front {
		elem, ok = lp.PopFront()
	} else {
		elem, ok = lp.PopBack()
	}
	if !ok {
		return NullBulk()
	}
	if lp.Len() == 0 {
		ctx.DB.DBDelete(key)
	}
	ctx.notify("LIST", "lpop", key)
	return Bulk(elem)
}

func cmdLPop(ctx *Context, argv []string) Reply { return popGeneric(ctx, argv, true) }
func cmdRPop(ctx *Context, argv []string) Reply { return popGeneric(ctx, argv, false) }

func cmdLLen(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	lp, ok, errReply := listForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Integer(0)
	}
	return Integer(int64(lp.Len()))
}

func cmdLRange(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	start, err1 := strconv.Atoi(argv[2])
	stop, err2 := strconv.Atoi(argv[3])
	if err1 != nil || err2 != nil {
		return Err(ErrNotInteger)
	}
	lp, ok, errReply := listForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return Array()
	}
	elems := lp.Range(start, stop)
	out := make([]Reply, len(elems))
	for i, e := range elems {
		out[i] = Bulk(e)
	}
	return Array(out...)
}

func cmdLIndex(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	idx, err := strconv.Atoi(argv[2])
	if err != nil {
		return Err(ErrNotInteger)
	}
	lp, ok, errReply := listForRead(ctx, argv[1])
	if errReply.Kind == KindError {
		return errReply
	}
	if !ok {
		return NullBulk()
	}
	elem, found := lp.Index(idx)
	if !found {
		return NullBulk()
	}
	return Bulk(elem)
}

func cmdLSet(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	idx, err := strconv.Atoi(argv[2])
	if err != nil {
		return Err(ErrNotInteger)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return Err(simpleErr("no such key"))
	}
	if v.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	lp := v.Payload.(*value.ListPayload)
	if !lp.Set(idx, []byte(argv[3])) {
		return Err(simpleErr("index out of range"))
	}
	ctx.notify("LIST", "lset", argv[1])
	return OK()
}

func cmdLInsert(ctx *Context, argv []string) Reply {
	if len(argv) != 5 {
		return arityError(argv)
	}
	var before bool
	switch argv[2] {
	case "BEFORE":
		before = true
	case "AFTER":
		before = false
	default:
		return Err(ErrSyntax)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return Integer(0)
	}
	if v.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	lp := v.Payload.(*value.ListPayload)
	var ok bool
	if before {
		ok = lp.InsertBefore([]byte(argv[3]), []byte(argv[4]))
	} else {
		ok = lp.InsertAfter([]byte(argv[3]), []byte(argv[4]))
	}
	if !ok {
		return Integer(-1)
	}
	ctx.notify("LIST", "linsert", argv[1])
	return Integer(int64(lp.Len()))
}

// cmdLTrim clamps negative indices and deletes the key entirely when the
// resulting range is empty.
func cmdLTrim(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	start, err1 := strconv.Atoi(argv[2])
	stop, err2 := strconv.Atoi(argv[3])
	if err1 != nil || err2 != nil {
		return Err(ErrNotInteger)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return OK()
	}
	if v.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	lp := v.Payload.(*value.ListPayload)
	kept := lp.Range(start, stop)
	lp.Rebuild(kept)
	if lp.Len() == 0 {
		ctx.DB.DBDelete(argv[1])
	}
	ctx.notify("LIST", "ltrim", argv[1])
	return OK()
}

// cmdLRem removes up to |count| occurrences of argv[3]: from the head when
// count >= 0, from the tail when count < 0; count == 0 removes every
// occurrence.
func cmdLRem(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	count, err := strconv.Atoi(argv[2])
	if err != nil {
		return Err(ErrNotInteger)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return Integer(0)
	}
	if v.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	lp := v.Payload.(*value.ListPayload)
	removed := lp.Remove(count, []byte(argv[3]))
	if lp.Len() == 0 {
		ctx.DB.DBDelete(argv[1])
	}
	if removed > 0 {
		ctx.notify("LIST", "lrem", argv[1])
	}
	return Integer(int64(removed))
}

// cmdRPopLPush moves the tail element of src onto the head of dst,
// creating dst if absent and deleting src if it becomes empty, single
// key and src==dst are both handled, the latter rotating the tail element
// to the head (a no-op at observable state only for a one-element list).
func cmdRPopLPush(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	reply := rpopLPush(ctx, argv[1], argv[2])
	return reply
}

func rpopLPush(ctx *Context, src, dst string) Reply {
	sv, exists := ctx.DB.LookupWrite(src)
	if !exists {
		return NullBulk()
	}
	if sv.Type != value.TypeList {
		return Err(ErrWrongType)
	}
	slp := sv.Payload.(*value.ListPayload)
	elem, ok := slp.PopBack()
	if !ok {
		return NullBulk()
	}

	dv, dExists := ctx.DB.LookupWrite(dst)
	if !dExists {
		dv = value.NewList()
		_ = ctx.DB.DBAdd(dst, dv)
	} else if dv.Type != value.TypeList {
		// Restore the popped element before failing, RPOPLPUSH must not
		// lose data when the destination type check fails.
		slp.PushBack(elem)
		return Err(ErrWrongType)
	}
	dv.Payload.(*value.ListPayload).PushFront(elem)

	if slp.Len() == 0 {
		ctx.DB.DBDelete(src)
	}
	ctx.notify("LIST", "rpop", src)
	ctx.notify("LIST", "lpush", dst)
	ctx.wake(dst)
	return Bulk(elem)
}

// parseBlockArgs splits a BLPOP/BRPOP-style argv into its key list and
// timeout (seconds, float allowed), per the command's trailing-timeout
// convention.
func parseBlockArgs(argv []string) (keys []string, timeoutMs int64, err error) {
	if len(argv) < 3 {
		return nil, 0, errArity
	}
	secs, perr := strconv.ParseFloat(argv[len(argv)-1], 64)
	if perr != nil || secs < 0 {
		return nil, 0, errArity
	}
	return argv[1 : len(argv)-1], int64(secs * 1000), nil
}

var errArity = simpleErr("timeout is not a float or out of range")

func blockingPopGeneric(ctx *Context, argv []string, front bool) Reply {
	keys, timeoutMs, err := parseBlockArgs(argv)
	if err != nil {
		return Err(err)
	}

	popKey := func(key string) (Reply, bool) {
		v, exists := ctx.DB.LookupWrite(key)
		if !exists || v.Type != value.TypeList {
			return Reply{}, false
		}
		lp := v.Payload.(*value.ListPayload)
		var elem []byte
		var ok bool
		if front {
			elem, ok = lp.PopFront()
		} else {
			elem, ok = lp.PopBack()
		}
		if !ok {
			return Reply{}, false
		}
		if lp.Len() == 0 {
			ctx.DB.DBDelete(key)
		}
		return Array(BulkString(key), Bulk(elem)), true
	}

	// Immediate or MULTI-context: never actually suspend.
	for _, key := range keys {
		if reply, ok := popKey(key); ok {
			return reply
		}
	}
	if ctx.InMulti {
		return NullArray()
	}
	return Reply{Kind: KindBlock, Block: &BlockSpec{
		Keys:      keys,
		TimeoutMs: timeoutMs,
		Pop:       popKey,
		OnTimeout: NullArray,
	}}
}

func cmdBLPop(ctx *Context, argv []string) Reply { return blockingPopGeneric(ctx, argv, true) }
func cmdBRPop(ctx *Context, argv []string) Reply { return blockingPopGeneric(ctx, argv, false) }

// cmdBRPopLPush blocks on src only; on success it performs the same
// pop-then-push as RPOPLPUSH, including waking any client blocked on dst.
func cmdBRPopLPush(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	src, dst := argv[1], argv[2]
	secs, err := strconv.ParseFloat(argv[3], 64)
	if err != nil || secs < 0 {
		return Err(errArity)
	}
	timeoutMs := int64(secs * 1000)

	pop := func(key string) (Reply, bool) {
		v, exists := ctx.DB.LookupWrite(key)
		if !exists || v.Type != value.TypeList || v.Payload.(*value.ListPayload).Len() == 0 {
			return Reply{}, false
		}
		return rpopLPush(ctx, src, dst), true
	}

	if reply, ok := pop(src); ok {
		return reply
	}
	if ctx.InMulti {
		return NullBulk()
	}
	return Reply{Kind: KindBlock, Block: &BlockSpec{
		Keys:      []string{src},
		TimeoutMs: timeoutMs,
		Pop:       pop,
		OnTimeout: NullBulk,
	}}
}
