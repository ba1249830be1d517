package command

import "github.com/tempuskv/tempuskv/internal/value"

func registerSetCommands(t Table) {
	t["SADD"] = cmdSAdd
	t["SREM"] = cmdSRem
	t["SISMEMBER"] = cmdSIsMember
	t["SMEMBERS"] = cmdSMembers
	t["SCARD"] = cmdSCard
}

func cmdSAdd(ctx *Context, argv []string) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		v = value.NewSet()
		_ = ctx.DB.DBAdd(argv[1], v)
	} else if v.Type != value.TypeSet {
		return Err(ErrWrongType)
	}
	sp := v.Payload.(*value.SetPayload)
	added := 0
	for _, m := range argv[2:] {
		if sp.Add(m) {
			added++
		}
	}
	value.MaybeUpgradeSet(v)
	if added > 0 {
		ctx.notify("SET", "sadd", argv[1])
	}
	return Integer(int64(added))
}

func cmdSRem(ctx *Context, argv []string) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return Integer(0)
	}
	if v.Type != value.TypeSet {
		return Err(ErrWrongType)
	}
	sp := v.Payload.(*value.SetPayload)
	removed := 0
	for _, m := range argv[2:] {
		if sp.Remove(m) {
			removed++
		}
	}
	if sp.Len() == 0 {
		ctx.DB.DBDelete(argv[1])
	}
	if removed > 0 {
		ctx.notify("SET", "srem", argv[1])
	}
	return Integer(int64(removed))
}

func cmdSIsMember(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Integer(0)
	}
	if v.Type != value.TypeSet {
		return Err(ErrWrongType)
	}
	if v.Payload.(*value.SetPayload).Has(argv[2]) {
		return Integer(1)
	}
	return Integer(0)
}

func cmdSMembers(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Array()
	}
	if v.Type != value.TypeSet {
		return Err(ErrWrongType)
	}
	members := v.Payload.(*value.SetPayload).Members()
	out := make([]Reply, len(members))
	for i, m := range members {
		out[i] = BulkString(m)
	}
	return Array(out...)
}

func cmdSCard(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Integer(0)
	}
	if v.Type != value.TypeSet {
		return Err(ErrWrongType)
	}
	return Integer(int64(v.Payload.(*value.SetPayload).Len()))
}
