package command

import (
	"strconv"
	"strings"

	"github.com/tempuskv/tempuskv/internal/value"
)

func registerZSetCommands(t Table) {
	t["ZADD"] = cmdZAdd
	t["ZSCORE"] = cmdZScore
	t["ZINCRBY"] = cmdZIncrBy
	t["ZRANGE"] = cmdZRange
	t["ZREM"] = cmdZRem
	t["ZCARD"] = cmdZCard
}

// cmdZAdd implements ZADD key [NX|XX] [GT|LT] [CH] score member
// [score member ...]. NX/XX/GT/LT combine per the usual mutual-exclusion
// rules (NX excludes GT/LT/XX); CH makes the reply count updates, not just
// additions.
func cmdZAdd(ctx *Context, argv []string) Reply {
	if len(argv) < 4 {
		return arityError(argv)
	}
	i := 2
	var nx, xx, gt, lt, ch bool
	for i < len(argv) {
		switch strings.ToUpper(argv[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		case "CH":
			ch = true
		default:
			goto pairs
		}
		i++
	}
pairs:
	if nx && (xx || gt || lt) {
		return Err(ErrSyntax)
	}
	if gt && lt {
		return Err(ErrSyntax)
	}
	rest := argv[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return arityError(argv)
	}

	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		v = value.NewZSet()
		_ = ctx.DB.DBAdd(argv[1], v)
	} else if v.Type != value.TypeZSet {
		return Err(ErrWrongType)
	}
	zp := v.Payload.(*value.ZSetPayload)

	added, changed := 0, 0
	for j := 0; j < len(rest); j += 2 {
		score, err := strconv.ParseFloat(rest[j], 64)
		if err != nil {
			return Err(ErrNotFloat)
		}
		member := rest[j+1]
		old, existed := zp.Score(member)
		if nx && existed {
			continue
		}
		if xx && !existed {
			continue
		}
		if existed && gt && score <= old {
			continue
		}
		if existed && lt && score >= old {
			continue
		}
		if zp.Set(member, score) {
			added++
		} else if old != score {
			changed++
		}
	}
	value.MaybeUpgradeZSet(v)
	if added > 0 || changed > 0 {
		ctx.notify("ZSET", "zadd", argv[1])
	}
	if ch {
		return Integer(int64(added + changed))
	}
	return Integer(int64(added))
}

func cmdZScore(ctx *Context, argv []string) Reply {
	if len(argv) != 3 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return NullBulk()
	}
	if v.Type != value.TypeZSet {
		return Err(ErrWrongType)
	}
	score, found := v.Payload.(*value.ZSetPayload).Score(argv[2])
	if !found {
		return NullBulk()
	}
	return BulkString(formatScore(score))
}

func cmdZIncrBy(ctx *Context, argv []string) Reply {
	if len(argv) != 4 {
		return arityError(argv)
	}
	delta, err := strconv.ParseFloat(argv[2], 64)
	if err != nil {
		return Err(ErrNotFloat)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		v = value.NewZSet()
		_ = ctx.DB.DBAdd(argv[1], v)
	} else if v.Type != value.TypeZSet {
		return Err(ErrWrongType)
	}
	zp := v.Payload.(*value.ZSetPayload)
	cur, _ := zp.Score(argv[3])
	result := cur + delta
	zp.Set(argv[3], result)
	value.MaybeUpgradeZSet(v)
	ctx.notify("ZSET", "zincrby", argv[1])
	return BulkString(formatScore(result))
}

// cmdZRange implements index-range ZRANGE only; BYSCORE/BYLEX are not
// implemented.
func cmdZRange(ctx *Context, argv []string) Reply {
	if len(argv) < 4 {
		return arityError(argv)
	}
	start, err1 := strconv.Atoi(argv[2])
	stop, err2 := strconv.Atoi(argv[3])
	if err1 != nil || err2 != nil {
		return Err(ErrNotInteger)
	}
	withScores := len(argv) == 5 && strings.EqualFold(argv[4], "WITHSCORES")
	if len(argv) > 4 && !withScores {
		return Err(ErrSyntax)
	}

	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Array()
	}
	if v.Type != value.TypeZSet {
		return Err(ErrWrongType)
	}
	members := v.Payload.(*value.ZSetPayload).Sorted()
	n := len(members)
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
	if start > stop || n == 0 {
		return Array()
	}

	var out []Reply
	for _, m := range members[start : stop+1] {
		out = append(out, BulkString(m.Member))
		if withScores {
			out = append(out, BulkString(formatScore(m.Score)))
		}
	}
	return Array(out...)
}

func cmdZRem(ctx *Context, argv []string) Reply {
	if len(argv) < 3 {
		return arityError(argv)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		return Integer(0)
	}
	if v.Type != value.TypeZSet {
		return Err(ErrWrongType)
	}
	zp := v.Payload.(*value.ZSetPayload)
	removed := 0
	for _, m := range argv[2:] {
		if zp.Remove(m) {
			removed++
		}
	}
	if zp.Len() == 0 {
		ctx.DB.DBDelete(argv[1])
	}
	if removed > 0 {
		ctx.notify("ZSET", "zrem", argv[1])
	}
	return Integer(int64(removed))
}

func cmdZCard(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Integer(0)
	}
	if v.Type != value.TypeZSet {
		return Err(ErrWrongType)
	}
	return Integer(int64(v.Payload.(*value.ZSetPayload).Len()))
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
