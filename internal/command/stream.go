package command

import (
	"strconv"

	"github.com/tempuskv/tempuskv/internal/value"
)

func registerStreamCommands(t Table) {
	t["XADD"] = cmdXAdd
	t["XLEN"] = cmdXLen
	t["XRANGE"] = cmdXRange
}

// cmdXAdd implements XADD key <*|ms-seq> field value [field value ...]:
// the append-only log plus auto-ID assignment. There are no consumer
// groups.
func cmdXAdd(ctx *Context, argv []string) Reply {
	if len(argv) < 5 || len(argv)%2 != 1 {
		return arityError(argv)
	}
	v, exists := ctx.DB.LookupWrite(argv[1])
	if !exists {
		v = value.NewStream()
		_ = ctx.DB.DBAdd(argv[1], v)
	} else if v.Type != value.TypeStream {
		return Err(ErrWrongType)
	}
	sp := v.Payload.(*value.StreamPayload)

	var id value.StreamID
	if argv[2] == "*" {
		id = sp.NextAutoID(ctx.NowMs())
	} else {
		parsed, err := value.ParseStreamID(argv[2])
		if err != nil {
			return Err(simpleErr(err.Error()))
		}
		if !sp.LastID().Less(parsed) {
			return Err(simpleErr("The ID specified in XADD is equal or smaller than the target stream top item"))
		}
		id = parsed
	}

	fields := make([]value.HashField, 0, (len(argv)-3)/2)
	for i := 3; i < len(argv); i += 2 {
		fields = append(fields, value.HashField{Field: argv[i], Value: []byte(argv[i+1])})
	}
	sp.Append(id, fields)
	ctx.notify("STREAM", "xadd", argv[1])
	ctx.wake(argv[1])
	return BulkString(id.String())
}

func cmdXLen(ctx *Context, argv []string) Reply {
	if len(argv) != 2 {
		return arityError(argv)
	}
	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Integer(0)
	}
	if v.Type != value.TypeStream {
		return Err(ErrWrongType)
	}
	return Integer(int64(v.Payload.(*value.StreamPayload).Len()))
}

// cmdXRange implements XRANGE key start end [COUNT n]. "-"/"+" mean the
// smallest/largest possible ID, matching the original's sentinel range.
func cmdXRange(ctx *Context, argv []string) Reply {
	if len(argv) < 4 {
		return arityError(argv)
	}
	start, err := parseRangeID(argv[2], value.StreamID{Ms: 0, Seq: 0})
	if err != nil {
		return Err(err)
	}
	end, err := parseRangeID(argv[3], value.StreamID{Ms: maxInt64, Seq: maxInt64})
	if err != nil {
		return Err(err)
	}
	count := 0
	if len(argv) == 6 && argv[4] == "COUNT" {
		n, cerr := strconv.Atoi(argv[5])
		if cerr != nil {
			return Err(ErrNotInteger)
		}
		count = n
	} else if len(argv) != 4 {
		return Err(ErrSyntax)
	}

	v, ok := ctx.DB.LookupRead(argv[1])
	if !ok {
		return Array()
	}
	if v.Type != value.TypeStream {
		return Err(ErrWrongType)
	}
	entries := v.Payload.(*value.StreamPayload).Range(start, end, count)
	out := make([]Reply, len(entries))
	for i, e := range entries {
		fieldReplies := make([]Reply, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			fieldReplies = append(fieldReplies, BulkString(f.Field), Bulk(f.Value))
		}
		out[i] = Array(BulkString(e.ID.String()), Array(fieldReplies...))
	}
	return Array(out...)
}

func parseRangeID(s string, sentinel value.StreamID) (value.StreamID, simpleErr) {
	switch s {
	case "-":
		return value.StreamID{Ms: 0, Seq: 0}, ""
	case "+":
		return sentinel, ""
	}
	id, err := value.ParseStreamID(s)
	if err != nil {
		return value.StreamID{}, simpleErr(err.Error())
	}
	return id, ""
}
