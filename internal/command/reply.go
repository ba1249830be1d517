// Package command implements per-type command handlers: string, hash,
// list, set, zset, stream and the blocking list-pop family. Handlers never
// touch a socket; they take a Context (the selected Database plus clocks)
// and return a Reply, which internal/resp or internal/server encodes onto
// the wire. This mirrors the original's addReply* family conceptually
// while keeping command.go ignorant of RESP framing entirely.
package command

// ReplyKind tags which field of Reply is meaningful.
type ReplyKind int

const (
	KindSimple ReplyKind = iota
	KindError
	KindInteger
	KindBulk
	KindNullBulk
	KindArray
	KindNullArray
	KindDouble
	// KindBlock is returned by BLPOP/BRPOP/BRPOPLPUSH when no data is
	// available yet: it carries a BlockSpec instead of a value, and
	// internal/server is responsible for registering the waiter and
	// eventually writing whatever Reply that registration resolves to.
	KindBlock
	// KindNone marks a Reply already fully handled by the caller (e.g.
	// SUBSCRIBE delivering one ack per channel as it goes), whoever
	// dispatched the command must not write anything further for it.
	KindNone
)

// Reply is the handler-facing result type, independent of wire encoding.
type Reply struct {
	Kind  ReplyKind
	Str   string  // KindSimple
	Err   error   // KindError
	Int   int64   // KindInteger
	Bulk  []byte  // KindBulk
	Array []Reply // KindArray
	Double float64    // KindDouble
	Block  *BlockSpec // KindBlock
}

// BlockSpec describes a blocking list-pop request a Handler couldn't
// satisfy immediately. Pop is called by internal/server (via the
// BlockingHub it owns) once a key becomes ready or the timeout fires;
// Pop returning ok==false means "still nothing, keep waiting" and is only
// expected to happen if two waiters race for the same push.
type BlockSpec struct {
	Keys      []string
	TimeoutMs int64 // 0 means block forever
	// Pop attempts the non-blocking equivalent against key (e.g. LPOP for
	// BLPOP, RPOP+LPUSH for BRPOPLPUSH) and reports whether it produced a
	// reply.
	Pop func(key string) (Reply, bool)
	// OnTimeout builds the reply sent if no key became ready before
	// TimeoutMs elapses, null array for BLPOP/BRPOP, null bulk for
	// BRPOPLPUSH.
	OnTimeout func() Reply
}

func Simple(s string) Reply   { return Reply{Kind: KindSimple, Str: s} }
func Err(err error) Reply     { return Reply{Kind: KindError, Err: err} }
func Integer(n int64) Reply   { return Reply{Kind: KindInteger, Int: n} }
func Bulk(b []byte) Reply     { return Reply{Kind: KindBulk, Bulk: b} }
func BulkString(s string) Reply { return Reply{Kind: KindBulk, Bulk: []byte(s)} }
func NullBulk() Reply         { return Reply{Kind: KindNullBulk} }
func NullArray() Reply        { return Reply{Kind: KindNullArray} }
func Array(items ...Reply) Reply { return Reply{Kind: KindArray, Array: items} }
func Double(f float64) Reply  { return Reply{Kind: KindDouble, Double: f} }

// OK is shared.ok's equivalent, the common "+OK" reply.
func OK() Reply { return Simple("OK") }

var ErrWrongType = simpleErr("WRONGTYPE Operation against a key holding the wrong kind of value")
var ErrNotInteger = simpleErr("value is not an integer or out of range")
var ErrNotFloat = simpleErr("value is not a valid float")
var ErrSyntax = simpleErr("syntax error")
var ErrWrongArgs = simpleErr("wrong number of arguments")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
