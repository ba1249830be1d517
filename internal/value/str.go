package value

import (
	"errors"
	"strconv"
)

// ErrNotInteger mirrors the original's "value is not an integer or out of
// range" error, returned by the INCR/DECR family on a non-numeric string.
var ErrNotInteger = errors.New("value is not an integer or out of range")

// ErrOverflow mirrors "increment or decrement would overflow".
var ErrOverflow = errors.New("increment or decrement would overflow")

// MaxStringLength is the hard ceiling on a string value's length. Exactly
// this many bytes is accepted; one more is rejected (checkStringLength in
// original_source/t_string.c).
const MaxStringLength = 512 * 1024 * 1024

// sharedIntegers mirrors OBJ_SHARED_INTEGERS: small integer literals are
// pre-built once and handed out with a bumped refcount instead of
// allocating a fresh Value per SET/INCR on a small number.
const sharedIntegerCount = 10000

var sharedIntegers [sharedIntegerCount]*Value

func init() {
	for i := range sharedIntegers {
		sharedIntegers[i] = New(TypeString, EncInt, &StringPayload{asInt: true, intVal: int64(i)}).Shared()
	}
}

// StringPayload is the STRING type's payload. Exactly one of the two
// representations is active: asInt selects the integer-tagged encoding,
// otherwise buf holds the raw bytes.
type StringPayload struct {
	asInt  bool
	intVal int64
	buf    []byte
}

func (*StringPayload) payload() {}

// NewString builds a Value for b, auto-selecting the integer encoding when b
// parses cleanly as an int64 with no leading zero / sign quirks that would
// make the round trip lossy, and reusing a shared small-integer object when
// possible.
func NewString(b []byte) *Value {
	if n, ok := parseStrictInt64(b); ok {
		if n >= 0 && n < sharedIntegerCount {
			return sharedIntegers[n]
		}
		return New(TypeString, EncInt, &StringPayload{asInt: true, intVal: n})
	}
	enc := EncRaw
	if len(b) <= 44 {
		enc = EncEmbstr
	}
	buf := make([]byte, len(b))
	copy(buf, b)
	return New(TypeString, enc, &StringPayload{buf: buf})
}

// NewRawString builds a raw-encoded Value directly from buf, bypassing
// NewString's integer auto-detection, used by SETRANGE/APPEND, which
// always want their result stored verbatim rather than reinterpreted as
// an integer.
func NewRawString(buf []byte) *Value {
	cp := append([]byte(nil), buf...)
	return New(TypeString, EncRaw, &StringPayload{buf: cp})
}

// NewStringInt64 builds an integer-encoded Value directly, reusing the
// shared cache for small values, the path INCR/DECR use after arithmetic.
func NewStringInt64(n int64) *Value {
	if n >= 0 && n < sharedIntegerCount {
		return sharedIntegers[n]
	}
	return New(TypeString, EncInt, &StringPayload{asInt: true, intVal: n})
}

func parseStrictInt64(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	// Reject leading zeros ("01") and bare "-0"/"+" forms: these parse as
	// integers but wouldn't round-trip back to the same bytes on Bytes(),
	// which the original avoids by using the same string2ll used for
	// lossless round-tripping.
	s := b
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) == 0 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	if s[0] == '0' && neg {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bytes renders the payload's logical byte-string value regardless of
// encoding.
func (p *StringPayload) Bytes() []byte {
	if p.asInt {
		return []byte(strconv.FormatInt(p.intVal, 10))
	}
	return p.buf
}

// Len returns the logical string length without allocating for the integer
// encoding when possible.
func (p *StringPayload) Len() int {
	if p.asInt {
		return len(strconv.FormatInt(p.intVal, 10))
	}
	return len(p.buf)
}

// Int64 returns the integer value and whether the payload is int-encoded.
func (p *StringPayload) Int64() (int64, bool) {
	return p.intVal, p.asInt
}

// AsInt64 parses the logical value as an integer regardless of encoding,
// used by INCR/DECR against a value that happens to be raw/embstr-encoded
// but still numeric text.
func (p *StringPayload) AsInt64() (int64, error) {
	if p.asInt {
		return p.intVal, nil
	}
	n, ok := parseStrictInt64(p.buf)
	if !ok {
		return 0, ErrNotInteger
	}
	return n, nil
}

// Unshare returns a mutable copy of v suitable for in-place writes:
// SETRANGE/APPEND-family operations must call this before mutating a string
// Value whose refcount is >1 (a shared small integer) or whose encoding is
// the immutable int tag.
func Unshare(v *Value) *Value {
	if v.Refcount <= 1 && v.Encoding != EncInt {
		return v
	}
	sp := v.Payload.(*StringPayload)
	buf := append([]byte(nil), sp.Bytes()...)
	return New(TypeString, EncRaw, &StringPayload{buf: buf})
}
