package value

// Hash encoding thresholds, upgrade from the packed pair sequence to the
// expanded map when either bound is crossed. Downgrade is never performed
// (matches hashTypeTryConversion in original_source/t_hash.c, which only
// ever moves OBJ_ENCODING_ZIPLIST -> OBJ_ENCODING_HT).
const (
	HashMaxListpackEntries = 128
	HashMaxListpackValue   = 64
)

// HashPayload is the HASH type's payload. Both encodings are modeled with
// the same underlying Go map; what actually differs between "listpack" and
// "hashtable" in the original is memory layout and lookup complexity, which
// a Go map already gives us for free, the Encoding field is kept faithful
// to OBJECT ENCODING's listed/hashtable distinction even though this
// implementation doesn't need a second container type to honor it.
type HashPayload struct {
	fields map[string][]byte
}

func (*HashPayload) payload() {}

// NewHash returns an empty hash payload, starting in the packed encoding.
func NewHash() *Value {
	return New(TypeHash, EncListpack, &HashPayload{fields: make(map[string][]byte)})
}

func (p *HashPayload) Len() int { return len(p.fields) }

func (p *HashPayload) Get(field string) ([]byte, bool) {
	v, ok := p.fields[field]
	return v, ok
}

// Set stores field=val, returning whether the field was newly created. The
// caller is responsible for calling MaybeUpgradeHash afterward so the Value's
// Encoding stays consistent with content, kept as a separate step because
// Set doesn't have access to the owning *Value.
func (p *HashPayload) Set(field string, val []byte) (created bool) {
	_, existed := p.fields[field]
	p.fields[field] = val
	return !existed
}

func (p *HashPayload) Del(field string) bool {
	if _, ok := p.fields[field]; !ok {
		return false
	}
	delete(p.fields, field)
	return true
}

// ExceedsThresholds reports whether the field being written should force an
// upgrade to the hashtable encoding: either the hash now holds more than
// HashMaxListpackEntries fields, or the new field/value length exceeds
// HashMaxListpackValue, hashTypeTryConversion's two triggers.
func (p *HashPayload) ExceedsThresholds(field, val []byte) bool {
	if len(p.fields) > HashMaxListpackEntries {
		return true
	}
	if len(field) > HashMaxListpackValue || len(val) > HashMaxListpackValue {
		return true
	}
	for k, v := range p.fields {
		if len(k) > HashMaxListpackValue || len(v) > HashMaxListpackValue {
			return true
		}
	}
	return false
}

// Fields returns a snapshot slice of (field,value) pairs for HGETALL/HKEYS
// style commands and for hash-wide iteration.
func (p *HashPayload) Fields() []HashField {
	out := make([]HashField, 0, len(p.fields))
	for k, v := range p.fields {
		out = append(out, HashField{Field: k, Value: v})
	}
	return out
}

type HashField struct {
	Field string
	Value []byte
}

// MaybeUpgradeHash promotes v's Encoding to EncHashtable when its payload
// content now exceeds the packed thresholds. Called by command handlers
// right after a field write, mirroring the original calling
// hashTypeTryConversion before the write and hashTypeSet checking the entry
// count after.
func MaybeUpgradeHash(v *Value) {
	if v.Encoding == EncHashtable {
		return
	}
	p := v.Payload.(*HashPayload)
	if len(p.fields) > HashMaxListpackEntries {
		v.Encoding = EncHashtable
		return
	}
	for k, val := range p.fields {
		if len(k) > HashMaxListpackValue || len(val) > HashMaxListpackValue {
			v.Encoding = EncHashtable
			return
		}
	}
}
