package value

// Set encoding thresholds. A SET holding only parseable integers starts as
// an intset; it upgrades to a hashtable-backed set either when it grows past
// SetMaxIntsetEntries or the moment a non-integer member is added.
const SetMaxIntsetEntries = 512

// SetPayload is the SET type's payload: a Go set (map to struct{}) under
// both encodings, same rationale as HashPayload for not needing two
// container types to honor the Encoding field's observable contract.
type SetPayload struct {
	members map[string]struct{}
	allInts bool
}

func (*SetPayload) payload() {}

// NewSet returns an empty set payload, starting in the intset encoding
// (vacuously all-integer).
func NewSet() *Value {
	return New(TypeSet, EncIntset, &SetPayload{members: make(map[string]struct{}), allInts: true})
}

func (p *SetPayload) Len() int { return len(p.members) }

func (p *SetPayload) Has(member string) bool {
	_, ok := p.members[member]
	return ok
}

// Add inserts member, returning whether it was newly added, and updates
// whether the set is still all-integer content (for MaybeUpgradeSet).
func (p *SetPayload) Add(member string) (added bool) {
	if _, ok := p.members[member]; ok {
		return false
	}
	p.members[member] = struct{}{}
	if _, ok := parseStrictInt64([]byte(member)); !ok {
		p.allInts = false
	}
	return true
}

func (p *SetPayload) Remove(member string) bool {
	if _, ok := p.members[member]; !ok {
		return false
	}
	delete(p.members, member)
	return true
}

func (p *SetPayload) Members() []string {
	out := make([]string, 0, len(p.members))
	for m := range p.members {
		out = append(out, m)
	}
	return out
}

// MaybeUpgradeSet promotes v's Encoding to EncHashtable once the intset
// invariant breaks (a non-integer member present, or the cardinality
// crosses SetMaxIntsetEntries), mirrors setTypeMaybeConvert.
func MaybeUpgradeSet(v *Value) {
	if v.Encoding == EncHashtable {
		return
	}
	p := v.Payload.(*SetPayload)
	if !p.allInts || len(p.members) > SetMaxIntsetEntries {
		v.Encoding = EncHashtable
	}
}
