package value

import "sort"

// ZSet encoding thresholds, mirroring HASH's.
const (
	ZSetMaxListpackEntries = 128
	ZSetMaxListpackValue   = 64
)

// ZSetPayload is the ZSET type's payload: member -> score plus an index kept
// sorted on demand. Both the packed and skiplist encodings are modeled with
// the same map+sort approach (see HashPayload's doc comment for the
// rationale); what the original gets from an actual skiplist, O(log n)
// insert and range-by-rank, this gets from re-sorting a snapshot on read,
// which is the right trade for a reference implementation at this scope.
type ZSetPayload struct {
	scores map[string]float64
}

func (*ZSetPayload) payload() {}

func NewZSet() *Value {
	return New(TypeZSet, EncListpack, &ZSetPayload{scores: make(map[string]float64)})
}

func (p *ZSetPayload) Len() int { return len(p.scores) }

func (p *ZSetPayload) Score(member string) (float64, bool) {
	s, ok := p.scores[member]
	return s, ok
}

// Set assigns member's score, returning whether it was newly added.
func (p *ZSetPayload) Set(member string, score float64) (added bool) {
	_, existed := p.scores[member]
	p.scores[member] = score
	return !existed
}

func (p *ZSetPayload) Remove(member string) bool {
	if _, ok := p.scores[member]; !ok {
		return false
	}
	delete(p.scores, member)
	return true
}

// ZMember pairs a member with its score for ordered output.
type ZMember struct {
	Member string
	Score  float64
}

// Sorted returns every member ordered by (score, member) ascending, ZSET's
// tie-break rule when two members share a score.
func (p *ZSetPayload) Sorted() []ZMember {
	out := make([]ZMember, 0, len(p.scores))
	for m, s := range p.scores {
		out = append(out, ZMember{Member: m, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

// MaybeUpgradeZSet promotes to EncSkiplist once content crosses the packed
// thresholds, mirroring zsetTypeMaybeConvert's HASH-equivalent rule.
func MaybeUpgradeZSet(v *Value) {
	if v.Encoding == EncSkiplist {
		return
	}
	p := v.Payload.(*ZSetPayload)
	if len(p.scores) > ZSetMaxListpackEntries {
		v.Encoding = EncSkiplist
		return
	}
	for m := range p.scores {
		if len(m) > ZSetMaxListpackValue {
			v.Encoding = EncSkiplist
			return
		}
	}
}
