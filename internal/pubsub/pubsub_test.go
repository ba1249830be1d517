package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id       int64
	messages [][2]string
	pmsgs    [][3]string
}

func (f *fakeSub) ID() int64 { return f.id }
func (f *fakeSub) SendMessage(channel string, payload []byte) {
	f.messages = append(f.messages, [2]string{channel, string(payload)})
}
func (f *fakeSub) SendPMessage(pattern, channel string, payload []byte) {
	f.pmsgs = append(f.pmsgs, [3]string{pattern, channel, string(payload)})
}

func TestSubscribePublishExactChannel(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	require.EqualValues(t, 1, r.Subscribe(c1, "news.sports"))

	n := r.Publish("news.sports", []byte("go"))
	require.EqualValues(t, 1, n)
	require.Equal(t, [][2]string{{"news.sports", "go"}}, c1.messages)
}

func TestPatternSubscriptionMatches(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	r.PSubscribe(c1, "news.*")

	n := r.Publish("news.sports", []byte("go"))
	require.EqualValues(t, 1, n)
	require.Equal(t, [][3]string{{"news.*", "news.sports", "go"}}, c1.pmsgs)

	n = r.Publish("weather.sf", []byte("rain"))
	require.EqualValues(t, 0, n)
}

func TestMatchBracketClass(t *testing.T) {
	require.True(t, Match("h[ae]llo", "hello"))
	require.True(t, Match("h[ae]llo", "hallo"))
	require.False(t, Match("h[ae]llo", "hillo"))
}

func TestMatchBracketRangeAndNegation(t *testing.T) {
	require.True(t, Match("[a-c]at", "bat"))
	require.False(t, Match("[a-c]at", "zat"))
	require.True(t, Match("[^a-c]at", "zat"))
	require.False(t, Match("[^a-c]at", "bat"))
}

func TestMatchBackslashEscape(t *testing.T) {
	require.True(t, Match(`news\.*`, "news.sports"))
	require.False(t, Match(`news\.*`, "newsXsports"))
	require.True(t, Match(`h\[i`, "h[i"))
}

func TestMatchEmptyPattern(t *testing.T) {
	require.True(t, Match("", ""))
	require.False(t, Match("", "x"))
}

func TestMatchUnmatchedBracketConsumesToEnd(t *testing.T) {
	require.True(t, Match("[abc", "a"))
	require.False(t, Match("[abc", "d"))
	require.False(t, Match("[abc", "[abc"))
}

func TestMatchUTF8Passthrough(t *testing.T) {
	require.True(t, Match("news.*", "news.été"))
	require.True(t, Match("café", "café"))
	require.False(t, Match("café", "cafe"))
}

func TestPatternSubscriptionMatchesBracketClass(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	r.PSubscribe(c1, "h[ae]llo")

	n := r.Publish("hallo", []byte("hi"))
	require.EqualValues(t, 1, n)
	n = r.Publish("hillo", []byte("hi"))
	require.EqualValues(t, 0, n)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	r.Subscribe(c1, "a")
	r.Subscribe(c1, "b")

	res := r.Unsubscribe(c1, []string{"a"})
	require.Equal(t, []ChannelCount{{Channel: "a", Count: 1}}, res)

	// Unsubscribing again from "a" is a no-op, not an error.
	res = r.Unsubscribe(c1, []string{"a"})
	require.Equal(t, []ChannelCount{{Channel: "a", Count: 1}}, res)
}

func TestUnsubscribeAllWithNoArgs(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	r.Subscribe(c1, "a")
	r.PSubscribe(c1, "p.*")

	res := r.Unsubscribe(c1, nil)
	require.Len(t, res, 1)
	require.Equal(t, int64(1), res[0].Count) // pattern subscription remains
}

func TestSubscriptionCountIsChannelsPlusPatterns(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	require.EqualValues(t, 1, r.Subscribe(c1, "a"))
	require.EqualValues(t, 2, r.PSubscribe(c1, "p.*"))
	require.EqualValues(t, 3, r.Subscribe(c1, "b"))
}

func TestDropClientRemovesAllSubscriptions(t *testing.T) {
	r := NewRouter()
	c1 := &fakeSub{id: 1}
	r.Subscribe(c1, "a")
	r.PSubscribe(c1, "p.*")
	r.DropClient(c1)

	require.EqualValues(t, 0, r.Publish("a", []byte("x")))
	require.EqualValues(t, 0, r.NumPat())
}

func TestPubsubIntrospection(t *testing.T) {
	r := NewRouter()
	c1, c2 := &fakeSub{id: 1}, &fakeSub{id: 2}
	r.Subscribe(c1, "news.sports")
	r.Subscribe(c2, "news.sports")
	r.Subscribe(c2, "weather")
	r.PSubscribe(c1, "news.*")

	require.ElementsMatch(t, []string{"news.sports", "weather"}, r.Channels(""))
	require.ElementsMatch(t, []string{"news.sports"}, r.Channels("news.*"))
	require.EqualValues(t, 2, r.NumSub([]string{"news.sports"})["news.sports"])
	require.EqualValues(t, 1, r.NumPat())
}
