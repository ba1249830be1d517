// Package pubsub implements the engine's channel and pattern fanout router,
// matching original_source/pubsub.c: exact-channel subscription,
// glob-pattern subscription, PUBLISH fanout to both, and the PUBSUB
// introspection commands. Delivery is synchronous, Publish calls straight
// into each subscriber's Deliver method on the caller's goroutine; there is
// no buffering beyond the client's own output channel.
package pubsub

import "sort"

// Subscriber is the seam into internal/server's Client: the router never
// touches a socket directly, it only calls back into whoever registered.
type Subscriber interface {
	ID() int64
	SendMessage(channel string, payload []byte)
	SendPMessage(pattern, channel string, payload []byte)
}

type clientSubs struct {
	sub        Subscriber
	channels   map[string]struct{}
	patterns   map[string]struct{}
}

func newClientSubs(sub Subscriber) *clientSubs {
	return &clientSubs{sub: sub, channels: make(map[string]struct{}), patterns: make(map[string]struct{})}
}

func (c *clientSubs) count() int64 { return int64(len(c.channels) + len(c.patterns)) }

// Router holds all server-wide subscription state: exact-channel
// subscribers and pattern subscribers.
type Router struct {
	channels map[string]map[int64]*clientSubs
	patterns map[string]map[int64]*clientSubs
	clients  map[int64]*clientSubs
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		channels: make(map[string]map[int64]*clientSubs),
		patterns: make(map[string]map[int64]*clientSubs),
		clients:  make(map[int64]*clientSubs),
	}
}

func (r *Router) clientState(sub Subscriber) *clientSubs {
	cs, ok := r.clients[sub.ID()]
	if !ok {
		cs = newClientSubs(sub)
		r.clients[sub.ID()] = cs
	}
	return cs
}

// Subscribe adds sub to channel, idempotently, returning the client's new
// total subscription count (channels + patterns).
func (r *Router) Subscribe(sub Subscriber, channel string) int64 {
	cs := r.clientState(sub)
	if _, ok := cs.channels[channel]; !ok {
		cs.channels[channel] = struct{}{}
		if r.channels[channel] == nil {
			r.channels[channel] = make(map[int64]*clientSubs)
		}
		r.channels[channel][sub.ID()] = cs
	}
	return cs.count()
}

// Unsubscribe removes sub from channels (or every channel it holds, if
// channels is empty), returning the client's new total subscription count for
// each affected channel, callers emit one reply per channel, so this
// returns the list of (channel, count) pairs actually touched.
func (r *Router) Unsubscribe(sub Subscriber, channels []string) []ChannelCount {
	cs, ok := r.clients[sub.ID()]
	if !ok {
		cs = newClientSubs(sub)
	}
	if len(channels) == 0 {
		for ch := range cs.channels {
			channels = append(channels, ch)
		}
		if len(channels) == 0 {
			// UNSUBSCRIBE with no channels and no subscriptions still
			// emits one reply carrying a nil channel and the current
			// (zero) count, per the original's "unsubscribe all" path.
			return []ChannelCount{{Channel: "", Count: cs.count()}}
		}
	}
	out := make([]ChannelCount, 0, len(channels))
	for _, ch := range channels {
		delete(cs.channels, ch)
		if set, ok := r.channels[ch]; ok {
			delete(set, sub.ID())
			if len(set) == 0 {
				delete(r.channels, ch)
			}
		}
		out = append(out, ChannelCount{Channel: ch, Count: cs.count()})
	}
	r.pruneClient(sub.ID())
	return out
}

// PSubscribe mirrors Subscribe for glob patterns.
func (r *Router) PSubscribe(sub Subscriber, pattern string) int64 {
	cs := r.clientState(sub)
	if _, ok := cs.patterns[pattern]; !ok {
		cs.patterns[pattern] = struct{}{}
		if r.patterns[pattern] == nil {
			r.patterns[pattern] = make(map[int64]*clientSubs)
		}
		r.patterns[pattern][sub.ID()] = cs
	}
	return cs.count()
}

// PUnsubscribe mirrors Unsubscribe for glob patterns.
func (r *Router) PUnsubscribe(sub Subscriber, patterns []string) []ChannelCount {
	cs, ok := r.clients[sub.ID()]
	if !ok {
		cs = newClientSubs(sub)
	}
	if len(patterns) == 0 {
		for p := range cs.patterns {
			patterns = append(patterns, p)
		}
		if len(patterns) == 0 {
			return []ChannelCount{{Channel: "", Count: cs.count()}}
		}
	}
	out := make([]ChannelCount, 0, len(patterns))
	for _, p := range patterns {
		delete(cs.patterns, p)
		if set, ok := r.patterns[p]; ok {
			delete(set, sub.ID())
			if len(set) == 0 {
				delete(r.patterns, p)
			}
		}
		out = append(out, ChannelCount{Channel: p, Count: cs.count()})
	}
	r.pruneClient(sub.ID())
	return out
}

// DropClient removes every subscription a disconnecting client held,
// internal/server calls this from the connection-close path.
func (r *Router) DropClient(sub Subscriber) {
	r.Unsubscribe(sub, nil)
	r.PUnsubscribe(sub, nil)
	delete(r.clients, sub.ID())
}

func (r *Router) pruneClient(id int64) {
	cs, ok := r.clients[id]
	if ok && len(cs.channels) == 0 && len(cs.patterns) == 0 {
		delete(r.clients, id)
	}
}

// ChannelCount pairs a channel/pattern name with a client's post-operation
// subscription total, SUBSCRIBE/UNSUBSCRIBE's per-entry reply shape.
type ChannelCount struct {
	Channel string
	Count   int64
}

// Publish delivers payload to every exact subscriber of channel and every
// pattern subscriber whose pattern matches channel, returning the total
// number of receiving clients (a client subscribed both ways counts twice,
// matching PUBLISH's recipient-count semantics: once per delivery).
func (r *Router) Publish(channel string, payload []byte) int64 {
	var delivered int64
	if subs, ok := r.channels[channel]; ok {
		for _, cs := range subs {
			cs.sub.SendMessage(channel, payload)
			delivered++
		}
	}
	for pattern, subs := range r.patterns {
		if !Match(pattern, channel) {
			continue
		}
		for _, cs := range subs {
			cs.sub.SendPMessage(pattern, channel, payload)
			delivered++
		}
	}
	return delivered
}

// Channels returns the currently active channel names with at least one
// subscriber, optionally filtered by a glob pattern, PUBSUB CHANNELS.
func (r *Router) Channels(pattern string) []string {
	out := make([]string, 0, len(r.channels))
	for ch := range r.channels {
		if pattern == "" || Match(pattern, ch) {
			out = append(out, ch)
		}
	}
	sort.Strings(out)
	return out
}

// NumSub returns the subscriber count for each requested channel,
// PUBSUB NUMSUB.
func (r *Router) NumSub(channels []string) map[string]int64 {
	out := make(map[string]int64, len(channels))
	for _, ch := range channels {
		out[ch] = int64(len(r.channels[ch]))
	}
	return out
}

// NumPat returns the number of distinct active patterns, PUBSUB NUMPAT.
func (r *Router) NumPat() int64 { return int64(len(r.patterns)) }
