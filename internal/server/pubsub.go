package server

import (
	"strconv"

	"github.com/tempuskv/tempuskv/internal/command"
	"github.com/tempuskv/tempuskv/internal/maxmemory"
)

func (s *Server) subscribeCommand(c *Client, argv []string) command.Reply {
	if len(argv) < 2 {
		return command.Err(simpleErr("wrong number of arguments for 'subscribe' command"))
	}
	for _, ch := range argv[1:] {
		count := s.router.Subscribe(c, ch)
		c.deliver(subAck("subscribe", ch, count))
	}
	return command.Reply{Kind: command.KindNone}
}

func (s *Server) psubscribeCommand(c *Client, argv []string) command.Reply {
	if len(argv) < 2 {
		return command.Err(simpleErr("wrong number of arguments for 'psubscribe' command"))
	}
	for _, p := range argv[1:] {
		count := s.router.PSubscribe(c, p)
		c.deliver(subAck("psubscribe", p, count))
	}
	return command.Reply{Kind: command.KindNone}
}

func (s *Server) unsubscribeCommand(c *Client, argv []string) command.Reply {
	for _, cc := range s.router.Unsubscribe(c, argv[1:]) {
		c.deliver(subAck("unsubscribe", cc.Channel, cc.Count))
	}
	return command.Reply{Kind: command.KindNone}
}

func (s *Server) punsubscribeCommand(c *Client, argv []string) command.Reply {
	for _, cc := range s.router.PUnsubscribe(c, argv[1:]) {
		c.deliver(subAck("punsubscribe", cc.Channel, cc.Count))
	}
	return command.Reply{Kind: command.KindNone}
}

func subAck(kind, channel string, count int64) command.Reply {
	return command.Array(
		command.BulkString(kind),
		command.BulkString(channel),
		command.Integer(count),
	)
}

func (s *Server) publishCommand(c *Client, argv []string) command.Reply {
	if len(argv) != 3 {
		return command.Err(simpleErr("wrong number of arguments for 'publish' command"))
	}
	n := s.router.Publish(argv[1], []byte(argv[2]))
	return command.Integer(n)
}

// notifyFunc builds the per-database keyspace-notification sink a
// command.Context hands to mutating handlers: it marks WATCHers dirty and,
// when enabled, fans the event out over the same pub/sub router clients
// use, on the two channel names the original wires this through
// (__keyspace@<db>__:<key> carries the event name as payload,
// __keyevent@<db>__:<event> carries the key).
func (s *Server) notifyFunc(dbID int) func(class, event, key string) {
	return func(class, event, key string) {
		s.touchWatchers(dbID, key)
		s.touchMaxMemory(dbID, event, key)
		if !s.opts.KeyspaceNotifications {
			return
		}
		base := "__keyspace@" + strconv.Itoa(dbID) + "__:"
		s.router.Publish(base+key, []byte(event))
		s.router.Publish("__keyevent@"+strconv.Itoa(dbID)+"__:"+event, []byte(key))
	}
}

// touchMaxMemory keeps the eviction policy's LRU order and byte-usage
// estimate in sync with every notified mutation, del/evicted/expired
// drop the key, flushdb drops the whole database, and everything else
// re-measures the key's current value.
func (s *Server) touchMaxMemory(dbID int, event, key string) {
	if s.maxmem.MaxBytes() == 0 {
		return
	}
	switch event {
	case "del", "evicted", "expired":
		s.maxmem.Forget(dbID, key)
		return
	case "flushdb":
		s.maxmem.ForgetDB(dbID)
		return
	}
	db, err := s.registry.Select(dbID)
	if err != nil {
		return
	}
	v, ok := db.LookupRead(key)
	if !ok {
		return
	}
	s.maxmem.Touch(dbID, key, maxmemory.ApproxSize(v))
}

func (s *Server) touchWatchers(dbID int, key string) {
	db, err := s.registry.Select(dbID)
	if err != nil {
		return
	}
	for _, clientID := range db.TouchWatchers(key) {
		s.mu.Lock()
		c, ok := s.clients[clientID]
		s.mu.Unlock()
		if ok {
			c.txn.MarkDirty()
		}
	}
}
