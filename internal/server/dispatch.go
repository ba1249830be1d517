package server

import (
	"strconv"
	"strings"

	"github.com/tempuskv/tempuskv/internal/command"
	"github.com/tempuskv/tempuskv/internal/reactor"
	"github.com/tempuskv/tempuskv/internal/txn"
)

// handle runs exactly one client request to completion. It is only ever
// called from the reactor goroutine (via drainInbox), so everything it
// touches, the registries, the blocking hub, the pub/sub router, every
// client's txn.State, can be mutated without a lock.
func (s *Server) handle(req *request) {
	c, argv := req.client, req.argv
	name := strings.ToUpper(argv[0])

	if c.txn.InMulti() && !txn.QueueableDuringMulti(name) {
		c.txn.Queue(argv, true)
		c.deliver(command.Simple("QUEUED"))
		return
	}

	reply := s.dispatchOne(c, name, argv, false)
	if reply.Kind == command.KindBlock {
		s.registerBlocking(c, reply.Block)
		return
	}
	if reply.Kind == command.KindNone {
		return
	}
	c.deliver(reply)
}

// dispatchOne executes one command by name, intercepting the server-level
// commands (transactions, pub/sub, SELECT, RESET) before falling through
// to the per-type internal/command.Table for everything else.
func (s *Server) dispatchOne(c *Client, name string, argv []string, inMulti bool) command.Reply {
	switch name {
	case "MULTI":
		if err := c.txn.Multi(); err != nil {
			return command.Err(err)
		}
		return command.OK()
	case "DISCARD":
		if !c.txn.InMulti() {
			return command.Err(errNotInMulti)
		}
		c.txn.Discard(s.watcherResolver(c))
		return command.OK()
	case "EXEC":
		return s.execCommand(c)
	case "WATCH":
		return s.watchCommand(c, argv)
	case "UNWATCH":
		c.txn.Unwatch(s.watcherResolver(c))
		return command.OK()
	case "RESET":
		c.txn.Reset(s.watcherResolver(c))
		s.router.DropClient(c)
		c.dbID = 0
		return command.Simple("RESET")
	case "SELECT":
		return s.selectCommand(c, argv)
	case "SUBSCRIBE":
		return s.subscribeCommand(c, argv)
	case "UNSUBSCRIBE":
		return s.unsubscribeCommand(c, argv)
	case "PSUBSCRIBE":
		return s.psubscribeCommand(c, argv)
	case "PUNSUBSCRIBE":
		return s.punsubscribeCommand(c, argv)
	case "PUBLISH":
		return s.publishCommand(c, argv)
	case "FLUSHALL":
		return s.flushAllCommand(argv)
	}

	db, err := s.registry.Select(c.dbID)
	if err != nil {
		return command.Err(simpleErr(err.Error()))
	}
	ctx := &command.Context{
		DB:         db,
		NowMs:      nowMs,
		RandUint64: randUint64,
		DBID:       c.dbID,
		ClientID:   c.id,
		InMulti:    inMulti,
		Notify:     s.notifyFunc(c.dbID),
		Hub:        s.hub,
		LazyFree:   s.freeFunc,
	}
	return s.table.Dispatch(ctx, argv)
}

func (s *Server) watcherResolver(c *Client) func(dbID int) txn.KeyWatcher {
	return func(dbID int) txn.KeyWatcher {
		db, err := s.registry.Select(dbID)
		if err != nil {
			return nil
		}
		return db
	}
}

func (s *Server) watchCommand(c *Client, argv []string) command.Reply {
	if len(argv) < 2 {
		return command.Err(simpleErr("wrong number of arguments for 'watch' command"))
	}
	db, err := s.registry.Select(c.dbID)
	if err != nil {
		return command.Err(simpleErr(err.Error()))
	}
	for _, key := range argv[1:] {
		if werr := c.txn.Watch(c.dbID, key, db); werr != nil {
			return command.Err(werr)
		}
	}
	return command.OK()
}

func (s *Server) execCommand(c *Client) command.Reply {
	result, queue := c.txn.Exec(s.watcherResolver(c))
	switch result {
	case txn.ExecAborted:
		return command.Err(errExecAbort)
	case txn.ExecDirty:
		return command.NullArray()
	}
	out := make([]command.Reply, len(queue))
	for i, qc := range queue {
		r := s.dispatchOne(c, strings.ToUpper(qc.Argv[0]), qc.Argv, true)
		if r.Kind == command.KindNone {
			r = command.OK()
		}
		out[i] = r
	}
	return command.Array(out...)
}

// flushAllCommand empties every database in the registry, internal/command's
// cmdFlushAll only ever sees the Context's single selected database, so the
// loop across the whole registry has to happen here.
func (s *Server) flushAllCommand(argv []string) command.Reply {
	if len(argv) != 1 {
		return command.Err(simpleErr("wrong number of arguments for 'flushall' command"))
	}
	s.registry.EmptyAll()
	s.maxmem.ForgetAll()
	return command.OK()
}

func (s *Server) selectCommand(c *Client, argv []string) command.Reply {
	if len(argv) != 2 {
		return command.Err(simpleErr("wrong number of arguments for 'select' command"))
	}
	idx, err := strconv.Atoi(argv[1])
	if err != nil {
		return command.Err(command.ErrNotInteger)
	}
	if _, err := s.registry.Select(idx); err != nil {
		return command.Err(simpleErr(err.Error()))
	}
	c.dbID = idx
	return command.OK()
}

var errNotInMulti = simpleErr("DISCARD without MULTI")
var errExecAbort = simpleErr("EXECABORT Transaction discarded because of previous errors")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

// registerBlocking parks c's reply on the hub and arms a timeout timer on
// the reactor when TimeoutMs > 0. A lightweight goroutine waits on the
// hub's result channel and forwards whatever it resolves to c's outbox,
// that goroutine never touches keyspace state, it only moves a value
// already computed by the reactor goroutine (via Wake or the timer's
// OnTimeout) onto the client's write path.
func (s *Server) registerBlocking(c *Client, spec *command.BlockSpec) {
	resultCh, _, timeout := s.hub.Register(c.dbID, spec)
	if spec.TimeoutMs > 0 {
		s.loop.AddTimer(spec.TimeoutMs, func(id int64) int64 {
			timeout()
			return reactor.Done
		}, nil)
	}
	go func() {
		reply := <-resultCh
		c.deliver(reply)
	}()
}
