// Package server wires every engine package into a running TCP listener:
// accepting connections, decoding RESP commands, dispatching them through
// internal/command on a single serialized goroutine (preserving the
// reactor's single-threaded guarantee even though socket I/O itself runs
// on ordinary per-connection goroutines), and servicing MULTI/EXEC/WATCH,
// SUBSCRIBE/PUBLISH and BLPOP-family blocking through their respective
// packages.
//
// Client sockets are not registered with internal/reactor directly,
// net.Conn's blocking Read doesn't expose a raw, poll-friendly fd without
// giving up the runtime's own netpoller, so each connection gets an
// ordinary read goroutine that feeds a single inbox channel instead. What
// *is* registered with the reactor is a self-pipe: writing a byte to it
// wakes the reactor's poll the same way original_source/ae.c's own
// eventfd-based "module command" wakeup does, letting BLPOP timeouts and
// the active-expire cycle share one scheduling seam (internal/reactor)
// with request dispatch instead of introducing a second ad hoc ticker.
package server

import (
	"io"
	"math/rand/v2"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tempuskv/tempuskv/internal/command"
	"github.com/tempuskv/tempuskv/internal/expire"
	"github.com/tempuskv/tempuskv/internal/lazyfree"
	"github.com/tempuskv/tempuskv/internal/maxmemory"
	"github.com/tempuskv/tempuskv/internal/pubsub"
	"github.com/tempuskv/tempuskv/internal/reactor"
	"github.com/tempuskv/tempuskv/internal/resp"
	"github.com/tempuskv/tempuskv/internal/store"
	"github.com/tempuskv/tempuskv/internal/value"
)

// Options configures a Server. Zero values pick sane single-node defaults.
type Options struct {
	Databases              int
	KeyspaceNotifications  bool
	ActiveExpirePeriod     time.Duration
	MaxMemoryBytes         int64
	LazyFree               *lazyfree.Worker
	Log                    *zap.Logger
}

// Server owns the registry, command table, blocking hub, pub/sub router
// and the reactor driving timers, everything a listening socket needs.
type Server struct {
	opts Options
	log  *zap.Logger

	registry *store.Registry
	table    command.Table
	hub      *command.BlockingHub
	router   *pubsub.Router
	cycle    *expire.Cycle
	maxmem   *maxmemory.Policy

	loop       *reactor.EventLoop
	wakeupR    *os.File
	wakeupW    *os.File

	mu      sync.Mutex
	nextID  int64
	clients map[int64]*Client

	inbox chan *request

	listener net.Listener
	done     chan struct{}
}

type request struct {
	client *Client
	argv   []string
}

// New constructs a Server; call Serve to start accepting connections.
func New(opts Options) (*Server, error) {
	if opts.Databases <= 0 {
		opts.Databases = 16
	}
	if opts.ActiveExpirePeriod <= 0 {
		opts.ActiveExpirePeriod = 100 * time.Millisecond
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	loop, err := reactor.New(65536)
	if err != nil {
		return nil, err
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	cycle := expire.NewCycle()
	if opts.LazyFree != nil {
		cycle.LazyFree = true
		cycle.FreeFunc = opts.LazyFree.Free
	}

	s := &Server{
		opts:     opts,
		log:      opts.Log,
		registry: store.NewRegistry(opts.Databases),
		table:    command.NewTable(),
		hub:      command.NewBlockingHub(),
		router:   pubsub.NewRouter(),
		cycle:    cycle,
		maxmem:   maxmemory.New(maxmemory.WithMaxBytes(opts.MaxMemoryBytes)),
		loop:     loop,
		wakeupR:  r,
		wakeupW:  w,
		clients:  make(map[int64]*Client),
		inbox:    make(chan *request, 4096),
		done:     make(chan struct{}),
	}
	cycle.Notify = func(class, event, key string, dbID int) {
		s.notifyFunc(dbID)(class, event, key)
	}
	return s, nil
}

// freeFunc is the command.Context.LazyFree hook: nil when no lazyfree.Worker
// was configured, in which case values are simply dropped and reclaimed by
// the Go garbage collector on the caller's own goroutine.
func (s *Server) freeFunc(v *value.Value) {
	if s.opts.LazyFree != nil {
		s.opts.LazyFree.Free(v)
	}
}

// evictKey is the maxmemory.EvictFunc wired into the Policy's reactor
// timer: it deletes the chosen key from its owning database, routes its
// value through the same lazy-free path a DEL would, and emits a
// keyspace notification so WATCHers and subscribers see it the same way
// they'd see an explicit DEL.
func (s *Server) evictKey(reg *store.Registry, dbID int, key string) {
	db, err := reg.Select(dbID)
	if err != nil {
		return
	}
	v, ok := db.LookupWrite(key)
	if !ok {
		return
	}
	if db.DBDelete(key) {
		s.freeFunc(v)
		s.notifyFunc(dbID)("GENERIC", "evicted", key)
	}
}

func randUint64() uint64 { return rand.Uint64() }
func nowMs() int64       { return time.Now().UnixMilli() }

// Serve listens on addr and runs until Close is called or the listener
// errors. It blocks the calling goroutine.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.cycle.ArmTimer(s.loop, s.registry, randUint64)
	if s.maxmem.MaxBytes() > 0 {
		s.maxmem.ArmTimer(s.loop, s.registry, s.evictKey)
	}
	s.registerWakeup()

	go s.acceptLoop(ln)

	s.loop.Run()
	return nil
}

// Close stops the reactor and listener, closing every connected client.
func (s *Server) Close() error {
	s.loop.Stop()
	close(s.done)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for _, c := range s.clients {
		_ = c.conn.Close()
	}
	s.mu.Unlock()
	_ = s.wakeupW.Close()
	_ = s.wakeupR.Close()
	return s.loop.Close()
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.addClient(conn)
	}
}

func (s *Server) addClient(conn net.Conn) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	c := newClient(id, conn, s)
	s.clients[id] = c
	s.mu.Unlock()

	go c.readLoop()
	go c.writeLoop()
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	s.router.DropClient(c)
}

// registerWakeup binds the self-pipe's read end to the reactor so posting
// to s.inbox from a connection's read goroutine interrupts a blocked Poll
// and drains the inbox on the reactor's own goroutine, the only place
// commands are ever dispatched, keeping keyspace mutation, the
// active-expire cycle, and blocking-command timeouts all on one thread of
// execution exactly as the reactor package's single-scheduling-seam
// contract requires.
func (s *Server) registerWakeup() {
	fd := int(s.wakeupR.Fd())
	_ = s.loop.Register(fd, reactor.Readable, func(fd int, mask reactor.Mask) {
		buf := make([]byte, 64)
		_, _ = s.wakeupR.Read(buf)
		s.drainInbox()
	}, nil)
}

func (s *Server) drainInbox() {
	for {
		select {
		case req := <-s.inbox:
			s.handle(req)
		default:
			return
		}
	}
}

func (s *Server) wake() {
	_, _ = s.wakeupW.Write([]byte{0})
}

func (s *Server) post(c *Client, argv []string) {
	select {
	case s.inbox <- &request{client: c, argv: argv}:
		s.wake()
	case <-s.done:
	}
}

var _ io.Closer = (*Server)(nil)
