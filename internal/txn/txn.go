// Package txn implements optimistic-concurrency transactions: the
// MULTI/EXEC command queue and WATCH's CAS invalidation, matching
// original_source/multi.c's client-state machine.
//
// The core owns no locks here, a watched-key invalidation is just a flag
// flip on the client's State, checked at EXEC time. Concurrency safety
// comes entirely from the reactor's single-threaded tick: by the time one
// client's EXEC runs, every mutator that could have dirtied its watched
// keys has already run to completion.
package txn

import (
	"errors"
)

// ErrNestedMulti is returned by Multi when the client is already in a
// transaction.
var ErrNestedMulti = errors.New("MULTI calls can not be nested")

// ErrWatchInsideMulti is returned by Watch when called after MULTI,
// WATCH only makes sense before a transaction starts queuing.
var ErrWatchInsideMulti = errors.New("WATCH inside MULTI is not allowed")

// QueuedCommand is one command captured between MULTI and EXEC.
type QueuedCommand struct {
	Argv []string
}

// WatchedKey names a (database, key) pair a client is watching.
type WatchedKey struct {
	DBID int
	Key  string
}

// KeyWatcher is the seam into internal/store's per-database watch table:
// State doesn't know about store.Database directly (that would make
// internal/store and internal/txn import each other's client-facing
// types), so it talks to it through this interface instead.
type KeyWatcher interface {
	Watch(key string, clientID int64)
	Unwatch(clientID int64, keys []string)
}

// State is the per-client transaction state machine: whether it is in a
// MULTI, the queued commands, whether queuing already hit an error, the
// CAS-dirty flag, and its watched keys.
type State struct {
	ClientID int64

	inMulti      bool
	queueErrored bool
	casDirty     bool
	queue        []QueuedCommand
	watched      []WatchedKey
}

// NewState returns a fresh, non-transactional state for a new client.
func NewState(clientID int64) *State {
	return &State{ClientID: clientID}
}

// InMulti reports whether the client is between MULTI and EXEC/DISCARD.
func (s *State) InMulti() bool { return s.inMulti }

// Multi begins queuing. Mirrors the "MULTI calls can not be nested" check.
func (s *State) Multi() error {
	if s.inMulti {
		return ErrNestedMulti
	}
	s.inMulti = true
	s.queueErrored = false
	s.queue = nil
	return nil
}

// Queue appends argv to the pending transaction. syntaxOK reports the
// caller's arity/syntax validation result, a syntax failure sets queueErrored
// instead of enqueuing, matching "validate syntax; on failure set
// queueErrored; on success enqueue".
func (s *State) Queue(argv []string, syntaxOK bool) {
	if !syntaxOK {
		s.queueErrored = true
		return
	}
	s.queue = append(s.queue, QueuedCommand{Argv: argv})
}

// Watch registers key in db (by numeric id) against watcher, both in the
// client's local list and the database's watched_keys table. Fails if
// called mid-transaction.
func (s *State) Watch(dbID int, key string, watcher KeyWatcher) error {
	if s.inMulti {
		return ErrWatchInsideMulti
	}
	watcher.Watch(key, s.ClientID)
	s.watched = append(s.watched, WatchedKey{DBID: dbID, Key: key})
	return nil
}

// Unwatch clears every key the client is watching (across whichever
// databases it watched keys in), via the supplied resolver, UNWATCH's
// contract and also called implicitly by EXEC/DISCARD/RESET.
func (s *State) Unwatch(resolve func(dbID int) KeyWatcher) {
	byDB := make(map[int][]string)
	for _, wk := range s.watched {
		byDB[wk.DBID] = append(byDB[wk.DBID], wk.Key)
	}
	for dbID, keys := range byDB {
		if w := resolve(dbID); w != nil {
			w.Unwatch(s.ClientID, keys)
		}
	}
	s.watched = nil
}

// MarkDirty flips casDirty, called once per watching client when any
// mutator touches one of its watched keys, before that mutator's own
// reply is emitted.
func (s *State) MarkDirty() { s.casDirty = true }

// ExecResult is EXEC's three-way outcome.
type ExecResult int

const (
	// ExecAborted means a queue-time syntax error occurred: reply
	// EXECABORT, nothing runs.
	ExecAborted ExecResult = iota
	// ExecDirty means a watched key was invalidated: reply null-array,
	// nothing runs.
	ExecDirty
	// ExecRun means the queue should execute in order.
	ExecRun
)

// Exec reports what EXEC should do and always clears transactional state
// afterward (queue/casDirty/inMulti/watched), matching "Always clears
// transactional state" regardless of outcome. The caller is responsible
// for actually invoking each queued command when the result is ExecRun;
// the queued commands are returned so the caller can run them after state is
// reset.
func (s *State) Exec(resolve func(dbID int) KeyWatcher) (ExecResult, []QueuedCommand) {
	defer s.reset(resolve)

	if s.queueErrored {
		return ExecAborted, nil
	}
	if s.casDirty {
		return ExecDirty, nil
	}
	return ExecRun, s.queue
}

// Discard clears transactional state without executing anything,
// DISCARD's contract.
func (s *State) Discard(resolve func(dbID int) KeyWatcher) {
	s.reset(resolve)
}

// Reset clears transactional state exactly like Discard, RESET's
// transactional half (the subscription half lives in internal/server,
// which owns those tables).
func (s *State) Reset(resolve func(dbID int) KeyWatcher) {
	s.reset(resolve)
}

func (s *State) reset(resolve func(dbID int) KeyWatcher) {
	s.Unwatch(resolve)
	s.inMulti = false
	s.queueErrored = false
	s.casDirty = false
	s.queue = nil
}

// QueueableDuringMulti reports whether cmdName must execute immediately
// even while queuing: MULTI/EXEC/DISCARD/WATCH/UNWATCH/RESET.
func QueueableDuringMulti(cmdName string) bool {
	switch cmdName {
	case "MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH", "RESET":
		return true
	}
	return false
}
