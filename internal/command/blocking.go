package command

import "sync"

// Waker is the seam a push command (LPUSH/RPUSH/RPOPLPUSH) uses to service
// clients parked on BLPOP/BRPOP/BRPOPLPUSH after it successfully adds an
// element to a list. internal/server wires a *BlockingHub here.
type Waker interface {
	Wake(dbID int, key string)
}

type waiter struct {
	dbID   int
	keys   []string
	pop    func(key string) (Reply, bool)
	result chan Reply
	fired  bool
}

// BlockingHub is the per-server table of clients parked on one or more
// list keys, keyed by (dbID, key): keys map to an ordered sequence of
// clients waiting for pushes. FIFO order within a key is preserved: the
// longest-waiting client is always serviced first.
type BlockingHub struct {
	mu   sync.Mutex
	byDB map[int]map[string][]*waiter
}

// NewBlockingHub returns an empty hub.
func NewBlockingHub() *BlockingHub {
	return &BlockingHub{byDB: make(map[int]map[string][]*waiter)}
}

// Register parks a client on spec.Keys until spec.Pop succeeds against one
// of them or the caller's own timer fires Cancel first. The returned
// channel receives exactly one Reply, built either by a waking push (via
// Wake) or by the caller invoking Timeout itself.
func (h *BlockingHub) Register(dbID int, spec *BlockSpec) (result chan Reply, cancel func(), timeout func()) {
	w := &waiter{dbID: dbID, keys: spec.Keys, pop: spec.Pop, result: make(chan Reply, 1)}

	h.mu.Lock()
	if h.byDB[dbID] == nil {
		h.byDB[dbID] = make(map[string][]*waiter)
	}
	for _, k := range spec.Keys {
		h.byDB[dbID][k] = append(h.byDB[dbID][k], w)
	}
	h.mu.Unlock()

	cancel = func() { h.remove(w) }
	timeout = func() {
		h.mu.Lock()
		already := w.fired
		if !already {
			w.fired = true
		}
		h.mu.Unlock()
		if !already {
			w.result <- spec.OnTimeout()
		}
		h.remove(w)
	}
	return w.result, cancel, timeout
}

func (h *BlockingHub) remove(w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := h.byDB[w.dbID]
	if keys == nil {
		return
	}
	for _, k := range w.keys {
		list := keys[k]
		for i, x := range list {
			if x == w {
				keys[k] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(keys[k]) == 0 {
			delete(keys, k)
		}
	}
}

// Wake services the longest-waiting client parked on (dbID, key), if any,
// by calling its Pop function. It keeps trying subsequent waiters until
// one succeeds or the queue for key is empty, a waiter can fail to get
// serviced if two keys it was watching raced and another waiter already
// consumed the only available element.
func (h *BlockingHub) Wake(dbID int, key string) {
	for {
		h.mu.Lock()
		keys := h.byDB[dbID]
		if keys == nil || len(keys[key]) == 0 {
			h.mu.Unlock()
			return
		}
		w := keys[key][0]
		keys[key] = keys[key][1:]
		if len(keys[key]) == 0 {
			delete(keys, key)
		}
		h.mu.Unlock()

		reply, ok := w.pop(key)
		if !ok {
			continue
		}
		h.mu.Lock()
		already := w.fired
		if !already {
			w.fired = true
		}
		h.mu.Unlock()
		if !already {
			w.result <- reply
			h.remove(w)
		}
		return
	}
}
