// Package lazyfree hands off teardown of large unlinked values to a
// background pool instead of making the caller (DEL, an EXPIRE whose time
// is already past, the active-expire cycle) pay for deallocating a huge
// list/hash/set/zset inline. FLUSHDB, FLUSHALL and LTRIM do not use it.
// Mirrors original_source/lazyfree.c's size-threshold gating and
// bio-thread hand-off, built over a real worker pool instead of a
// hand-rolled MPSC queue.
package lazyfree

import (
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/tempuskv/tempuskv/internal/value"
)

// Thresholds below which freeing a value inline is cheap enough that
// routing it through the pool would cost more than it saves, mirrors
// lazyfreeGetFreeEffort's per-type cardinality checks.
const (
	ListThreshold = 64
	HashThreshold = 64
	SetThreshold  = 64
	ZSetThreshold = 64
)

// Worker submits freed values to a bounded goroutine pool. The zero value
// is not usable; construct with New.
type Worker struct {
	pool     *ants.Pool
	log      *zap.Logger
	submitted atomic.Int64
	inline    atomic.Int64
}

// New creates a Worker backed by a pool of poolSize goroutines. log may be
// nil, in which case submissions are silent.
func New(poolSize int, log *zap.Logger) (*Worker, error) {
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{pool: pool, log: log}, nil
}

// Free releases v in the background if it crosses its type's effort
// threshold, otherwise inline on the calling goroutine. v must already be
// unreachable from any Database's keyspace before Free is called, the
// caller owns that handshake, this package only owns what happens after.
func (w *Worker) Free(v *value.Value) {
	if v == nil || !w.needsAsyncFree(v) {
		w.inline.Add(1)
		return
	}
	err := w.pool.Submit(func() {
		// The payload becomes unreferenced once this closure returns;
		// nothing else to do, Go's GC reclaims it. The submission
		// itself is the point: move the cost of scanning/deallocating
		// a huge container off the caller's goroutine.
		_ = v
	})
	if err != nil {
		w.log.Warn("lazyfree: pool submit failed, freeing inline", zap.Error(err))
		w.inline.Add(1)
		return
	}
	w.submitted.Add(1)
}

func (w *Worker) needsAsyncFree(v *value.Value) bool {
	switch p := v.Payload.(type) {
	case *value.ListPayload:
		return p.Len() > ListThreshold
	case *value.HashPayload:
		return p.Len() > HashThreshold
	case *value.SetPayload:
		return p.Len() > SetThreshold
	case *value.ZSetPayload:
		return p.Len() > ZSetThreshold
	default:
		return false
	}
}

// Submitted returns the number of values handed to the pool so far.
func (w *Worker) Submitted() int64 { return w.submitted.Load() }

// Inline returns the number of values freed synchronously (below
// threshold, or because the pool rejected the submission).
func (w *Worker) Inline() int64 { return w.inline.Load() }

// Release closes the pool. It does not wait for tasks already submitted to
// finish.
func (w *Worker) Release() { w.pool.Release() }
