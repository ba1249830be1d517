package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeWatcher struct {
	watched   map[string]map[int64]bool
	unwatched []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{watched: make(map[string]map[int64]bool)}
}

func (f *fakeWatcher) Watch(key string, clientID int64) {
	if f.watched[key] == nil {
		f.watched[key] = make(map[int64]bool)
	}
	f.watched[key][clientID] = true
}

func (f *fakeWatcher) Unwatch(clientID int64, keys []string) {
	for _, k := range keys {
		delete(f.watched[k], clientID)
		f.unwatched = append(f.unwatched, k)
	}
}

func TestMultiNesting(t *testing.T) {
	s := NewState(1)
	require.NoError(t, s.Multi())
	require.ErrorIs(t, s.Multi(), ErrNestedMulti)
}

func TestWatchRejectedInsideMulti(t *testing.T) {
	s := NewState(1)
	require.NoError(t, s.Multi())
	w := newFakeWatcher()
	require.ErrorIs(t, s.Watch(0, "k", w), ErrWatchInsideMulti)
}

func TestExecRunsQueueInOrder(t *testing.T) {
	s := NewState(1)
	require.NoError(t, s.Multi())
	s.Queue([]string{"SET", "a", "1"}, true)
	s.Queue([]string{"SET", "b", "2"}, true)

	resolve := func(int) KeyWatcher { return nil }
	result, queue := s.Exec(resolve)
	require.Equal(t, ExecRun, result)
	require.Len(t, queue, 2)
	require.False(t, s.InMulti())
}

func TestExecAbortsOnQueueError(t *testing.T) {
	s := NewState(1)
	require.NoError(t, s.Multi())
	s.Queue(nil, false) // a bad command at queue time

	result, queue := s.Exec(func(int) KeyWatcher { return nil })
	require.Equal(t, ExecAborted, result)
	require.Nil(t, queue)
}

func TestWatchedKeyInvalidationAbortsExec(t *testing.T) {
	w := newFakeWatcher()
	s := NewState(1)
	require.NoError(t, s.Watch(0, "x", w))
	require.NoError(t, s.Multi())
	s.Queue([]string{"SET", "x", "11"}, true)

	// Another client's mutation of "x" invalidates this transaction.
	s.MarkDirty()

	result, queue := s.Exec(func(int) KeyWatcher { return w })
	require.Equal(t, ExecDirty, result)
	require.Nil(t, queue)
	require.Contains(t, w.unwatched, "x")
}

func TestDiscardClearsState(t *testing.T) {
	s := NewState(1)
	require.NoError(t, s.Multi())
	s.Queue([]string{"SET", "a", "1"}, true)
	s.Discard(func(int) KeyWatcher { return nil })
	require.False(t, s.InMulti())
}

func TestQueueableDuringMulti(t *testing.T) {
	require.True(t, QueueableDuringMulti("MULTI"))
	require.True(t, QueueableDuringMulti("WATCH"))
	require.True(t, QueueableDuringMulti("RESET"))
	require.False(t, QueueableDuringMulti("SET"))
}
