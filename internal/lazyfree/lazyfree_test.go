package lazyfree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tempuskv/tempuskv/internal/value"
)

func TestFreeInlineBelowThreshold(t *testing.T) {
	w, err := New(2, nil)
	require.NoError(t, err)
	defer w.Release()

	v := value.NewList()
	lp := v.Payload.(*value.ListPayload)
	lp.PushBack([]byte("a"))

	w.Free(v)
	require.Equal(t, int64(1), w.Inline())
	require.Equal(t, int64(0), w.Submitted())
}

func TestFreeAsyncAboveThreshold(t *testing.T) {
	w, err := New(2, nil)
	require.NoError(t, err)
	defer w.Release()

	v := value.NewList()
	lp := v.Payload.(*value.ListPayload)
	for i := 0; i < ListThreshold+1; i++ {
		lp.PushBack([]byte("x"))
	}

	w.Free(v)
	require.Eventually(t, func() bool {
		return w.Submitted() == 1
	}, time.Second, time.Millisecond)
}
