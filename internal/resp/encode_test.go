package resp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempuskv/tempuskv/internal/command"
)

func TestWriteReplySimpleAndInteger(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.OK()))
	require.NoError(t, WriteReply(w, command.Integer(42)))
	require.NoError(t, w.Flush())
	require.Equal(t, "+OK\r\n:42\r\n", buf.String())
}

func TestWriteReplyNestedArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	reply := command.Array(command.BulkString("a"), command.Array(command.Integer(1), command.Integer(2)))
	require.NoError(t, WriteReply(w, reply))
	require.NoError(t, w.Flush())
	require.Equal(t, "*2\r\n$1\r\na\r\n*2\r\n:1\r\n:2\r\n", buf.String())
}

func TestWriteReplyError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.Err(errors.New("WRONGTYPE bad"))))
	require.NoError(t, w.Flush())
	require.Equal(t, "-WRONGTYPE bad\r\n", buf.String())
}

func TestWriteReplyBlockKindIsUnexpected(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.Reply{Kind: command.KindBlock}))
	require.NoError(t, w.Flush())
	require.Equal(t, "-ERR unexpected pending reply\r\n", buf.String())
}
