package resp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadCommandMultibulk(t *testing.T) {
	r := NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	argv, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, []string{"GET", "foo"}, argv)
}

func TestReadCommandInlineFallback(t *testing.T) {
	r := NewReader(strings.NewReader("PING hello world\r\n"))
	argv, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, []string{"PING", "hello", "world"}, argv)
}

func TestReadCommandSkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("\r\nPING\r\n"))
	argv, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, []string{"PING"}, argv)
}

func TestReadCommandRejectsBadMultibulkLength(t *testing.T) {
	r := NewReader(strings.NewReader("*notanumber\r\n"))
	_, err := r.ReadCommand()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestReadCommandRejectsMalformedBulkHeader(t *testing.T) {
	r := NewReader(strings.NewReader("*1\r\n+notabulk\r\n"))
	_, err := r.ReadCommand()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestWriteBulkNilIsNull(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBulk(nil))
	require.NoError(t, w.Flush())
	require.Equal(t, "$-1\r\n", buf.String())
}

func TestWriteNullRESP2VsRESP3(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteNull())
	require.NoError(t, w.Flush())
	require.Equal(t, "$-1\r\n", buf.String())

	buf.Reset()
	w.RESP3 = true
	require.NoError(t, w.WriteNull())
	require.NoError(t, w.Flush())
	require.Equal(t, "_\r\n", buf.String())
}

func TestWriteMapHeaderDegradesUnderRESP2(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteMapHeader(2))
	require.NoError(t, w.Flush())
	require.Equal(t, "*4\r\n", buf.String())

	buf.Reset()
	w.RESP3 = true
	require.NoError(t, w.WriteMapHeader(2))
	require.NoError(t, w.Flush())
	require.Equal(t, "%2\r\n", buf.String())
}

func TestWriteSetHeaderDegradesUnderRESP2(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSetHeader(3))
	require.NoError(t, w.Flush())
	require.Equal(t, "*3\r\n", buf.String())

	buf.Reset()
	w.RESP3 = true
	require.NoError(t, w.WriteSetHeader(3))
	require.NoError(t, w.Flush())
	require.Equal(t, "~3\r\n", buf.String())
}

func TestWriteNullArrayCollapsesUnderRESP3(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteNullArray())
	require.NoError(t, w.Flush())
	require.Equal(t, "*-1\r\n", buf.String())

	buf.Reset()
	w.RESP3 = true
	require.NoError(t, w.WriteNullArray())
	require.NoError(t, w.Flush())
	require.Equal(t, "_\r\n", buf.String())
}
