package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMultiBulkCommand(t *testing.T) {
	p := NewParser()
	input := []byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")
	node, n, err := p.Parse(input)
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	assert.Equal(t, Array, node.Type)
	assert.Equal(t, 2, node.NArgs())
	assert.Equal(t, "GET", string(node.Arg(0)))
	assert.Equal(t, "foo", string(node.Arg(1)))
}

func TestParseIncompleteReturnsErrIncomplete(t *testing.T) {
	p := NewParser()
	_, _, err := p.Parse([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfo"))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseInlineCommand(t *testing.T) {
	p := NewParser()
	node, n, err := p.Parse([]byte("PING\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 1, node.NArgs())
	assert.Equal(t, "PING", string(node.Arg(0)))
}

func TestParseInlineMultipleArgs(t *testing.T) {
	p := NewParser()
	node, _, err := p.Parse([]byte("SET foo  bar\n"))
	require.NoError(t, err)
	require.Equal(t, 3, node.NArgs())
	assert.Equal(t, "bar", string(node.Arg(2)))
}

func TestParseNullBulkString(t *testing.T) {
	p := NewParser()
	node, n, err := p.Parse([]byte("$-1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, node.IsNull)
}

func TestParseNullArray(t *testing.T) {
	p := NewParser()
	node, n, err := p.Parse([]byte("*-1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, node.IsNull)
}

func TestParseSimpleStringAndInteger(t *testing.T) {
	p := NewParser()
	node, _, err := p.Parse([]byte("+OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, SimpleString, node.Type)
	assert.Equal(t, "OK", node.String())

	node, _, err = p.Parse([]byte(":1000\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Integer, node.Type)
	assert.EqualValues(t, 1000, node.Int)
}

func TestParseError(t *testing.T) {
	p := NewParser()
	node, _, err := p.Parse([]byte("-ERR bad thing\r\n"))
	require.NoError(t, err)
	assert.True(t, node.IsError())
	assert.Equal(t, "ERR bad thing", node.String())
}

func TestParseNestedArray(t *testing.T) {
	p := NewParser()
	input := []byte("*2\r\n*1\r\n:1\r\n$3\r\nfoo\r\n")
	node, n, err := p.Parse(input)
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	assert.Equal(t, 2, node.NArgs())
	assert.Equal(t, Array, node.Elems[0].Type)
	assert.EqualValues(t, 1, node.Elems[0].Elems[0].Int)
}

func TestParseExceedsMaxDepth(t *testing.T) {
	p := NewParser()
	input := []byte("")
	for i := 0; i < MaxDepth+2; i++ {
		input = append([]byte("*1\r\n"), input...)
	}
	input = append(input, []byte(":1\r\n")...)
	_, _, err := p.Parse(input)
	assert.ErrorIs(t, err, ErrDepth)
}

func TestParseMalformedLengthIsProtocolError(t *testing.T) {
	p := NewParser()
	_, _, err := p.Parse([]byte("$abc\r\nfoo\r\n"))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestWriterRoundTripsBulkAndArray(t *testing.T) {
	w := NewWriter()
	w.ArrayHeader(2)
	w.BulkString([]byte("foo"))
	w.NullBulkString()

	out := w.Bytes()
	p := NewParser()
	node, n, err := p.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, len(out), n)
	assert.Equal(t, "foo", string(node.Arg(0)))
	assert.True(t, node.Elems[1].IsNull)
}

func TestWriterErrorAndInteger(t *testing.T) {
	w := NewWriter()
	w.Error("ERR nope")
	assert.Equal(t, "-ERR nope\r\n", string(w.Bytes()))

	w.Reset()
	w.Integer(42)
	assert.Equal(t, ":42\r\n", string(w.Bytes()))
}

func TestWriterWriteNodePassesThroughReply(t *testing.T) {
	p := NewParser()
	node, _, err := p.Parse([]byte("+PONG\r\n"))
	require.NoError(t, err)

	w := NewWriter()
	w.WriteNode(node)
	assert.Equal(t, "+PONG\r\n", string(w.Bytes()))
}
