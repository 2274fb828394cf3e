package command

import (
	"errors"
	"testing"

	"github.com/corvus-proxy/corvus/internal/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaNewGetFree(t *testing.T) {
	a := NewArena()
	c := a.New()
	require.NotEqual(t, Invalid, c.ID())
	assert.Same(t, c, a.Get(c.ID()))

	id := c.ID()
	c.Release()
	a.Free(id)
	assert.Nil(t, a.Get(id))
}

func TestArenaReusesFreedSlots(t *testing.T) {
	a := NewArena()
	c1 := a.New()
	id1 := c1.ID()
	a.Free(id1)

	c2 := a.New()
	assert.Equal(t, id1, c2.ID())
	assert.NotSame(t, c1, c2)
}

func TestCommandStateTransitions(t *testing.T) {
	a := NewArena()
	c := a.New()
	assert.Equal(t, Created, c.State())

	c.Advance(Parsed)
	c.Advance(Routed)
	c.Advance(Writing)
	assert.Equal(t, Writing, c.State())
}

func TestCommandAdvanceNonMonotonicPanics(t *testing.T) {
	a := NewArena()
	c := a.New()
	c.Advance(Routed)
	assert.Panics(t, func() { c.Advance(Parsed) })
}

func TestCommandFailIsOrthogonalToState(t *testing.T) {
	a := NewArena()
	c := a.New()
	c.Advance(Writing)
	c.Fail(errors.New("boom"))
	assert.True(t, c.Failed())
	assert.Equal(t, Writing, c.State())
	assert.EqualError(t, c.Err(), "boom")
}

func TestQueuePushPopFIFO(t *testing.T) {
	q := NewQueue()
	q.Push(ID(1))
	q.Push(ID(2))
	q.Push(ID(3))

	id, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, ID(1), id)
	assert.Equal(t, 2, q.Len())

	id, _ = q.Pop()
	assert.Equal(t, ID(2), id)
}

func TestQueueEmptyPop(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestSplitEvalWithoutKeysSingleSub(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("EVAL")
	parent.Args = [][]byte{[]byte("return 1"), []byte("0")}

	entry, ok := classify.Classify(parent.Name)
	require.True(t, ok)

	subs := Split(a, parent, entry)
	require.Len(t, subs, 1)
	assert.Equal(t, parent.ID(), subs[0].Parent)
	assert.Equal(t, 1, parent.Pending)
}

func TestSplitMGetOneSubPerKey(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("MGET")
	parent.Args = [][]byte{[]byte("k1"), []byte("k2"), []byte("k3")}

	entry, ok := classify.Classify(parent.Name)
	require.True(t, ok)

	subs := Split(a, parent, entry)
	require.Len(t, subs, 3)
	assert.Equal(t, 3, parent.Pending)
	assert.Equal(t, "k2", string(subs[1].Args[0]))
}

func TestSplitMSetPairsKeysAndValues(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("MSET")
	parent.Args = [][]byte{[]byte("k1"), []byte("v1"), []byte("k2"), []byte("v2")}

	entry, ok := classify.Classify(parent.Name)
	require.True(t, ok)

	subs := Split(a, parent, entry)
	require.Len(t, subs, 2)
	assert.Equal(t, [][]byte{[]byte("k1"), []byte("v1")}, subs[0].Args)
	assert.Equal(t, [][]byte{[]byte("k2"), []byte("v2")}, subs[1].Args)
}

func TestAggregateMGetPreservesOrder(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("MGET")

	s1 := a.New()
	s1.Reply = []byte("$3\r\nfoo\r\n")
	s2 := a.New()
	s2.Reply = nil

	out := Aggregate(a, parent, []ID{s1.ID(), s2.ID()})
	assert.Equal(t, "*2\r\n$3\r\nfoo\r\n$-1\r\n", string(out))
}

func TestAggregateDelSumsCounts(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("DEL")

	s1 := a.New()
	s1.Reply = []byte(":1\r\n")
	s2 := a.New()
	s2.Reply = []byte(":0\r\n")
	s3 := a.New()
	s3.Reply = []byte(":1\r\n")

	out := Aggregate(a, parent, []ID{s1.ID(), s2.ID(), s3.ID()})
	assert.Equal(t, ":2\r\n", string(out))
}

func TestAggregateMSetReturnsOK(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("MSET")
	out := Aggregate(a, parent, nil)
	assert.Equal(t, "+OK\r\n", string(out))
}

func TestAggregateMGetFirstFailureWinsWholeReply(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("MGET")

	s1 := a.New()
	s1.Reply = []byte("$3\r\nfoo\r\n")
	s2 := a.New()
	s2.Reply = []byte("-ERR no such key\r\n")
	s3 := a.New()
	s3.Reply = []byte("$3\r\nbar\r\n")

	out := Aggregate(a, parent, []ID{s1.ID(), s2.ID(), s3.ID()})
	assert.Equal(t, "-ERR no such key\r\n", string(out))
}

func TestAggregateMSetFirstFailureWinsOverOK(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("MSET")

	s1 := a.New()
	s1.Reply = []byte("+OK\r\n")
	s2 := a.New()
	s2.Fail(errors.New("boom"))
	s2.Reply = []byte("-ERR Proxy error\r\n")

	out := Aggregate(a, parent, []ID{s1.ID(), s2.ID()})
	assert.Equal(t, "-ERR Proxy error\r\n", string(out))
}

func TestAggregateDelFirstFailureWinsOverSum(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("DEL")

	s1 := a.New()
	s1.Reply = []byte(":1\r\n")
	s2 := a.New()
	s2.Reply = []byte("-ERR Proxy redirecting error\r\n")

	out := Aggregate(a, parent, []ID{s1.ID(), s2.ID()})
	assert.Equal(t, "-ERR Proxy redirecting error\r\n", string(out))
}

func TestSplitEvalSingleSubCarriesFullArgs(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("EVAL")
	parent.Args = [][]byte{[]byte("return redis.call('get', KEYS[1])"), []byte("1"), []byte("mykey")}

	entry, ok := classify.Classify(parent.Name)
	require.True(t, ok)
	require.Equal(t, 0, entry.KeyStep)
	require.Equal(t, 3, entry.KeyFirst)

	subs := Split(a, parent, entry)
	require.Len(t, subs, 1)
	assert.Equal(t, parent.Args, subs[0].Args)
	assert.Equal(t, "mykey", string(subs[0].Args[entry.KeyFirst-1]))
}

func TestAggregateEvalPassesThroughSingleReply(t *testing.T) {
	a := NewArena()
	parent := a.New()
	parent.Name = []byte("EVAL")

	s1 := a.New()
	s1.Reply = []byte(":42\r\n")

	out := Aggregate(a, parent, []ID{s1.ID()})
	assert.Equal(t, ":42\r\n", string(out))
}
