package topology

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/corvus-proxy/corvus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClusterSlotsServer accepts one connection, reads the CLUSTER SLOTS
// request, and replies with a fixed two-shard topology.
func fakeClusterSlotsServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		_, _ = conn.Read(buf)
		reply := "*2\r\n" +
			"*3\r\n:0\r\n:8191\r\n*2\r\n$9\r\n127.0.0.1\r\n:7000\r\n" +
			"*3\r\n:8192\r\n:16383\r\n*2\r\n$9\r\n127.0.0.1\r\n:7001\r\n"
		_, _ = conn.Write([]byte(reply))
	}()

	return ln.Addr().String()
}

func TestFetchSlotsParsesShardRanges(t *testing.T) {
	addr := fakeClusterSlotsServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ranges, err := FetchSlots(ctx, addr)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, 0, ranges[0].Start)
	assert.Equal(t, 8191, ranges[0].End)
	assert.Equal(t, "127.0.0.1:7000", ranges[0].Master.Addr)
	assert.Equal(t, "127.0.0.1:7001", ranges[1].Master.Addr)
}

func TestUpdaterRefreshPublishesSlotMap(t *testing.T) {
	addr := fakeClusterSlotsServer(t)
	router := clusterslot.NewRouter(config.ReadMaster)
	u := NewUpdater(router, []string{addr}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return !router.Snapshot().Empty()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestCandidateListRoundRobinsAndCoolsDownFailures(t *testing.T) {
	c := NewCandidateList([]string{"a:1", "b:1"})
	first, ok := c.Next()
	require.True(t, ok)

	c.MarkFailed(first)
	second, ok := c.Next()
	require.True(t, ok)
	assert.NotEqual(t, first, second)
}

func TestCandidateListEmpty(t *testing.T) {
	c := NewCandidateList(nil)
	_, ok := c.Next()
	assert.False(t, ok)
}
