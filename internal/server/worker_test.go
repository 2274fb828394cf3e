package server

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

// fakeBackend accepts connections until the test ends and replies to
// every request on each of them with the given fixed RESP bytes.
func fakeBackend(t *testing.T, reply []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					_, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(reply); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func newTestWorker(t *testing.T, backendAddr string) (*Worker, string) {
	t.Helper()
	cfg := &config.Config{BufSize: 1024, ReadStrat: config.ReadMaster}
	router := clusterslot.NewRouter(config.ReadMaster)
	router.Publish(clusterslot.NewSlotMap([]clusterslot.ShardRange{
		{Start: 0, End: clusterslot.SlotCount - 1, Master: clusterslot.NodeInfo{Addr: backendAddr, IsMaster: true}},
	}))
	backends := NewBackendPool(4, time.Second)
	stats := NewStats()
	w := NewWorker(1, cfg, router, backends, stats, noopUpdater{}, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	w.listener = ln
	return w, ln.Addr().String()
}

type noopUpdater struct{}

func (noopUpdater) Kick() {}

func TestWorkerForwardsGetToBackend(t *testing.T) {
	backendAddr := fakeBackend(t, []byte("$3\r\nbar\r\n"))
	w, addr := newTestWorker(t, backendAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.acceptLoop(ctx)

	client, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "$3\r\nbar\r\n", string(buf[:n]))
}

func TestWorkerHandlesPingLocally(t *testing.T) {
	w, addr := newTestWorker(t, fakeBackend(t, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.acceptLoop(ctx)

	client, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("PING\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "+PONG\r\n", string(buf[:n]))
}

func TestWorkerCountFixedAndAuto(t *testing.T) {
	assert.Equal(t, 4, WorkerCount(config.WorkerSetting{Mode: config.WorkersFixed, Value: 4}))
	assert.Greater(t, WorkerCount(config.WorkerSetting{Mode: config.WorkersAuto}), 0)
}
