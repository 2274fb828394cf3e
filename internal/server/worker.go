// Package server hosts Corvus's worker pool: each Worker owns one
// SO_REUSEPORT listener and spawns one goroutine per accepted
// connection, which then owns that connection exclusively until it
// closes, parsing pipelined commands and fanning out multi-key ones
// while preserving per-connection reply order.
package server

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/corvus-proxy/corvus/internal/buffer"
	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/corvus-proxy/corvus/internal/config"
)

// Updater is the subset of topology.Updater a worker needs: requesting
// an out-of-band refresh after observing a MOVED/ASK redirect. Declared
// here (rather than importing internal/topology directly) to keep
// internal/server free of a dependency on the updater's refresh-loop
// machinery, which only cmd/corvus needs to construct.
type Updater interface {
	Kick()
}

// Worker ties together one listener, the shared routing/backend/stats
// state, and the per-connection goroutines it spawns.
type Worker struct {
	id      int
	cfg     *config.Config
	router  *clusterslot.Router
	backends *BackendPool
	stats   *Stats
	logger  *slog.Logger
	pool    *buffer.Pool
	idle    *IdleTimer
	updater Updater
	rng     *rand.Rand

	listener net.Listener
	wg       sync.WaitGroup
}

// NewWorker constructs a worker. Each worker gets its own *rand.Rand so
// read-strategy load-balancing never needs cross-worker locking.
func NewWorker(id int, cfg *config.Config, router *clusterslot.Router, backends *BackendPool, stats *Stats, updater Updater, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		cfg:      cfg,
		router:   router,
		backends: backends,
		stats:    stats,
		logger:   logger,
		pool:     buffer.NewPool(cfg.BufSize, 16),
		idle:     NewIdleTimer(time.Duration(cfg.ClientTimeoutSec) * time.Second),
		updater:  updater,
		rng:      rand.New(rand.NewSource(int64(id) + time.Now().UnixNano())),
	}
}

// Run binds a SO_REUSEPORT listener on addr and accepts connections
// until ctx is cancelled, at which point it drains in-flight
// connections and returns.
func (w *Worker) Run(ctx context.Context, addr string) error {
	ln, err := listenTCPReusePort(ctx, addr)
	if err != nil {
		return err
	}
	w.listener = ln

	go w.idle.Run(ctx)

	w.wg.Go(func() { w.acceptLoop(ctx) })

	<-ctx.Done()
	return w.Stop(5 * time.Second)
}

func (w *Worker) acceptLoop(ctx context.Context) {
	for {
		c, err := w.listener.Accept()
		if err != nil {
			return
		}
		conn := newConnection(c, w)
		w.wg.Go(func() { conn.serve(ctx) })
	}
}

// Stop closes the listener and waits up to timeout for active
// connections to finish.
func (w *Worker) Stop(timeout time.Duration) error {
	if w.listener != nil {
		_ = w.listener.Close()
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return nil
	}
}

// WorkerCount resolves a config.WorkerSetting to a concrete worker
// count, defaulting to one per available CPU.
func WorkerCount(ws config.WorkerSetting) int {
	if ws.Mode == config.WorkersFixed && ws.Value > 0 {
		return ws.Value
	}
	return runtime.NumCPU()
}
