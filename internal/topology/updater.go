// Package topology keeps a Router's published SlotMap up to date by
// periodically asking a cluster node for CLUSTER SLOTS and applying any
// change. Refresh requests from many workers are coalesced into a
// single in-flight job via a buffered channel plus a dirty flag, avoiding
// redundant concurrent upstream polls.
package topology

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/corvus-proxy/corvus/internal/clusterslot"
)

// Updater owns the background goroutine that refreshes a Router's
// topology from a set of seed addresses.
type Updater struct {
	router   *clusterslot.Router
	seeds    []string
	logger   *slog.Logger
	interval time.Duration

	kick  chan struct{}
	dirty atomic.Bool

	candidates *CandidateList
}

// NewUpdater creates an Updater polling the given seed addresses at the
// given interval. Seeds are also used as the initial candidate pool for
// CLUSTER SLOTS requests before any topology has been learned.
func NewUpdater(router *clusterslot.Router, seeds []string, interval time.Duration, logger *slog.Logger) *Updater {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Updater{
		router:     router,
		seeds:      seeds,
		logger:     logger,
		interval:   interval,
		kick:       make(chan struct{}, 1),
		candidates: NewCandidateList(seeds),
	}
}

// Kick requests an out-of-band refresh, e.g. after a worker observes a
// MOVED redirect implying the topology has changed. It never blocks: if
// a refresh is already pending, the request is coalesced into it.
func (u *Updater) Kick() {
	if u.dirty.CompareAndSwap(false, true) {
		select {
		case u.kick <- struct{}{}:
		default:
		}
	}
}

// Run drives the refresh loop until ctx is cancelled: one refresh
// immediately, then one on every interval tick and on every Kick. Run
// blocks for its whole lifetime and is launched in its own goroutine;
// callers that need a topology wait for Router.Snapshot to become
// non-empty.
func (u *Updater) Run(ctx context.Context) {
	u.refresh(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.refresh(ctx)
		case <-u.kick:
			u.refresh(ctx)
		}
	}
}

func (u *Updater) refresh(ctx context.Context) {
	u.dirty.Store(false)

	addr, ok := u.candidates.Next()
	if !ok {
		if u.logger != nil {
			u.logger.WarnContext(ctx, "topology refresh: no healthy candidates")
		}
		return
	}

	ranges, err := FetchSlots(ctx, addr)
	if err != nil {
		u.candidates.MarkFailed(addr)
		if u.logger != nil {
			u.logger.WarnContext(ctx, "topology refresh failed", "addr", addr, "error", err)
		}
		return
	}

	u.candidates.MarkHealthy(addr)
	sm := clusterslot.NewSlotMap(ranges)
	u.router.Publish(sm)
	u.candidates.SyncFromSlotMap(sm)

	if u.logger != nil {
		u.logger.DebugContext(ctx, "topology refreshed", "addr", addr, "shards", len(ranges))
	}
}
