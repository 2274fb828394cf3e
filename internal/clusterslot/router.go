package clusterslot

import (
	"errors"
	"math/rand"
	"sync/atomic"

	"github.com/corvus-proxy/corvus/internal/config"
)

// ErrNoRoute is returned when a key's slot has no known owner, e.g.
// before the first successful topology refresh or during a resharding
// gap.
var ErrNoRoute = errors.New("clusterslot: no route for slot")

// Router resolves keys to backend addresses using the latest published
// SlotMap and the configured read strategy. A Router is shared across
// all workers; Lookup is lock-free via atomic.Pointer, matching the
// read-mostly access pattern workers exercise on every command.
type Router struct {
	current atomic.Pointer[SlotMap]
	strat   config.ReadStrategy
}

// NewRouter creates a Router with no topology yet published.
func NewRouter(strat config.ReadStrategy) *Router {
	return &Router{strat: strat}
}

// Publish atomically replaces the current slot map, making it visible to
// every subsequent Lookup call. Called exclusively by the topology
// updater.
func (r *Router) Publish(sm *SlotMap) {
	r.current.Store(sm)
}

// Snapshot returns the currently published slot map.
func (r *Router) Snapshot() *SlotMap {
	return r.current.Load()
}

// SlotOf returns the slot a key hashes to.
func SlotOf(key []byte) int { return KeyHashSlot(key) }

// Lookup resolves a key to the backend address it should be routed to.
// forWrite forces master routing regardless of read strategy, since
// writes must always land on the slot's master. rng supplies the
// randomness for the "both" and failover-to-replica policies; callers
// pass a per-worker *rand.Rand so no locking is needed across workers.
func (r *Router) Lookup(key []byte, forWrite bool, rng *rand.Rand) (string, error) {
	sm := r.Snapshot()
	if sm.Empty() {
		return "", ErrNoRoute
	}
	rr := sm.RangeForSlot(SlotOf(key))
	if rr == nil {
		return "", ErrNoRoute
	}
	if forWrite {
		return rr.Master.Addr, nil
	}

	switch r.strat {
	case config.ReadSlaveOnly:
		if len(rr.Slaves) == 0 {
			return rr.Master.Addr, nil
		}
		return rr.Slaves[rng.Intn(len(rr.Slaves))].Addr, nil
	case config.ReadBoth:
		total := len(rr.Slaves) + 1
		pick := rng.Intn(total)
		if pick == 0 {
			return rr.Master.Addr, nil
		}
		return rr.Slaves[pick-1].Addr, nil
	default: // config.ReadMaster
		return rr.Master.Addr, nil
	}
}
