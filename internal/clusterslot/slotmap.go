// Package clusterslot maps keys to cluster slots and slots to the
// backend nodes currently serving them. The slot-to-node assignment is
// replaced wholesale on every topology refresh and published as a single
// atomic snapshot (SlotMap), so worker goroutines can read it lock-free
// without the original's manual reference counting: Go's garbage
// collector already keeps a snapshot alive for as long as any goroutine
// holds a pointer to it.
package clusterslot

import "net"

// NodeInfo describes one cluster node as reported by CLUSTER SLOTS.
type NodeInfo struct {
	ID       string
	Addr     string // "ip:port"
	IsMaster bool
}

// ShardRange is a contiguous slot range owned by one master plus its
// replicas.
type ShardRange struct {
	Start   int
	End     int // inclusive
	Master  NodeInfo
	Slaves  []NodeInfo
}

// SlotMap is an immutable snapshot of the full slot-to-node assignment.
// Once built it is never mutated; a new snapshot entirely replaces it.
type SlotMap struct {
	ranges []ShardRange
	bySlot [SlotCount]*ShardRange
}

// NewSlotMap builds a SlotMap from a list of shard ranges, indexing them
// for O(1) slot lookup.
func NewSlotMap(ranges []ShardRange) *SlotMap {
	sm := &SlotMap{ranges: ranges}
	for i := range sm.ranges {
		r := &sm.ranges[i]
		for s := r.Start; s <= r.End && s < SlotCount; s++ {
			sm.bySlot[s] = r
		}
	}
	return sm
}

// Empty reports whether the map has no shard ranges at all, the state
// before the first successful topology refresh.
func (m *SlotMap) Empty() bool { return m == nil || len(m.ranges) == 0 }

// RangeForSlot returns the shard range owning the given slot, or nil if
// the slot is currently unassigned (a cluster mid-resharding gap).
func (m *SlotMap) RangeForSlot(slot int) *ShardRange {
	if m == nil || slot < 0 || slot >= SlotCount {
		return nil
	}
	return m.bySlot[slot]
}

// Ranges returns all shard ranges, used by the admin surface to dump the
// current topology.
func (m *SlotMap) Ranges() []ShardRange {
	if m == nil {
		return nil
	}
	return m.ranges
}

// Remotes renders the comma-joined "ip:port" list of every master node,
// used to populate INFO's remotes field.
func (m *SlotMap) Remotes() string {
	if m == nil {
		return ""
	}
	out := ""
	for i, r := range m.ranges {
		if i > 0 {
			out += ","
		}
		out += r.Master.Addr
	}
	return out
}

// SplitHostPort is a thin wrapper used throughout this package to avoid
// importing net in callers that only need a node's host component (e.g.
// when comparing candidate addresses during a topology refresh).
func SplitHostPort(addr string) (host, port string, err error) {
	return net.SplitHostPort(addr)
}
