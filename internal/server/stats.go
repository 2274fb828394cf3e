package server

import (
	"sync"
	"sync/atomic"
)

// latencyRingSize is the number of recent per-command latencies a Stats
// retains, reported as Snapshot.LastLatenciesUs (the RESP INFO reply
// does not render them).
const latencyRingSize = 128

// Stats collects proxy-wide counters, safe for concurrent use across all
// worker goroutines. Every field is a single word updated with a
// relaxed atomic add, matching stats model.
type Stats struct {
	completedCommands atomic.Uint64
	recvBytes          atomic.Uint64
	sendBytes          atomic.Uint64
	connectedClients   atomic.Int64
	remoteErrors       atomic.Uint64
	totalLatencyNs     atomic.Uint64

	latency latencyRing
}

// NewStats returns a zeroed Stats collector.
func NewStats() *Stats { return &Stats{} }

// RecordCommand records one completed command's outcome and latency.
func (s *Stats) RecordCommand(latencyNs int64) {
	s.completedCommands.Add(1)
	if latencyNs > 0 {
		s.totalLatencyNs.Add(uint64(latencyNs))
		s.latency.record(latencyNs)
	}
}

// RecordRecv records bytes read from a client connection.
func (s *Stats) RecordRecv(n int) { s.recvBytes.Add(uint64(n)) }

// RecordSend records bytes written to a client connection.
func (s *Stats) RecordSend(n int) { s.sendBytes.Add(uint64(n)) }

// RecordRemoteError records a backend-side error reply or connection
// failure.
func (s *Stats) RecordRemoteError() { s.remoteErrors.Add(1) }

// ClientConnected/ClientDisconnected track the live client connection
// count.
func (s *Stats) ClientConnected()    { s.connectedClients.Add(1) }
func (s *Stats) ClientDisconnected() { s.connectedClients.Add(-1) }

// Snapshot is a point-in-time view of the proxy's statistics, rendered
// into INFO's proxy-specific fields.
type Snapshot struct {
	CompletedCommands uint64
	RecvBytes         uint64
	SendBytes         uint64
	ConnectedClients  int64
	RemoteErrors      uint64
	AvgLatencyUs      float64
	LastLatenciesUs   []int64
}

// Snapshot returns the current statistics.
func (s *Stats) Snapshot() Snapshot {
	total := s.completedCommands.Load()
	latencyNs := s.totalLatencyNs.Load()

	avgUs := 0.0
	if total > 0 {
		avgUs = float64(latencyNs) / float64(total) / 1e3
	}

	return Snapshot{
		CompletedCommands: total,
		RecvBytes:         s.recvBytes.Load(),
		SendBytes:         s.sendBytes.Load(),
		ConnectedClients:  s.connectedClients.Load(),
		RemoteErrors:      s.remoteErrors.Load(),
		AvgLatencyUs:      avgUs,
		LastLatenciesUs:   s.latency.snapshot(),
	}
}

// latencyRing is a fixed-size ring buffer of recent command latencies in
// microseconds. Stats is shared process-wide by every worker goroutine,
// so the ring is guarded by a mutex.
type latencyRing struct {
	mu     sync.Mutex
	buf    [latencyRingSize]int64
	next   int
	filled bool
}

func (r *latencyRing) record(ns int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = ns / 1000
	r.next = (r.next + 1) % latencyRingSize
	if r.next == 0 {
		r.filled = true
	}
}

func (r *latencyRing) snapshot() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.filled {
		n = latencyRingSize
	}
	out := make([]int64, n)
	copy(out, r.buf[:n])
	return out
}
