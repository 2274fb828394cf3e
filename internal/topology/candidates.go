package topology

import (
	"sync"
	"time"

	"github.com/corvus-proxy/corvus/internal/clusterslot"
)

// failureCooldown is how long a candidate address is skipped after a
// failed CLUSTER SLOTS attempt.
const failureCooldown = 30 * time.Second

// CandidateList tracks known cluster node addresses and their recent
// health, used to pick where the next topology refresh should ask.
type CandidateList struct {
	mu       sync.Mutex
	addrs    []string
	failedAt map[string]time.Time
	next     int
}

// NewCandidateList seeds the list with the configured bootstrap
// addresses.
func NewCandidateList(seeds []string) *CandidateList {
	return &CandidateList{
		addrs:    append([]string(nil), seeds...),
		failedAt: make(map[string]time.Time),
	}
}

// Next returns the next candidate to try, round-robin among addresses
// that are not in their failure cooldown window.
func (c *CandidateList) Next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.addrs)
	if n == 0 {
		return "", false
	}
	now := time.Now()
	for i := 0; i < n; i++ {
		idx := (c.next + i) % n
		addr := c.addrs[idx]
		if t, failed := c.failedAt[addr]; !failed || now.Sub(t) > failureCooldown {
			c.next = (idx + 1) % n
			return addr, true
		}
	}
	// every candidate is cooling down; fall back to the least-recently-failed one
	best := c.addrs[0]
	bestT := c.failedAt[best]
	for _, a := range c.addrs[1:] {
		if c.failedAt[a].Before(bestT) {
			best, bestT = a, c.failedAt[a]
		}
	}
	return best, true
}

// MarkFailed records a failed attempt against addr.
func (c *CandidateList) MarkFailed(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedAt[addr] = time.Now()
}

// MarkHealthy clears addr's failure record.
func (c *CandidateList) MarkHealthy(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failedAt, addr)
}

// SyncFromSlotMap folds newly learned node addresses from a refresh into
// the candidate pool, so later refreshes can ask any cluster member, not
// only the initial seeds.
func (c *CandidateList) SyncFromSlotMap(sm *clusterslot.SlotMap) {
	if sm.Empty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	known := make(map[string]bool, len(c.addrs))
	for _, a := range c.addrs {
		known[a] = true
	}
	add := func(addr string) {
		if addr != "" && !known[addr] {
			known[addr] = true
			c.addrs = append(c.addrs, addr)
		}
	}
	for _, r := range sm.Ranges() {
		add(r.Master.Addr)
		for _, s := range r.Slaves {
			add(s.Addr)
		}
	}
}
