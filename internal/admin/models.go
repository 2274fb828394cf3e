// Package admin implements Corvus's read-only HTTP admin surface: a
// small set of gin handlers exposing health, stats, and the current
// slot topology for operators and monitoring systems. It is strictly
// additive to the RESP wire protocol and can mutate nothing — there is
// no config-store write path here, since live config rewrite is out of
// scope for this proxy.
package admin

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the /stats payload, combining proxy-level command
// counters with host resource usage. UsedCPUSys is always 0; UsedCPUUser
// carries the host's overall CPU percentage and MemAllocatorBytes the
// host's used memory, both sampled via gopsutil. The RESP INFO reply
// does not include these host fields.
type StatsResponse struct {
	Uptime            string  `json:"uptime"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	StartTime         string  `json:"start_time"`
	CompletedCommands uint64  `json:"completed_commands"`
	RecvBytes         uint64  `json:"recv_bytes"`
	SendBytes         uint64  `json:"send_bytes"`
	ConnectedClients  int64   `json:"connected_clients"`
	RemoteErrors      uint64  `json:"remote_errors"`
	AvgLatencyUs      float64 `json:"avg_latency_us"`
	UsedCPUSys        float64 `json:"used_cpu_sys"`
	UsedCPUUser       float64 `json:"used_cpu_user"`
	MemAllocatorBytes uint64  `json:"mem_allocator_bytes"`
	Goroutines        int     `json:"goroutines"`
}

// SlotRangeResponse describes one shard range for the /topology dump.
type SlotRangeResponse struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Master string   `json:"master"`
	Slaves []string `json:"slaves"`
}

// TopologyResponse is the /topology payload.
type TopologyResponse struct {
	Ranges []SlotRangeResponse `json:"ranges"`
}
