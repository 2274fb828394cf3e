package admin

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) stats(c *gin.Context) {
	snap := s.statsSource.Snapshot()

	cpuPct, _ := cpu.Percent(100*time.Millisecond, false)
	var userPct float64
	if len(cpuPct) > 0 {
		userPct = cpuPct[0]
	}
	vm, _ := mem.VirtualMemory()
	var usedBytes uint64
	if vm != nil {
		usedBytes = vm.Used
	}

	uptime := time.Since(s.startedAt)
	c.JSON(http.StatusOK, StatsResponse{
		Uptime:            uptime.String(),
		UptimeSeconds:     uptime.Seconds(),
		StartTime:         s.startedAt.Format(time.RFC3339),
		CompletedCommands: snap.CompletedCommands,
		RecvBytes:         snap.RecvBytes,
		SendBytes:         snap.SendBytes,
		ConnectedClients:  snap.ConnectedClients,
		RemoteErrors:      snap.RemoteErrors,
		AvgLatencyUs:      snap.AvgLatencyUs,
		UsedCPUSys:        0,
		UsedCPUUser:       userPct,
		MemAllocatorBytes: usedBytes,
		Goroutines:        runtime.NumGoroutine(),
	})
}

func (s *Server) topology(c *gin.Context) {
	sm := s.router.Snapshot()
	resp := TopologyResponse{}
	for _, r := range sm.Ranges() {
		slaves := make([]string, 0, len(r.Slaves))
		for _, sl := range r.Slaves {
			slaves = append(slaves, sl.Addr)
		}
		resp.Ranges = append(resp.Ranges, SlotRangeResponse{
			Start: r.Start, End: r.End, Master: r.Master.Addr, Slaves: slaves,
		})
	}
	c.JSON(http.StatusOK, resp)
}
