package api

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"monolithgo/pkg/stats"
)

// StatsHandler reports channel counters and process diagnostics.
type StatsHandler struct {
	stats   *stats.Stats
	started time.Time

	mu        sync.Mutex
	lastCPUNS int64
	lastTime  time.Time
	maxMem    uint64
	maxCPU    float64
}

func NewStatsHandler(st *stats.Stats) *StatsHandler {
	now := time.Now()
	cpu, _ := processCPU()
	return &StatsHandler{stats: st, started: now, lastTime: now, lastCPUNS: cpu}
}

type Diagnostics struct {
	UptimeSec   float64 `json:"uptime_sec"`
	Goroutines  int     `json:"goroutines"`
	MemoryMB    uint64  `json:"memory_mb"`
	MemoryMaxMB uint64  `json:"memory_max_mb"`
	CPUSec      float64 `json:"cpu_sec"`     // Seconds per second
	CPUMaxSec   float64 `json:"cpu_max_sec"` // Peak
}

type StatsResponse struct {
	Diagnostics Diagnostics                   `json:"diagnostics"`
	Channels    map[string]stats.ChannelStats `json:"channels"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	diag := h.gatherDiagnostics(time.Now())
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, StatsResponse{
		Diagnostics: diag,
		Channels:    h.stats.Snapshot(),
	})
}

func (h *StatsHandler) gatherDiagnostics(now time.Time) Diagnostics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.Sys > h.maxMem {
		h.maxMem = ms.Sys
	}

	cpuSec := 0.0
	if cpu, err := processCPU(); err == nil {
		if d := now.Sub(h.lastTime).Seconds(); d > 0 {
			delta := cpu - h.lastCPUNS
			if delta < 0 {
				delta = 0
			}
			cpuSec = float64(delta) / 1e9 / d
		}
		h.lastCPUNS = cpu
		h.lastTime = now
	}
	if cpuSec > h.maxCPU {
		h.maxCPU = cpuSec
	}

	return Diagnostics{
		UptimeSec:   now.Sub(h.started).Seconds(),
		Goroutines:  runtime.NumGoroutine(),
		MemoryMB:    bToMb(ms.Sys),
		MemoryMaxMB: bToMb(h.maxMem),
		CPUSec:      cpuSec,
		CPUMaxSec:   h.maxCPU,
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
