// Package tuning applies process-wide GC settings on startup. A
// multicast receiver allocates nothing on its steady-state path (every
// buffer comes from the fixed pool in core/buffers), so the only GC
// decision that matters is keeping collections infrequent enough that a
// pause never lands in the middle of draining a service batch.
package tuning

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// GCConfig holds the garbage collector settings applied at startup.
type GCConfig struct {
	// GOGC sets the garbage collection target percentage. Default is
	// 100; a receiver with a small, fixed working set can usually run
	// much higher than that without growing its resident set.
	GOGC int

	// MemoryLimit sets a soft memory limit in bytes. 0 means no limit.
	MemoryLimit int64
}

// DefaultGCConfig returns settings tuned for a long-running receiver
// process with a small, fixed allocation footprint.
func DefaultGCConfig() GCConfig {
	return GCConfig{
		GOGC:        200,
		MemoryLimit: 0,
	}
}

// ApplyGCConfig applies cfg to the running process.
func ApplyGCConfig(cfg GCConfig) {
	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}
	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
	}
}

// GCStats holds garbage collection statistics, for a diagnostics log
// line alongside a Snapshot.
type GCStats struct {
	NumGC        uint32
	PauseTotal   time.Duration
	LastPause    time.Duration
	AvgPause     time.Duration
	AllocBytes   uint64
	TotalAlloc   uint64
	Sys          uint64
	NumGoroutine int
}

// GetGCStats returns current GC statistics.
func GetGCStats() GCStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := GCStats{
		NumGC:        ms.NumGC,
		AllocBytes:   ms.Alloc,
		TotalAlloc:   ms.TotalAlloc,
		Sys:          ms.Sys,
		NumGoroutine: runtime.NumGoroutine(),
	}

	if ms.NumGC > 0 {
		stats.LastPause = time.Duration(ms.PauseNs[(ms.NumGC+255)%256])

		var totalPause uint64
		numPauses := ms.NumGC
		if numPauses > 256 {
			numPauses = 256
		}
		for i := uint32(0); i < numPauses; i++ {
			totalPause += ms.PauseNs[i]
		}
		stats.PauseTotal = time.Duration(totalPause)
		if numPauses > 0 {
			stats.AvgPause = time.Duration(totalPause / uint64(numPauses))
		}
	}

	return stats
}

// Text renders GCStats as a short human-readable report, for a
// diagnostics line alongside a receiver Snapshot's own Text().
func (s GCStats) Text() string {
	return fmt.Sprintf(
		"numGC=%d pauseTotal=%s lastPause=%s avgPause=%s alloc=%d totalAlloc=%d sys=%d goroutines=%d",
		s.NumGC, s.PauseTotal, s.LastPause, s.AvgPause, s.AllocBytes, s.TotalAlloc, s.Sys, s.NumGoroutine)
}
