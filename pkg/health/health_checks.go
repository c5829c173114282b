package health

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// SimpleCheck creates a check that always reports healthy
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{
			Name:        name,
			Status:      StatusHealthy,
			LastChecked: time.Now(),
		}
	}
}

// SessionCheck probes the session loop by reading store statistics through
// it. A loop that cannot answer within the check timeout is unhealthy.
func SessionCheck(stats func(ctx context.Context) (graph.Statistics, error)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "session"}

		st, err := stats(ctx)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		check.Status = StatusHealthy
		check.Message = "Loop responsive"
		check.Details = map[string]any{
			"nodes":      st.NodeCount,
			"links":      st.LinkCount,
			"unresolved": st.UnresolvedCount,
			"pinned":     st.PinnedCount,
		}
		if st.UnresolvedCount > 0 {
			check.Status = StatusDegraded
			check.Message = "Graph has unresolved links"
		}
		return check
	}
}

// CacheCheck pings the payload cache. The loader falls through to the
// origin when the cache is down, so failure only degrades.
func CacheCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "cache"}

		if err := ping(ctx); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// MemoryCheck reports heap usage relative to memory obtained from the OS
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}

// RuntimeMemory reads alloc and sys from the Go runtime
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
