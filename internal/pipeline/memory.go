package pipeline

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/docmill/docmill/internal/models"
)

// decodeExpansion estimates how much larger a parsed document gets than its
// on-disk bytes once streams are decompressed and pages rasterized.
const decodeExpansion = 4

// Guard applies the advisory per-worker memory ceiling. Go cannot hard-cap a
// single goroutine the way a process rlimit would, so admission control is
// the practical equivalent: refuse work whose projected footprint would push
// the process past its budget.
type Guard struct {
	perWorker int64
	budget    int64
	proc      *process.Process
	reserved  atomic.Int64
}

// NewGuard sizes the guard from the batch limits. A non-positive per-worker
// ceiling disables admission control entirely.
func NewGuard(limits models.ResourceLimits) *Guard {
	g := &Guard{
		perWorker: limits.MaxWorkerMemory,
		budget:    limits.MaxWorkerMemory * int64(limits.MaxWorkers),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		g.proc = proc
	}
	return g
}

// Admit reserves headroom for a file of the given size. A successful Admit
// must be paired with Release. The check is best effort: RSS is sampled, not
// locked, and concurrent admissions can transiently overshoot.
func (g *Guard) Admit(size int64) error {
	if g.perWorker <= 0 {
		return nil
	}
	estimate := size * decodeExpansion
	if estimate > g.perWorker {
		return models.ResourceError(fmt.Sprintf(
			"projected memory %d MB exceeds per-worker ceiling %d MB", estimate>>20, g.perWorker>>20), nil)
	}
	if rss := g.rss(); rss+g.reserved.Load()+estimate > g.budget {
		return models.ResourceError(fmt.Sprintf(
			"projected memory would exceed process budget %d MB", g.budget>>20), nil)
	}
	g.reserved.Add(estimate)
	return nil
}

// Release returns the reservation taken by a successful Admit.
func (g *Guard) Release(size int64) {
	if g.perWorker <= 0 {
		return
	}
	g.reserved.Add(-size * decodeExpansion)
}

// rss samples the current process resident set; zero when sampling is not
// possible on the platform.
func (g *Guard) rss() int64 {
	if g.proc == nil {
		return 0
	}
	mi, err := g.proc.MemoryInfo()
	if err != nil || mi == nil {
		return 0
	}
	return int64(mi.RSS)
}
