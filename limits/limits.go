// Package limits tracks the bounded resource quotas spec.md calls out by
// name: at most 32 live handles (§3), a bounded physical/TLB cache (§4.3),
// a bounded work pool queue (§4.8), and a bounded search result vector
// (§4.9). Quota accounts are atomic "given/taken" counters so hot paths
// never block on a mutex just to check whether they're within budget.
package limits

import "sync/atomic"

// Quota is a numeric budget that can be atomically taken and given back.
type Quota struct {
	remaining int64
}

// NewQuota returns a Quota initialized to n.
func NewQuota(n int64) *Quota {
	return &Quota{remaining: n}
}

// Take reserves n units of the quota. It returns false, leaving the quota
// unchanged, if fewer than n units remain.
func (q *Quota) Take(n int64) bool {
	if n < 0 {
		panic("negative take")
	}
	if atomic.AddInt64(&q.remaining, -n) >= 0 {
		return true
	}
	atomic.AddInt64(&q.remaining, n)
	return false
}

// Give returns n units to the quota.
func (q *Quota) Give(n int64) {
	if n < 0 {
		panic("negative give")
	}
	atomic.AddInt64(&q.remaining, n)
}

// Remaining reports the current budget.
func (q *Quota) Remaining() int64 {
	return atomic.LoadInt64(&q.remaining)
}

// Limits collects the system-wide bounds referenced across the engine.
// Fields mirror spec.md's named bounds rather than the teacher's original
// per-resource-kind list (vnodes, futexes, arp entries, ...), which have no
// analogue in a read-mostly memory abstraction.
type Limits struct {
	// MaxHandles is the size of the process-wide handle allow-list (spec.md §3: "≤32 handles").
	MaxHandles int
	// MaxCacheLines bounds the physical and TLB caches (spec.md §4.3).
	MaxCacheLines int
	// MaxWorkers bounds the work pool (spec.md §4.8).
	MaxWorkers int
	// MaxSearchHits bounds a single search's result vector (spec.md §4.9).
	MaxSearchHits int
	// MaxProcesses bounds the process table (spec.md §4.6).
	MaxProcesses int
}

// Default returns the engine's default resource bounds.
func Default() Limits {
	return Limits{
		MaxHandles:    32,
		MaxCacheLines: 1 << 16, // 256MB of 4KiB lines
		MaxWorkers:    0,       // 0 means runtime.NumCPU()
		MaxSearchHits: 1 << 20,
		MaxProcesses:  1 << 16,
	}
}
