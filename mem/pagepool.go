package mem

import (
	"sync"
	"sync/atomic"

	"vmmcore/limits"
)

// Buffer is a pool-owned page with a reference count. Readers who obtained a
// slice of the page and are still using it keep the page pinned via
// Refup/Refdown, preventing replacement in the middle of a concurrent read
// (spec.md §4.3 "Guarantees" implies a line's bytes don't mutate under a
// caller mid-read). Grounded on biscuit/src/mem/mem.go's Physmem_t refcount
// scheme, adapted from "pages of real RAM" to "pages of cached snapshot".
type Buffer struct {
	pg   Pg_t
	refs int32
}

// Pagepool is a bounded, refcounted pool of Pg_t buffers. It is sharded into
// a small number of independent free lists (rather than the teacher's true
// per-CPU free lists, which rely on a runtime CPU-affinity hint unavailable
// outside the Go runtime's own kernel build) to keep contention low without
// needing hardware affinity.
type Pagepool struct {
	quota  *limits.Quota
	shards []shard

	lowWater chan struct{} // closed and replaced when the pool is exhausted
	mu       sync.Mutex
}

type shard struct {
	mu   sync.Mutex
	free []*Buffer
}

const numShards = 8

// NewPagepool creates a pool bounded to capacity pages.
func NewPagepool(capacity int) *Pagepool {
	p := &Pagepool{
		quota:    limits.NewQuota(int64(capacity)),
		shards:   make([]shard, numShards),
		lowWater: make(chan struct{}),
	}
	return p
}

var shardCounter uint64

func (p *Pagepool) pick() *shard {
	i := atomic.AddUint64(&shardCounter, 1) % uint64(len(p.shards))
	return &p.shards[i]
}

// Get returns a zeroed page buffer with a reference count of 1, or false if
// the pool is exhausted (spec.md §7 "resource exhaustion"). A caller that
// exhausts the pool should select on LowMemory() and retry.
func (p *Pagepool) Get() (*Buffer, bool) {
	s := p.pick()
	s.mu.Lock()
	if n := len(s.free); n > 0 {
		b := s.free[n-1]
		s.free = s.free[:n-1]
		s.mu.Unlock()
		b.refs = 1
		for i := range b.pg {
			b.pg[i] = 0
		}
		return b, true
	}
	s.mu.Unlock()

	if !p.quota.Take(1) {
		p.signalLow()
		return nil, false
	}
	return &Buffer{refs: 1}, true
}

// Refup pins b for an additional holder.
func (p *Pagepool) Refup(b *Buffer) {
	if atomic.AddInt32(&b.refs, 1) <= 1 {
		panic("mem: refup of dead buffer")
	}
}

// Refdown releases a reference; when the last reference drops the buffer is
// returned to its shard free list.
func (p *Pagepool) Refdown(b *Buffer) {
	if atomic.AddInt32(&b.refs, -1) != 0 {
		return
	}
	s := p.pick()
	s.mu.Lock()
	s.free = append(s.free, b)
	s.mu.Unlock()
}

// Page returns the underlying page buffer for direct byte access.
func (b *Buffer) Page() *Pg_t { return &b.pg }

// LowMemory returns a channel that is closed the next time Get fails due to
// quota exhaustion, mirroring the teacher's OomCh (biscuit/src/oommsg).
// Callers waiting on a fresh signal should re-fetch the channel after it
// fires, since it is replaced on each signal.
func (p *Pagepool) LowMemory() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lowWater
}

func (p *Pagepool) signalLow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.lowWater:
		// already signaled since last consumer fetched the channel
	default:
		close(p.lowWater)
	}
}

// Release replaces the low-memory channel once callers have had a chance to
// react (e.g. after a cache eviction sweep frees up quota).
func (p *Pagepool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.lowWater:
		p.lowWater = make(chan struct{})
	default:
	}
}
