// Package cache implements the two read-through, write-invalidate caches
// of spec.md §4.3: a bounded set-associative physical-page cache (C3) and
// a page-table-page cache (C4). Both share the same set-associative,
// generation-tagged line shape; cache.go holds that shared structure and
// physcache.go/tlbcache.go provide the typed wrappers scatter/mmu use.
//
// Grounded on biscuit/src/hashtable/hashtable.go's lock-striped bucket
// design, narrowed from an open hash table to a fixed N-way set per
// address bucket (set-associative, not chained) because spec.md demands
// bounded memory and per-set LRU, not unbounded chaining.
package cache

import (
	"sync"
	"sync/atomic"

	"vmmcore/mem"
)

const defaultWays = 8

type line struct {
	addr  mem.Pa_t
	pg    mem.Pg_t
	gen   int64
	valid bool
}

type set struct {
	mu    sync.Mutex
	lines []line // lines[0] is most-recently-used
}

// SetCache is a bounded, set-associative, generation-tagged cache of 4KiB
// pages keyed by physical address. Invariant (spec.md §8.1): once the
// global generation exceeds a line's stamped generation, lookups treat it
// as a miss, without needing a sweep to evict it (spec.md §4.3 "full
// eviction is not required").
type SetCache struct {
	sets       []set
	ways       int
	generation int64
}

// New creates a cache with numSets buckets, each holding ways candidate
// lines (numSets*ways total pages resident at most).
func New(numSets, ways int) *SetCache {
	if numSets <= 0 {
		numSets = 1
	}
	if ways <= 0 {
		ways = defaultWays
	}
	return &SetCache{sets: make([]set, numSets), ways: ways}
}

func (c *SetCache) bucket(addr mem.Pa_t) *set {
	idx := (uint64(addr) >> mem.PGSHIFT) % uint64(len(c.sets))
	return &c.sets[idx]
}

// Generation returns the current global generation counter.
func (c *SetCache) Generation() int64 { return atomic.LoadInt64(&c.generation) }

// Tick advances the generation counter, implicitly staling every line not
// re-validated since (spec.md §4.3 "on refresh tick... bump generation").
func (c *SetCache) Tick() int64 { return atomic.AddInt64(&c.generation, 1) }

// Get returns the cached page for addr if present and not stale.
func (c *SetCache) Get(addr mem.Pa_t) (mem.Pg_t, bool) {
	addr = mem.PageOf(addr)
	s := c.bucket(addr)
	gen := c.Generation()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		l := &s.lines[i]
		if !l.valid || l.addr != addr {
			continue
		}
		if l.gen < gen {
			l.valid = false
			return mem.Pg_t{}, false
		}
		c.touch(s, i)
		return l.pg, true
	}
	return mem.Pg_t{}, false
}

// touch moves lines[i] to the front of the set's LRU order.
func (c *SetCache) touch(s *set, i int) {
	if i == 0 {
		return
	}
	l := s.lines[i]
	copy(s.lines[1:i+1], s.lines[0:i])
	s.lines[0] = l
}

// Put inserts or refreshes addr's line, stamped with the current
// generation, evicting the set's least-recently-used entry if full.
func (c *SetCache) Put(addr mem.Pa_t, pg mem.Pg_t) {
	addr = mem.PageOf(addr)
	s := c.bucket(addr)
	gen := c.Generation()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].valid && s.lines[i].addr == addr {
			s.lines[i].pg = pg
			s.lines[i].gen = gen
			c.touch(s, i)
			return
		}
	}
	newline := line{addr: addr, pg: pg, gen: gen, valid: true}
	if len(s.lines) < c.ways {
		s.lines = append([]line{newline}, s.lines...)
		return
	}
	// evict least-recently-used (last element)
	s.lines[len(s.lines)-1] = newline
	c.touch(s, len(s.lines)-1)
}

// Invalidate drops addr's line immediately, regardless of generation
// (spec.md §4.3 "on C6 write: invalidate the targeted physical page(s)").
func (c *SetCache) Invalidate(addr mem.Pa_t) {
	addr = mem.PageOf(addr)
	s := c.bucket(addr)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].valid && s.lines[i].addr == addr {
			s.lines[i].valid = false
		}
	}
}
