package cache

import "vmmcore/mem"

// PhysCache is the C3 physical-page cache feeding scatter.Core misses.
type PhysCache struct{ *SetCache }

// NewPhysCache creates a physical cache with the given set count and
// associativity (config-tunable per spec.md §4.3 "tuning parameters are
// configuration values").
func NewPhysCache(numSets, ways int) *PhysCache {
	return &PhysCache{New(numSets, ways)}
}

// InvalidateWrite invalidates the physical page touched by a C6 write.
func (p *PhysCache) InvalidateWrite(addr mem.Pa_t) { p.Invalidate(addr) }
