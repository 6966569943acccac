package cache

import "vmmcore/mem"

// TLBCache is the C4 cache of validated page-table pages, keyed by their
// physical address. mmu.Translate consults it before issuing a C2 read
// for each paging-structure level.
type TLBCache struct{ *SetCache }

// NewTLBCache creates a TLB (page-table-page) cache.
func NewTLBCache(numSets, ways int) *TLBCache {
	return &TLBCache{New(numSets, ways)}
}

// InvalidateRange conservatively invalidates every page-table page whose
// physical address falls in [start, end) — spec.md §4.3: "if a write
// falls inside a known page-table page, invalidate it".
func (t *TLBCache) InvalidateRange(start, end mem.Pa_t) {
	for a := mem.PageOf(start); a < end; a += mem.PGSIZE {
		t.Invalidate(a)
	}
}
