// PTE map builder (spec.md §3 "PTE entry: VA base, page count (4 KiB
// pages), protection bits, optional identified module name"). Walks a VA
// range one page at a time through the already-built mmu.MMU translation
// path, coalescing contiguous present pages into ranges and stamping each
// range's protection from the owning VAD entry (vad.go) when one covers it
// — the PTE itself carries no human-meaningful protection summary beyond
// present/writable/no-execute bits mmu.Translation doesn't currently
// surface, so the VAD's protection field is the more useful signal spec.md
// asks this entry to carry.
package maps

import (
	"vmmcore/mem"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// PTEResult is the cached object for the "pte" kind.
type PTEResult struct {
	Entries []PTEEntry
	Pool    *StringPool
}

// BuildPTE walks [startVA, endVA) and coalesces contiguous present pages
// into PTEEntry ranges. vad, if non-nil, supplies each range's protection
// and module attribution.
func BuildPTE(sp *vspace.Space, startVA, endVA uint64, vad *VADResult) (*PTEResult, vmmerr.Code) {
	pool := NewStringPool()
	var entries []PTEEntry
	var cur *PTEEntry

	flush := func() {
		if cur != nil {
			entries = append(entries, *cur)
			cur = nil
		}
	}

	for va := mem.PageOf(mem.Pa_t(startVA)); uint64(va) < endVA; va += mem.PGSIZE {
		_, code := sp.MMU.Translate(sp.Dtb, uint64(va))
		present := code == vmmerr.Ok
		if !present {
			flush()
			continue
		}
		if cur != nil && uint64(va) == cur.VABase+cur.PageCount*mem.PGSIZE {
			cur.PageCount++
			continue
		}
		flush()
		prot := uint32(0)
		modIdx := -1
		if vad != nil {
			if v, ok := vad.Lookup(uint64(va)); ok {
				prot = v.Protection
				if v.ModuleIdx >= 0 {
					modIdx = pool.Add(vad.Pool.Get(v.ModuleIdx))
				}
			}
		}
		cur = &PTEEntry{VABase: uint64(va), PageCount: 1, Protection: prot, ModuleIdx: modIdx}
	}
	flush()

	return &PTEResult{Entries: entries, Pool: pool}, vmmerr.Ok
}
