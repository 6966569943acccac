// Kernel pool-tag allocation map builder (spec.md §3 "pool... analogous,
// with domain-specific fields"). Unlike the other builders this one scans
// a virtual range for 4-byte pool tags rather than following a pointer
// chain, since a pool allocator has no single discoverable head list —
// each freed or active block simply carries its tag inline.
package maps

import (
	"vmmcore/mem"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// PoolResult is the cached object for the "pool" kind.
type PoolResult struct {
	Entries []PoolEntry
}

// BuildPool scans [startVA, endVA) for the given tag and records every
// aligned hit as a PoolEntry. The (size) field is left at mem.PGSIZE —
// without the pool header layout (out of scope, see InfoDB) we cannot
// read the true block size, only that a tagged header begins here.
func BuildPool(sp *vspace.Space, startVA, endVA uint64, tag [4]byte) (*PoolResult, vmmerr.Code) {
	var entries []PoolEntry
	page := make([]byte, mem.PGSIZE)
	for va := startVA; va < endVA; va += mem.PGSIZE {
		n, code := sp.Read(va, page, false)
		if code != vmmerr.Ok {
			continue
		}
		for off := 0; off+4 <= n; off += 8 { // pool headers are 8-byte aligned
			if page[off] == tag[0] && page[off+1] == tag[1] && page[off+2] == tag[2] && page[off+3] == tag[3] {
				entries = append(entries, PoolEntry{Tag: tag, VA: va + uint64(off), Size: mem.PGSIZE})
			}
		}
	}
	return &PoolResult{Entries: entries}, vmmerr.Ok
}
