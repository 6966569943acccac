// Heap-segment map builder (spec.md §3 "heap... analogous, with domain-
// specific fields").
package maps

import (
	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// HeapResult is the cached object for the "heap" kind.
type HeapResult struct {
	Entries []HeapEntry
}

// BuildHeap walks the PEB's ProcessHeaps array: a fixed-count array of
// heap base VAs, each validated then read for its segment header size.
func BuildHeap(sp *vspace.Space, sym symbol.Handle, heapsArrayVA uint64, count int) (*HeapResult, vmmerr.Code) {
	sizeOff, ok := sym.FieldOffset("_HEAP", "SegmentReserve")
	if !ok {
		return nil, vmmerr.ENotFound
	}

	var entries []HeapEntry
	for i := 0; i < count; i++ {
		base, ok := readUint64(sp, heapsArrayVA+uint64(i)*8)
		if !ok || base == 0 {
			continue
		}
		size, _ := readUint64(sp, base+sizeOff)
		entries = append(entries, HeapEntry{BaseVA: base, Size: size, Segment: i})
	}
	return &HeapResult{Entries: entries}, vmmerr.Ok
}
