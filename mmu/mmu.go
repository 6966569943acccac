// Package mmu implements the C5 paging-mode MMU (spec.md §4.4): virtual to
// physical address translation across the three guest paging variants.
// Page-table pages are fetched through a dedicated TLB cache (C4) rather
// than scatter's physical cache (C3), so a hot page-table page survives
// independently of physical-page churn.
//
// Grounded on biscuit/src/vm/as.go's pmap_walk (4-level x86-64 walk) and
// mem/mem.go's PTE_* bit constants, generalized to the guest's own PTE
// encodings (which may differ from the Go runtime's native ones) and to
// the two 32-bit legacy/extended variants spec.md §4.4 adds.
package mmu

import (
	"vmmcore/cache"
	"vmmcore/mem"
	"vmmcore/scatter"
	"vmmcore/vmmerr"
)

// Variant selects one of the three guest paging-mode layouts (spec.md
// §4.4), chosen once at handle initialization from OS identification.
type Variant int

const (
	// VariantA is the 4-level 64-bit (long mode) layout: L4->L3->L2->L1.
	VariantA Variant = iota
	// VariantB is the 2-level 32-bit legacy layout: L2->L1, 4MiB large pages.
	VariantB
	// VariantC is the 3-level 32-bit PAE/extended layout: L3->L2->L1,
	// 64-bit entries, 2MiB large pages.
	VariantC
)

// Guest x86-style PTE bits, shared across variants (the bit positions
// happen to coincide across A/B/C for the flags this package inspects).
const (
	ptePresent = 1 << 0
	ptePS      = 1 << 7  // large page at this level
	pteProto   = 1 << 10 // OS-specific: prototype PTE encoding
	pteTransit = 1 << 11 // OS-specific: transition PTE encoding
)

// Translation is the successful result of Translate.
type Translation struct {
	Phys     mem.Pa_t
	PageSize uint64 // 4096, 2<<20, 4<<20, or 1<<30
}

// MMU translates virtual addresses for a single paging variant, reading
// page-table pages on demand through a TLB cache backed by a scatter
// core.
type MMU struct {
	variant Variant
	sc      *scatter.Core
	tlb     *cache.TLBCache
}

// New creates an MMU for the given variant.
func New(variant Variant, sc *scatter.Core, tlb *cache.TLBCache) *MMU {
	return &MMU{variant: variant, sc: sc, tlb: tlb}
}

// readEntry fetches the 8-byte entry at physical address ea, going
// through the TLB cache's containing page, populating it from the
// scatter core on a miss.
func (m *MMU) readEntry(ea mem.Pa_t) (uint64, vmmerr.Code) {
	page := mem.PageOf(ea)
	pg, ok := m.tlb.Get(page)
	if !ok {
		buf := make([]byte, mem.PGSIZE)
		res := m.sc.ReadPhys([]scatter.Range{{Addr: page, Buf: buf}}, scatter.NoZeroPad)
		if !res[0].Success {
			return 0, vmmerr.EIO
		}
		pg = *mem.PgFromBytes(buf)
		m.tlb.Put(page, pg)
	}
	off := mem.Offset(ea)
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(pg[off+i])
	}
	return v, vmmerr.Ok
}

// classify maps an OS-specific non-present entry to the soft-fault reason
// spec.md §4.4 requires ("not present, transition and prototype PTE
// encodings... yield a soft fault").
func classify(entry uint64) vmmerr.Code {
	switch {
	case entry&pteTransit != 0:
		return vmmerr.ETransition
	case entry&pteProto != 0:
		return vmmerr.EPrototype
	case entry != 0:
		// a non-zero, non-present entry with neither bit set is treated
		// as paged out to a backing store (spec.md's "Paged" reason).
		return vmmerr.EPaged
	default:
		return vmmerr.ENotPresent
	}
}

// Translate resolves va to a physical address for the given DTB (spec.md
// §4.4). The returned Code is vmmerr.Ok on success, or one of
// ENotPresent/ETransition/EPrototype/EPaged/EBadEntry identifying why the
// walk stopped; IsSoftFault(code) tells the caller whether a pagefile
// retry (spec.md §6 "paging_enabled") might help. Translate is a pure
// function of the current physical snapshot, dtb and variant (spec.md
// §8.5) — it performs no writes and its result depends only on bytes
// already resolvable through m.sc/m.tlb.
func (m *MMU) Translate(dtb mem.Pa_t, va uint64) (Translation, vmmerr.Code) {
	switch m.variant {
	case VariantA:
		return m.translateA(dtb, va)
	case VariantB:
		return m.translateB(dtb, va)
	case VariantC:
		return m.translateC(dtb, va)
	default:
		return Translation{}, vmmerr.EBadEntry
	}
}

func entryAddr(table mem.Pa_t, index uint64) mem.Pa_t {
	return mem.PageOf(table) + mem.Pa_t(index*8)
}

const (
	pfnMaskA = 0x000ffffffffff000 // bits 12-51
)

// translateA walks the 4-level 64-bit layout (spec.md §4.4 variant A).
func (m *MMU) translateA(dtb mem.Pa_t, va uint64) (Translation, vmmerr.Code) {
	idx4 := (va >> 39) & 0x1ff
	idx3 := (va >> 30) & 0x1ff
	idx2 := (va >> 21) & 0x1ff
	idx1 := (va >> 12) & 0x1ff

	e4, code := m.readEntry(entryAddr(dtb, idx4))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e4&ptePresent == 0 {
		return Translation{}, classify(e4)
	}
	t3 := mem.Pa_t(e4 & pfnMaskA)

	e3, code := m.readEntry(entryAddr(t3, idx3))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e3&ptePresent == 0 {
		return Translation{}, classify(e3)
	}
	if e3&ptePS != 0 { // 1GiB page
		base := mem.Pa_t(e3 & 0x000fffffc0000000)
		return Translation{Phys: base | mem.Pa_t(va&0x3fffffff), PageSize: 1 << 30}, vmmerr.Ok
	}
	t2 := mem.Pa_t(e3 & pfnMaskA)

	e2, code := m.readEntry(entryAddr(t2, idx2))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e2&ptePresent == 0 {
		return Translation{}, classify(e2)
	}
	if e2&ptePS != 0 { // 2MiB page
		base := mem.Pa_t(e2 & 0x000fffffffe00000)
		return Translation{Phys: base | mem.Pa_t(va&0x1fffff), PageSize: 2 << 20}, vmmerr.Ok
	}
	t1 := mem.Pa_t(e2 & pfnMaskA)

	e1, code := m.readEntry(entryAddr(t1, idx1))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e1&ptePresent == 0 {
		return Translation{}, classify(e1)
	}
	base := mem.Pa_t(e1 & pfnMaskA)
	return Translation{Phys: base | mem.Pa_t(va&0xfff), PageSize: mem.PGSIZE}, vmmerr.Ok
}

// translateB walks the 2-level 32-bit legacy layout (spec.md §4.4 variant
// B). Entries are 4 bytes; 4MiB large pages are supported. Open question
// (SPEC_FULL.md §5): the source conflates legacy 4MiB and PAE 2MiB large
// pages in one branch — kept as two distinct typed functions here instead,
// so each variant's large-page math stays separate.
func (m *MMU) translateB(dtb mem.Pa_t, va uint64) (Translation, vmmerr.Code) {
	idx2 := (va >> 22) & 0x3ff
	idx1 := (va >> 12) & 0x3ff

	e2full, code := m.readEntry32(entryAddr32(dtb, idx2))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e2full&ptePresent == 0 {
		return Translation{}, classify(e2full)
	}
	if e2full&ptePS != 0 { // 4MiB page
		base := mem.Pa_t(e2full & 0xffc00000)
		return Translation{Phys: base | mem.Pa_t(va&0x3fffff), PageSize: 4 << 20}, vmmerr.Ok
	}
	t1 := mem.Pa_t(e2full & 0xfffff000)

	e1, code := m.readEntry32(entryAddr32(t1, idx1))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e1&ptePresent == 0 {
		return Translation{}, classify(e1)
	}
	base := mem.Pa_t(e1 & 0xfffff000)
	return Translation{Phys: base | mem.Pa_t(va&0xfff), PageSize: mem.PGSIZE}, vmmerr.Ok
}

// translateC walks the 3-level 32-bit PAE/extended layout (spec.md §4.4
// variant C). Entries are 8 bytes at every level; 2MiB large pages.
func (m *MMU) translateC(dtb mem.Pa_t, va uint64) (Translation, vmmerr.Code) {
	idx3 := (va >> 30) & 0x3
	idx2 := (va >> 21) & 0x1ff
	idx1 := (va >> 12) & 0x1ff

	e3, code := m.readEntry(entryAddr(dtb, idx3))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e3&ptePresent == 0 {
		return Translation{}, classify(e3)
	}
	t2 := mem.Pa_t(e3 & pfnMaskA)

	e2, code := m.readEntry(entryAddr(t2, idx2))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e2&ptePresent == 0 {
		return Translation{}, classify(e2)
	}
	if e2&ptePS != 0 { // 2MiB page
		base := mem.Pa_t(e2 & 0x000fffffffe00000)
		return Translation{Phys: base | mem.Pa_t(va&0x1fffff), PageSize: 2 << 20}, vmmerr.Ok
	}
	t1 := mem.Pa_t(e2 & pfnMaskA)

	e1, code := m.readEntry(entryAddr(t1, idx1))
	if code != vmmerr.Ok {
		return Translation{}, code
	}
	if e1&ptePresent == 0 {
		return Translation{}, classify(e1)
	}
	base := mem.Pa_t(e1 & pfnMaskA)
	return Translation{Phys: base | mem.Pa_t(va&0xfff), PageSize: mem.PGSIZE}, vmmerr.Ok
}

func entryAddr32(table mem.Pa_t, index uint64) mem.Pa_t {
	return mem.PageOf(table) + mem.Pa_t(index*4)
}

// readEntry32 fetches a 4-byte legacy entry, reusing the same TLB-cached
// page fetch as readEntry.
func (m *MMU) readEntry32(ea mem.Pa_t) (uint64, vmmerr.Code) {
	page := mem.PageOf(ea)
	pg, ok := m.tlb.Get(page)
	if !ok {
		buf := make([]byte, mem.PGSIZE)
		res := m.sc.ReadPhys([]scatter.Range{{Addr: page, Buf: buf}}, scatter.NoZeroPad)
		if !res[0].Success {
			return 0, vmmerr.EIO
		}
		pg = *mem.PgFromBytes(buf)
		m.tlb.Put(page, pg)
	}
	off := mem.Offset(ea)
	var v uint64
	for i := 3; i >= 0; i-- {
		v = v<<8 | uint64(pg[off+i])
	}
	return v, vmmerr.Ok
}
