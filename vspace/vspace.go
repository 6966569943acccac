// Package vspace implements the C6 virtual read/write layer (spec.md
// §4.5): per-process virtual address I/O built on an mmu.MMU translation
// and a scatter.Core physical batch. Grounded on biscuit/src/vm/as.go's
// Userdmap8_inner/Userreadn/K2user_inner page-at-a-time translate-and-
// stitch loops and userbuf.go's offset-tracking Userbuf_t, generalized
// from "the kernel's own address space, mapped via hardware" to "a
// captured process's address space, resolved page by page through C5".
package vspace

import (
	"vmmcore/mem"
	"vmmcore/mmu"
	"vmmcore/scatter"
	"vmmcore/vmmerr"
)

// Space is one process's virtual address space: its DTB plus the shared
// MMU/scatter machinery needed to resolve and fetch pages.
type Space struct {
	Dtb mem.Pa_t
	MMU *mmu.MMU
	SC  *scatter.Core

	// PagingEnabled mirrors config's paging_enabled (spec.md §6): when
	// true, a soft fault (transition/prototype/paged) is retried once via
	// PageFileResolve before being reported to the caller.
	PagingEnabled  bool
	PageFileResolve func(dtb mem.Pa_t, va uint64) (mem.Pa_t, bool)
}

// Read fills buf with n = len(buf) bytes of guest virtual memory starting
// at va. With zeroPad, Read always returns n and never an error code other
// than vmmerr.Ok — unreadable pages are zeroed in place (spec.md §4.5,
// §8.6). Without zeroPad, Read returns k <= n, the count of valid leading
// bytes, stopping at the first failing page; the caller can recover which
// page failed as va + roundup(k, PGSIZE).
func (s *Space) Read(va uint64, buf []byte, zeroPad bool) (int, vmmerr.Code) {
	n := len(buf)
	ranges := make([]scatter.Range, 0, n/mem.PGSIZE+2)
	type slot struct {
		bufOff int
		length int
	}
	var slots []slot

	// fetch issues SC.ReadPhys for everything accumulated in ranges/slots
	// so far and reports how many leading bytes were genuinely fetched —
	// called both when a later page fails translation (so the bytes
	// already claimed as valid really were read) and once at the end.
	fetch := func() (int, vmmerr.Code) {
		if len(ranges) == 0 {
			return 0, vmmerr.Ok
		}
		results := s.SC.ReadPhys(ranges, scatter.ZeroPadOnFail(zeroPad))
		got := 0
		for i, r := range results {
			if !r.Success && !zeroPad {
				return slots[i].bufOff + r.N, vmmerr.EIO
			}
			got = slots[i].bufOff + slots[i].length
		}
		return got, vmmerr.Ok
	}

	off := 0
	for off < n {
		pageVA := va + uint64(off)
		poff := int(pageVA & mem.PGOFFSET)
		step := mem.PGSIZE - poff
		if off+step > n {
			step = n - off
		}

		tr, code := s.translateSoft(pageVA)
		if code != vmmerr.Ok {
			if zeroPad {
				for i := 0; i < step; i++ {
					buf[off+i] = 0
				}
				off += step
				continue
			}
			got, ferr := fetch()
			if ferr != vmmerr.Ok {
				return got, ferr
			}
			return got, code
		}
		ranges = append(ranges, scatter.Range{Addr: tr.Phys, Buf: buf[off : off+step]})
		slots = append(slots, slot{bufOff: off, length: step})
		off += step
	}

	got, ferr := fetch()
	if zeroPad {
		return n, vmmerr.Ok
	}
	return got, ferr
}

// Write writes buf to guest virtual memory at va. A partial write is
// reported by the returned count being less than len(buf); a write that
// would cross into an unwritable mapping is truncated there, never spread
// past it (spec.md §4.5).
func (s *Space) Write(va uint64, buf []byte) (int, vmmerr.Code) {
	n := len(buf)
	written := 0
	off := 0
	for off < n {
		pageVA := va + uint64(off)
		poff := int(pageVA & mem.PGOFFSET)
		step := mem.PGSIZE - poff
		if off+step > n {
			step = n - off
		}

		tr, code := s.translateSoft(pageVA)
		if code != vmmerr.Ok {
			return written, code
		}
		res := s.SC.WritePhys([]scatter.Range{{Addr: tr.Phys, Buf: buf[off : off+step]}})
		written += res[0].N
		if !res[0].Success {
			return written, vmmerr.EIO
		}
		off += step
	}
	return written, vmmerr.Ok
}

// translateSoft resolves va, retrying once through the pagefile resolver
// when the MMU reports a soft fault and paging is enabled (spec.md §4.4
// "the caller decides whether a soft failure should be retried after
// page-file resolution").
func (s *Space) translateSoft(va uint64) (mmu.Translation, vmmerr.Code) {
	tr, code := s.MMU.Translate(s.Dtb, va)
	if code == vmmerr.Ok {
		return tr, vmmerr.Ok
	}
	if !vmmerr.IsSoftFault(code) || !s.PagingEnabled || s.PageFileResolve == nil {
		return tr, code
	}
	if pa, ok := s.PageFileResolve(s.Dtb, va); ok {
		return mmu.Translation{Phys: pa, PageSize: mem.PGSIZE}, vmmerr.Ok
	}
	return tr, vmmerr.EPaged
}

// Buf is an offset-tracking cursor over a Space, mirroring the teacher's
// Userbuf_t: callers that need sequential io.Reader/io.Writer semantics
// over a virtual range (e.g. streaming a module's bytes to a plugin
// response) wrap a Space in a Buf instead of tracking va+off by hand.
type Buf struct {
	sp  *Space
	va  uint64
	len int
	off int
}

// NewBuf creates a cursor over [va, va+length) in sp.
func NewBuf(sp *Space, va uint64, length int) *Buf {
	return &Buf{sp: sp, va: va, len: length}
}

// Remain reports the number of unread/unwritten bytes left in the cursor.
func (b *Buf) Remain() int { return b.len - b.off }

// Read implements io.Reader over the remaining virtual range, zero-padded
// on failure (a streaming consumer wants a short read, not a fault).
func (b *Buf) Read(dst []byte) (int, error) {
	if b.Remain() == 0 {
		return 0, nil
	}
	if len(dst) > b.Remain() {
		dst = dst[:b.Remain()]
	}
	n, code := b.sp.Read(b.va+uint64(b.off), dst, true)
	b.off += n
	if code != vmmerr.Ok {
		return n, code
	}
	return n, nil
}

// Write implements io.Writer over the remaining virtual range.
func (b *Buf) Write(src []byte) (int, error) {
	if len(src) > b.Remain() {
		src = src[:b.Remain()]
	}
	n, code := b.sp.Write(b.va+uint64(b.off), src)
	b.off += n
	if code != vmmerr.Ok {
		return n, code
	}
	return n, nil
}
