// Package mem defines the page-granular physical address space vocabulary
// shared by every layer above the device adapter: the page size, a page
// buffer type, and a refcounted page-buffer pool. Unlike the teacher
// (biscuit), which owns real physical RAM for a running kernel, this engine
// never owns memory — Pa_t addresses always refer to bytes inside someone
// else's image, fetched through device.Device and cached in cache.PhysCache.
// Pagepool hands out refcounted page buffers; circbuf takes its backing page
// from it. The cache stores its lines as plain Pg_t values and does not use
// Pagepool.
package mem

import "unsafe"

// PGSHIFT is the base-2 exponent of the page size spec.md uses throughout
// (4 KiB pages, spec.md §3 "page count (4 KiB pages)").
const PGSHIFT = 12

// PGSIZE is the size of one page in bytes.
const PGSIZE = 1 << PGSHIFT

// PGOFFSET masks the in-page offset of an address.
const PGOFFSET = PGSIZE - 1

// PGMASK masks the page-aligned portion of an address.
const PGMASK = ^uint64(PGOFFSET)

// Pa_t is a physical address inside the guest's memory image. It carries no
// meaning about our own process's address space.
type Pa_t uint64

// PageOf rounds a down to its containing page-aligned address.
func PageOf(a Pa_t) Pa_t { return Pa_t(uint64(a) & PGMASK) }

// Offset returns the in-page offset of a.
func Offset(a Pa_t) int { return int(uint64(a) & PGOFFSET) }

// Pg_t is one 4KiB page buffer.
type Pg_t [PGSIZE]byte

// Bytes returns pg as a byte slice without copying.
func (pg *Pg_t) Bytes() []byte { return pg[:] }

// PgFromBytes reinterprets a PGSIZE-length byte slice as a *Pg_t without
// copying. Panics if b is not exactly one page long, matching the teacher's
// Pg2bytes/Bytepg2pg reinterpret-cast pair (biscuit/src/mem/dmap.go).
func PgFromBytes(b []byte) *Pg_t {
	if len(b) != PGSIZE {
		panic("mem: not a page")
	}
	return (*Pg_t)(unsafe.Pointer(&b[0]))
}
