// Package scatter implements the C2 scatter I/O core (spec.md §4.2): it
// splits byte ranges into page slots, serves hits from the physical
// cache, deduplicates misses into one device round trip, and stitches
// results back into the caller's ranges. Grounded on biscuit/src/vm/as.go's
// Userdmap8_inner page-at-a-time translate-and-stitch loop, generalized
// from "touch the kernel's direct map" to "go fetch the page from C1,
// through C3".
package scatter

import (
	"vmmcore/cache"
	"vmmcore/device"
	"vmmcore/mem"
	"vmmcore/stats"
)

// Range is one caller-supplied physical byte range to read or write.
type Range struct {
	Addr mem.Pa_t
	Buf  []byte // len(Buf) bytes starting at Addr
}

// Result reports how much of a Range was satisfied.
type Result struct {
	N       int  // valid leading bytes
	Success bool // true iff N == len(Buf)
}

// Counters tallies scatter activity for stats.Dump/WriteProfile.
type Counters struct {
	Hits      stats.Counter
	Misses    stats.Counter
	DeviceIOs stats.Counter
}

// Core is the C2 engine: one instance is shared by every virtual/physical
// reader on a handle. Concurrent calls are allowed and must not share
// scratch buffers (spec.md §4.2) — Core never retains caller buffers past
// a single ReadPhys/WritePhys call, satisfying that requirement trivially.
type Core struct {
	dev   device.Device
	phys  *cache.PhysCache
	Stats Counters
}

// New creates a scatter core over dev, caching hits in phys.
func New(dev device.Device, phys *cache.PhysCache) *Core {
	return &Core{dev: dev, phys: phys}
}

// ZeroPadOnFail controls whether ReadPhys zero-fills and reports success
// for ranges that include an unreadable page, or stops at the first
// failing page (spec.md §4.2 step 5).
type ZeroPadOnFail bool

const (
	NoZeroPad ZeroPadOnFail = false
	ZeroPad   ZeroPadOnFail = true
)

// ReadPhys satisfies every range in reqs, issuing at most one device round
// trip for the pages that miss the cache (spec.md §4.2 "Guarantees": at
// most one device round-trip per top-level call).
func (c *Core) ReadPhys(reqs []Range, zp ZeroPadOnFail) []Result {
	results := make([]Result, len(reqs))

	type slot struct {
		addr mem.Pa_t
		pg   mem.Pg_t
		ok   bool
	}
	// page -> slot, deduplicated across all ranges (step 2-3).
	need := map[mem.Pa_t]*slot{}
	for _, r := range reqs {
		for off := 0; off < len(r.Buf); {
			pa := r.Addr + mem.Pa_t(off)
			page := mem.PageOf(pa)
			if _, ok := need[page]; !ok {
				need[page] = &slot{addr: page}
			}
			step := mem.PGSIZE - mem.Offset(pa)
			if off+step > len(r.Buf) {
				step = len(r.Buf) - off
			}
			off += step
		}
	}

	var misses []*slot
	for _, s := range need {
		if pg, ok := c.phys.Get(s.addr); ok {
			s.pg = pg
			s.ok = true
			c.Stats.Hits.Inc()
		} else {
			misses = append(misses, s)
			c.Stats.Misses.Inc()
		}
	}

	if len(misses) > 0 {
		devReqs := make([]*device.Request, len(misses))
		for i, s := range misses {
			devReqs[i] = &device.Request{Addr: s.addr}
		}
		c.Stats.DeviceIOs.Inc()
		_ = c.dev.ScatterRead(devReqs)
		for i, s := range misses {
			s.ok = devReqs[i].Succeeded
			if s.ok {
				s.pg = devReqs[i].Buf
				c.phys.Put(s.addr, s.pg)
			}
		}
	}

	// step 5: gather into caller ranges.
	for ri, r := range reqs {
		n := 0
		failed := false
		for off := 0; off < len(r.Buf); {
			pa := r.Addr + mem.Pa_t(off)
			page := mem.PageOf(pa)
			poff := mem.Offset(pa)
			step := mem.PGSIZE - poff
			if off+step > len(r.Buf) {
				step = len(r.Buf) - off
			}
			s := need[page]
			if !s.ok {
				failed = true
				if zp {
					for i := 0; i < step; i++ {
						r.Buf[off+i] = 0
					}
					n += step
					off += step
					continue
				}
				break
			}
			copy(r.Buf[off:off+step], s.pg[poff:poff+step])
			n += step
			off += step
		}
		results[ri] = Result{N: n, Success: n == len(r.Buf) && (!failed || bool(zp))}
	}
	return results
}

// WritePhys issues a best-effort write of every range, invalidating
// successfully written pages in the physical cache (spec.md §4.3 "on C6
// write: invalidate the targeted physical page(s) in C3"). A page that
// the device reports as failed is left untouched and not invalidated.
func (c *Core) WritePhys(reqs []Range) []Result {
	results := make([]Result, len(reqs))
	if !c.dev.Writable() {
		return results
	}

	for ri, r := range reqs {
		n := 0
		for off := 0; off < len(r.Buf); {
			pa := r.Addr + mem.Pa_t(off)
			page := mem.PageOf(pa)
			poff := mem.Offset(pa)
			step := mem.PGSIZE - poff
			if off+step > len(r.Buf) {
				step = len(r.Buf) - off
			}

			var pg mem.Pg_t
			full := poff == 0 && step == mem.PGSIZE
			if !full {
				if cached, ok := c.phys.Get(page); ok {
					pg = cached
				} else {
					rreq := &device.Request{Addr: page}
					if err := c.dev.ScatterRead([]*device.Request{rreq}); err != nil || !rreq.Succeeded {
						break
					}
					pg = rreq.Buf
				}
			}
			copy(pg[poff:poff+step], r.Buf[off:off+step])

			wreq := &device.Request{Addr: page, Buf: pg}
			c.Stats.DeviceIOs.Inc()
			if err := c.dev.ScatterWrite([]*device.Request{wreq}); err != nil || !wreq.Succeeded {
				break
			}
			c.phys.InvalidateWrite(page)
			n += step
			off += step
		}
		results[ri] = Result{N: n, Success: n == len(r.Buf)}
	}
	return results
}
