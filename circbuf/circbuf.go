// Package circbuf implements a single-page circular byte buffer used to
// stage generated plugin output (status/result/readme text, spec.md §4.9)
// before it is served back through Plugin.Read at arbitrary offsets. It is
// not safe for concurrent use; each plugin invocation owns its own buffer.
package circbuf

import (
	"io"

	"vmmcore/mem"
	"vmmcore/vmmerr"
)

// Circbuf is a fixed-capacity (at most one page) circular buffer with lazy
// page-backed allocation, adapted from biscuit/src/circbuf/circbuf.go's
// pipe-buffering scheme. Backing storage comes from a mem.Pagepool instead
// of the teacher's whole-machine physical allocator.
type Circbuf struct {
	pool  *mem.Pagepool
	buf   *mem.Buffer
	bufsz int
	head  int
	tail  int
}

// Init prepares cb to lazily allocate a backing page of sz bytes (sz must
// fit in one page) from pool on first use.
func (cb *Circbuf) Init(sz int, pool *mem.Pagepool) {
	if sz <= 0 || sz > mem.PGSIZE {
		panic("circbuf: bad size")
	}
	cb.pool = pool
	cb.bufsz = sz
	cb.head, cb.tail = 0, 0
}

// Bufsz returns the configured capacity in bytes.
func (cb *Circbuf) Bufsz() int { return cb.bufsz }

// ensure lazily grabs a page from the pool the first time the buffer is
// touched, matching the teacher's "handle allocation failure at first
// read/write, not init" rationale — a plugin that never gets read never
// needs a page.
func (cb *Circbuf) ensure() vmmerr.Code {
	if cb.buf != nil {
		return vmmerr.Ok
	}
	if cb.bufsz == 0 {
		panic("circbuf: not initialized")
	}
	b, ok := cb.pool.Get()
	if !ok {
		return vmmerr.ENoMem
	}
	cb.buf = b
	return vmmerr.Ok
}

func (cb *Circbuf) bytes() []byte {
	return cb.buf.Page().Bytes()[:cb.bufsz]
}

// Release returns the backing page to its pool.
func (cb *Circbuf) Release() {
	if cb.buf == nil {
		return
	}
	cb.pool.Refdown(cb.buf)
	cb.buf = nil
	cb.head, cb.tail = 0, 0
}

// Full reports whether the buffer cannot accept more data.
func (cb *Circbuf) Full() bool { return cb.head-cb.tail == cb.bufsz }

// Empty reports whether the buffer holds no data.
func (cb *Circbuf) Empty() bool { return cb.head == cb.tail }

// Left returns the remaining write capacity in bytes.
func (cb *Circbuf) Left() int { return cb.bufsz - (cb.head - cb.tail) }

// Used returns the number of unread bytes currently buffered.
func (cb *Circbuf) Used() int { return cb.head - cb.tail }

// Copyin reads as much of src as fits into free space in the buffer.
func (cb *Circbuf) Copyin(src io.Reader) (int, vmmerr.Code) {
	if err := cb.ensure(); err != vmmerr.Ok {
		return 0, err
	}
	if cb.Full() {
		return 0, vmmerr.Ok
	}
	buf := cb.bytes()
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	if ti <= hi {
		dst := buf[hi:]
		n, rerr := src.Read(dst)
		c += n
		if n != len(dst) || rerr != nil {
			cb.head += n
			return c, vmmerr.Ok
		}
		hi = (cb.head + n) % cb.bufsz
	}
	if hi > ti {
		panic("circbuf: bad region")
	}
	dst := buf[hi:ti]
	n, _ := src.Read(dst)
	c += n
	cb.head += c
	return c, vmmerr.Ok
}

// Copyout writes the entire buffered contents to dst.
func (cb *Circbuf) Copyout(dst io.Writer) (int, vmmerr.Code) {
	return cb.CopyoutN(dst, 0)
}

// CopyoutN writes up to max bytes (0 meaning unlimited) of the buffered
// contents to dst.
func (cb *Circbuf) CopyoutN(dst io.Writer, max int) (int, vmmerr.Code) {
	if err := cb.ensure(); err != vmmerr.Ok {
		return 0, err
	}
	if cb.Empty() {
		return 0, vmmerr.Ok
	}
	buf := cb.bytes()
	hi := cb.head % cb.bufsz
	ti := cb.tail % cb.bufsz
	c := 0
	if hi <= ti {
		src := buf[ti:]
		if max != 0 && max < len(src) {
			src = src[:max]
		}
		n, werr := dst.Write(src)
		c += n
		if werr != nil {
			return c, vmmerr.EIO
		}
		if n != len(src) || n == max {
			cb.tail += n
			return c, vmmerr.Ok
		}
		if max != 0 {
			max -= n
		}
		ti = (cb.tail + n) % cb.bufsz
	}
	if ti > hi {
		panic("circbuf: bad region")
	}
	src := buf[ti:hi]
	if max != 0 && max < len(src) {
		src = src[:max]
	}
	n, werr := dst.Write(src)
	c += n
	cb.tail += c
	if werr != nil {
		return c, vmmerr.EIO
	}
	return c, vmmerr.Ok
}

// ReadAt serves an offset-addressed read directly against the buffered
// bytes without disturbing head/tail, the access pattern Plugin.Read needs
// (repeated reads at growing offsets into an already-generated report).
func (cb *Circbuf) ReadAt(p []byte, off int) (int, vmmerr.Code) {
	if err := cb.ensure(); err != vmmerr.Ok {
		return 0, err
	}
	used := cb.Used()
	if off >= used {
		return 0, vmmerr.Ok
	}
	buf := cb.bytes()
	ti := cb.tail % cb.bufsz
	start := (ti + off) % cb.bufsz
	n := used - off
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = buf[(start+i)%cb.bufsz]
	}
	return n, vmmerr.Ok
}
