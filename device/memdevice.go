package device

import (
	"strings"
	"sync"

	"vmmcore/mem"
)

// MemDevice is an in-memory device backed by a sparse page map, used by
// tests that need a writable, fully controlled image (spec.md §8 scenario
// 5, "write-then-read through cache"). Grounded on the same splice-pages-
// by-address idea as FileDevice/debug/core's pageTable, simplified to a
// Go map since test images are small.
type MemDevice struct {
	mu       sync.Mutex
	pages    map[mem.Pa_t]*mem.Pg_t
	addrMax  mem.Pa_t
	writable bool
	volatile bool
}

// NewMemDevice creates an empty writable, non-volatile device.
func NewMemDevice() *MemDevice {
	return &MemDevice{pages: make(map[mem.Pa_t]*mem.Pg_t), writable: true}
}

// SetVolatile marks the device as changing under the reader.
func (d *MemDevice) SetVolatile(v bool) { d.volatile = v }

// Poke installs page at the given page-aligned address, for test setup.
func (d *MemDevice) Poke(addr mem.Pa_t, page mem.Pg_t) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := page
	d.pages[mem.PageOf(addr)] = &p
	if e := mem.PageOf(addr) + mem.PGSIZE; e > d.addrMax {
		d.addrMax = e
	}
}

func (d *MemDevice) ScatterRead(reqs []*Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range reqs {
		pg, ok := d.pages[mem.PageOf(r.Addr)]
		if !ok {
			r.Buf = mem.Pg_t{}
			r.Succeeded = false
			continue
		}
		r.Buf = *pg
		r.Succeeded = true
	}
	return nil
}

func (d *MemDevice) ScatterWrite(reqs []*Request) error {
	if !d.writable {
		for _, r := range reqs {
			r.Succeeded = false
		}
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range reqs {
		p := r.Buf
		d.pages[mem.PageOf(r.Addr)] = &p
		if e := mem.PageOf(r.Addr) + mem.PGSIZE; e > d.addrMax {
			d.addrMax = e
		}
		r.Succeeded = true
	}
	return nil
}

func (d *MemDevice) GetOption(key Option) (uint64, bool) {
	if key == OptAddrMax {
		return uint64(d.addrMax), true
	}
	return 0, false
}

func (d *MemDevice) SetOption(key Option, val uint64) bool {
	if key == OptAddrMax {
		d.addrMax = mem.Pa_t(val)
		return true
	}
	return false
}

// Command implements MEMMAP_SET: payload is text, one "start_hex end_hex"
// range per line; ADDR_MAX becomes the max range end (spec.md §8
// round-trip property).
func (d *MemDevice) Command(cmd string, payload []byte) ([]byte, error) {
	if cmd != "MEMMAP_SET" {
		return nil, nil
	}
	var max mem.Pa_t
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		var start, end uint64
		if _, err := scanHex(fields[0], &start); err != nil {
			continue
		}
		if _, err := scanHex(fields[1], &end); err != nil {
			continue
		}
		if mem.Pa_t(end) > max {
			max = mem.Pa_t(end)
		}
	}
	d.mu.Lock()
	d.addrMax = max
	d.mu.Unlock()
	return nil, nil
}

func scanHex(s string, out *uint64) (int, error) {
	var v uint64
	n := 0
	for _, c := range s {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			continue
		}
		v = v<<4 | d
		n++
	}
	*out = v
	return n, nil
}

func (d *MemDevice) Writable() bool { return d.writable }
func (d *MemDevice) Volatile() bool { return d.volatile }
