package vspace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/cache"
	"vmmcore/device"
	"vmmcore/mem"
	"vmmcore/mmu"
	"vmmcore/scatter"
	"vmmcore/vmmerr"
)

func TestReadSpansTwoPagesAndZeroPadsMissingOne(t *testing.T) {
	dev := device.NewMemDevice()
	dtb := mem.Pa_t(0x1000)
	l3 := mem.Pa_t(0x2000)
	l2 := mem.Pa_t(0x3000)
	l1 := mem.Pa_t(0x4000)
	pageA := mem.Pa_t(0x5000)

	va := uint64(0x0000000010000000) - mem.PGSIZE/2 // ensures the read crosses a page boundary

	mapOnePage(dev, dtb, l3, l2, l1, pageA, va&^uint64(mem.PGOFFSET))
	var full mem.Pg_t
	for i := range full {
		full[i] = 0x42
	}
	dev.Poke(pageA, full)

	sc := scatter.New(dev, cache.NewPhysCache(8, 4))
	m := mmu.New(mmu.VariantA, sc, cache.NewTLBCache(8, 4))
	sp := &Space{Dtb: dtb, MMU: m, SC: sc}

	buf := make([]byte, mem.PGSIZE) // spans from mid-pageA into the unmapped next page
	n, code := sp.Read(va, buf, true)
	assert.Equal(t, len(buf), n)
	_ = code
	// first half (still within the mapped page) must be the poked fill byte
	assert.EqualValues(t, 0x42, buf[0])
	// second half falls in the unmapped page and must read as zero
	assert.EqualValues(t, 0, buf[len(buf)-1])
}

func mapOnePage(dev *device.MemDevice, dtb, l3, l2, l1, leaf mem.Pa_t, va uint64) {
	idx4 := (va >> 39) & 0x1ff
	idx3 := (va >> 30) & 0x1ff
	idx2 := (va >> 21) & 0x1ff
	idx1 := (va >> 12) & 0x1ff

	pokeEntry(dev, dtb, idx4, uint64(l3)|1)
	pokeEntry(dev, l3, idx3, uint64(l2)|1)
	pokeEntry(dev, l2, idx2, uint64(l1)|1)
	pokeEntry(dev, l1, idx1, uint64(leaf)|1)
}

func pokeEntry(dev *device.MemDevice, table mem.Pa_t, index uint64, entry uint64) {
	var pg mem.Pg_t
	req := &device.Request{Addr: table}
	dev.ScatterRead([]*device.Request{req})
	if req.Succeeded {
		pg = req.Buf
	}
	off := index * 8
	for i := 0; i < 8; i++ {
		pg[off+uint64(i)] = byte(entry >> (8 * uint(i)))
	}
	dev.Poke(table, pg)
}

func TestReadWithoutZeroPadReturnsOnlyGenuinelyFetchedLeadingBytes(t *testing.T) {
	dev := device.NewMemDevice()
	dtb := mem.Pa_t(0x11000)
	l3 := mem.Pa_t(0x12000)
	l2 := mem.Pa_t(0x13000)
	l1 := mem.Pa_t(0x14000)
	pageA := mem.Pa_t(0x15000)

	va := uint64(0x0000000030000000) // page-aligned
	mapOnePage(dev, dtb, l3, l2, l1, pageA, va)

	var full mem.Pg_t
	for i := range full {
		full[i] = 0x77
	}
	dev.Poke(pageA, full)

	sc := scatter.New(dev, cache.NewPhysCache(8, 4))
	m := mmu.New(mmu.VariantA, sc, cache.NewTLBCache(8, 4))
	sp := &Space{Dtb: dtb, MMU: m, SC: sc}

	// buf spans the mapped page plus an entirely unmapped second page.
	buf := make([]byte, 2*mem.PGSIZE)
	n, code := sp.Read(va, buf, false)

	assert.NotEqual(t, vmmerr.Ok, code)
	assert.Equal(t, mem.PGSIZE, n, "must report exactly page_size bytes as valid")
	for i := 0; i < mem.PGSIZE; i++ {
		assert.EqualValues(t, 0x77, buf[i], "the leading page must actually have been fetched, not left zero")
	}
}

func TestWriteTruncatesAtFirstUnwritablePage(t *testing.T) {
	dev := device.NewMemDevice()
	dtb := mem.Pa_t(0x8000)
	l3 := mem.Pa_t(0x9000)
	l2 := mem.Pa_t(0xA000)
	l1 := mem.Pa_t(0xB000)
	mapped := mem.Pa_t(0xC000)
	va := uint64(0x0000000020000000) + uint64(mem.PGSIZE) - 4 // last 4 bytes of the mapped page

	mapOnePage(dev, dtb, l3, l2, l1, mapped, va&^uint64(mem.PGOFFSET))
	dev.Poke(mapped, mem.Pg_t{})

	sc := scatter.New(dev, cache.NewPhysCache(8, 4))
	m := mmu.New(mmu.VariantA, sc, cache.NewTLBCache(8, 4))
	sp := &Space{Dtb: dtb, MMU: m, SC: sc}

	// write spans the last 4 bytes of the mapped page plus 4 bytes of an
	// entirely unmapped next page
	n, _ := sp.Write(va, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, 4, n, "write must stop at the boundary of the unmapped page, not spill past it")
}
