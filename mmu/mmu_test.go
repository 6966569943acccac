package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/cache"
	"vmmcore/device"
	"vmmcore/mem"
	"vmmcore/scatter"
	"vmmcore/vmmerr"
)

// putEntry64 pokes an 8-byte entry into table at index, preserving any
// entries already poked into that same table page.
func putEntry64(dev *device.MemDevice, table mem.Pa_t, index uint64, entry uint64) {
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

// buildVariantAMapping wires a single present 4KiB leaf mapping va->pa
// through a fresh 4-level page table rooted at dtb, using one table page
// per level (reused across calls sharing the same dtb).
func buildVariantAMapping(dev *device.MemDevice, dtb, l3, l2, l1, pa mem.Pa_t, va uint64) {
	idx4 := (va >> 39) & 0x1ff
	idx3 := (va >> 30) & 0x1ff
	idx2 := (va >> 21) & 0x1ff
	idx1 := (va >> 12) & 0x1ff

	putEntry64(dev, dtb, idx4, uint64(l3)|ptePresent)
	putEntry64(dev, l3, idx3, uint64(l2)|ptePresent)
	putEntry64(dev, l2, idx2, uint64(l1)|ptePresent)
	putEntry64(dev, l1, idx1, uint64(pa)|ptePresent)
}

func newTestMMU(dev *device.MemDevice, v Variant) *MMU {
	phys := cache.NewPhysCache(8, 4)
	tlb := cache.NewTLBCache(8, 4)
	sc := scatter.New(dev, phys)
	return New(v, sc, tlb)
}

func TestTranslateAResolves4KPage(t *testing.T) {
	dev := device.NewMemDevice()
	dtb := mem.Pa_t(0x1000)
	l3 := mem.Pa_t(0x2000)
	l2 := mem.Pa_t(0x3000)
	l1 := mem.Pa_t(0x4000)
	leaf := mem.Pa_t(0x5000)
	va := uint64(0x0000000012345000)

	buildVariantAMapping(dev, dtb, l3, l2, l1, leaf, va)

	m := newTestMMU(dev, VariantA)
	tr, code := m.Translate(dtb, va|0x34)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, leaf|0x34, tr.Phys)
	assert.EqualValues(t, mem.PGSIZE, tr.PageSize)
}

func TestTranslateIsPureAndRepeatable(t *testing.T) {
	dev := device.NewMemDevice()
	dtb := mem.Pa_t(0x10000)
	l3 := mem.Pa_t(0x20000)
	l2 := mem.Pa_t(0x30000)
	l1 := mem.Pa_t(0x40000)
	leaf := mem.Pa_t(0x50000)
	va := uint64(0x0000000055556000)
	buildVariantAMapping(dev, dtb, l3, l2, l1, leaf, va)

	m := newTestMMU(dev, VariantA)
	tr1, code1 := m.Translate(dtb, va)
	tr2, code2 := m.Translate(dtb, va)
	assert.Equal(t, code1, code2)
	assert.Equal(t, tr1, tr2)
}

func TestTranslateReportsNotPresentForUnmappedAddress(t *testing.T) {
	dev := device.NewMemDevice()
	dtb := mem.Pa_t(0x60000)
	dev.Poke(dtb, mem.Pg_t{}) // present DTB page, but every entry is zero

	m := newTestMMU(dev, VariantA)
	_, code := m.Translate(dtb, 0x1000)
	assert.Equal(t, vmmerr.ENotPresent, code)
}
