package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRoundTripsOffsetVAAndFieldOffset(t *testing.T) {
	tbl := NewTable()
	tbl.SetOffset("PsActiveProcessHead", 0x123)
	tbl.SetVA("PsActiveProcessHead", 0xfffff8000100123)
	tbl.SetTypeSize("_EPROCESS", 0x500)
	tbl.SetFieldOffset("_EPROCESS", "UniqueProcessId", 0x2e0)

	off, ok := tbl.Offset("PsActiveProcessHead")
	assert.True(t, ok)
	assert.EqualValues(t, 0x123, off)

	va, ok := tbl.VA("PsActiveProcessHead")
	assert.True(t, ok)
	assert.EqualValues(t, 0xfffff8000100123, va)

	size, ok := tbl.TypeSize("_EPROCESS")
	assert.True(t, ok)
	assert.EqualValues(t, 0x500, size)

	fo, ok := tbl.FieldOffset("_EPROCESS", "UniqueProcessId")
	assert.True(t, ok)
	assert.EqualValues(t, 0x2e0, fo)
}

func TestUnknownSymbolLookupsMiss(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Offset("nonexistent")
	assert.False(t, ok)
	_, ok = tbl.FieldOffset("_EPROCESS", "NoSuchField")
	assert.False(t, ok)
}

func TestNearestFindsGreatestVANotExceedingOffset(t *testing.T) {
	tbl := NewTable()
	tbl.SetVA("A", 0x1000)
	tbl.SetVA("B", 0x2000)
	tbl.SetVA("C", 0x4000)

	name, disp, ok := tbl.Nearest(0x2500)
	assert.True(t, ok)
	assert.Equal(t, "B", name)
	assert.EqualValues(t, 0x500, disp)
}

func TestNearestMissesBeforeEverySymbol(t *testing.T) {
	tbl := NewTable()
	tbl.SetVA("A", 0x1000)
	_, _, ok := tbl.Nearest(0x500)
	assert.False(t, ok)
}
