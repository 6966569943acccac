package maps

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/symbol"
	"vmmcore/vmmerr"
)

func TestBuildThreadDecodesStateAndPriorityFromTwoNodes(t *testing.T) {
	sp, va0 := newWalkSpace()
	head := va0
	node1 := va0 + 0x100
	node2 := va0 + 0x200

	const linksOff = 0x00
	const tidOff = 0x10
	const startOff = 0x18
	const stateOff = 0x20
	const prioOff = 0x24

	putFlink(sp, head, linksOff, node1)
	putFlink(sp, node1, linksOff, node2)
	putFlink(sp, node2, linksOff, head)

	writeU64(sp, node1+tidOff, 4321)
	writeU64(sp, node1+startOff, 0x00007ff600005000)
	writeU32(sp, node1+stateOff, 2) // "Running"
	writeU32(sp, node1+prioOff, 8)

	writeU64(sp, node2+tidOff, 4322)
	writeU64(sp, node2+startOff, 0x00007ff600006000)
	writeU32(sp, node2+stateOff, 99) // out of range -> "Unknown"
	writeU32(sp, node2+prioOff, 1)

	sym := symbol.NewTable()
	sym.SetFieldOffset("_ETHREAD", "ThreadListEntry", linksOff)
	sym.SetFieldOffset("_ETHREAD", "Cid.UniqueThread", tidOff)
	sym.SetFieldOffset("_ETHREAD", "StartAddress", startOff)
	sym.SetFieldOffset("_KTHREAD", "State", stateOff)
	sym.SetFieldOffset("_KTHREAD", "Priority", prioOff)

	res, code := BuildThread(sp, sym, head)
	assert.Equal(t, vmmerr.Ok, code)
	if assert.Len(t, res.Entries, 2) {
		assert.Equal(t, ThreadEntry{TID: 4321, StartAddr: 0x00007ff600005000, State: "Running", Priority: 8}, res.Entries[0])
		assert.Equal(t, "Unknown", res.Entries[1].State)
	}
}

func TestBuildThreadReportsNotFoundWhenSymbolsMissing(t *testing.T) {
	sp, va0 := newWalkSpace()
	sym := symbol.NewTable() // no field offsets registered

	_, code := BuildThread(sp, sym, va0)
	assert.Equal(t, vmmerr.ENotFound, code)
}

func writeU64(sp interface {
	Write(va uint64, buf []byte) (int, vmmerr.Code)
}, va, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	sp.Write(va, buf[:])
}

func writeU32(sp interface {
	Write(va uint64, buf []byte) (int, vmmerr.Code)
}, va uint64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	sp.Write(va, buf[:])
}
