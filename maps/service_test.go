package maps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/symbol"
	"vmmcore/vmmerr"
)

func TestBuildServiceDecodesOneRecordAndSkipsUnnamedOne(t *testing.T) {
	sp, va0 := newWalkSpace()
	head := va0
	node1 := va0 + 0x100
	node2 := va0 + 0x200

	const linksOff = 0x00
	const nameOff = 0x10
	const displayOff = 0x20
	const stateOff = 0x30
	const pidOff = 0x34

	putFlink(sp, head, linksOff, node1)
	putFlink(sp, node1, linksOff, node2)
	putFlink(sp, node2, linksOff, head)

	writeUnicodeString(sp, node1+nameOff, va0+0x300, "wuauserv")
	writeUnicodeString(sp, node1+displayOff, va0+0x340, "Windows Update")
	writeU32(sp, node1+stateOff, 3) // Running
	writeU32(sp, node1+pidOff, 1234)

	// node2 deliberately left with no ServiceName buffer (zero header),
	// so readUnicodeString reports "" and BuildService must skip it.

	sym := symbol.NewTable()
	sym.SetFieldOffset("_SERVICE_RECORD", "ServiceList", linksOff)
	sym.SetFieldOffset("_SERVICE_RECORD", "ServiceName", nameOff)
	sym.SetFieldOffset("_SERVICE_RECORD", "DisplayName", displayOff)
	sym.SetFieldOffset("_SERVICE_RECORD", "CurrentState", stateOff)
	sym.SetFieldOffset("_SERVICE_RECORD", "ProcessId", pidOff)

	res, code := BuildService(sp, sym, head)
	assert.Equal(t, vmmerr.Ok, code)
	if assert.Len(t, res.Entries, 1) {
		e := res.Entries[0]
		assert.Equal(t, "wuauserv", res.Pool.Get(e.NameIdx))
		assert.Equal(t, "Windows Update", res.Pool.Get(e.DisplayIdx))
		assert.Equal(t, "Running", e.State)
		assert.EqualValues(t, 1234, e.Pid)
	}
}
