package maps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/infodb"
	"vmmcore/symbol"
	"vmmcore/vmmerr"
)

func TestBuildUserResolvesWellKnownSIDToNameAndDomain(t *testing.T) {
	sp, va0 := newWalkSpace()
	head := va0
	node1 := va0 + 0x100

	const linksOff = 0x00
	const sidOff = 0x10
	const sessionIDOff = 0x20

	putFlink(sp, head, linksOff, node1)
	putFlink(sp, node1, linksOff, head)

	writeUnicodeString(sp, node1+sidOff, va0+0x300, "S-1-5-18")
	writeU32(sp, node1+sessionIDOff, 0)

	sym := symbol.NewTable()
	sym.SetFieldOffset("_MM_SESSION_SPACE", "SessionList", linksOff)
	sym.SetFieldOffset("_MM_SESSION_SPACE", "TokenSidString", sidOff)
	sym.SetFieldOffset("_MM_SESSION_SPACE", "SessionId", sessionIDOff)

	db := infodb.NewStatic()
	db.SetWellKnownSID("S-1-5-18", "SYSTEM", "NT AUTHORITY")

	res, code := BuildUser(sp, sym, db, head)
	assert.Equal(t, vmmerr.Ok, code)
	if assert.Len(t, res.Entries, 1) {
		e := res.Entries[0]
		assert.Equal(t, "S-1-5-18", res.Pool.Get(e.SIDIdx))
		assert.Equal(t, "SYSTEM", res.Pool.Get(e.NameIdx))
		assert.Equal(t, "NT AUTHORITY", res.Pool.Get(e.DomainIdx))
	}
}

func TestBuildUserFallsBackToSIDWhenNotWellKnown(t *testing.T) {
	sp, va0 := newWalkSpace()
	head := va0
	node1 := va0 + 0x100

	const linksOff = 0x00
	const sidOff = 0x10
	const sessionIDOff = 0x20

	putFlink(sp, head, linksOff, node1)
	putFlink(sp, node1, linksOff, head)
	writeUnicodeString(sp, node1+sidOff, va0+0x300, "S-1-5-21-111-222-333-1001")
	writeU32(sp, node1+sessionIDOff, 2)

	sym := symbol.NewTable()
	sym.SetFieldOffset("_MM_SESSION_SPACE", "SessionList", linksOff)
	sym.SetFieldOffset("_MM_SESSION_SPACE", "TokenSidString", sidOff)
	sym.SetFieldOffset("_MM_SESSION_SPACE", "SessionId", sessionIDOff)

	res, code := BuildUser(sp, sym, infodb.NewStatic(), head)
	assert.Equal(t, vmmerr.Ok, code)
	if assert.Len(t, res.Entries, 1) {
		e := res.Entries[0]
		assert.Equal(t, "S-1-5-21-111-222-333-1001", res.Pool.Get(e.NameIdx))
		assert.Equal(t, "", res.Pool.Get(e.DomainIdx))
		assert.Equal(t, 2, e.SessionID)
	}
}
