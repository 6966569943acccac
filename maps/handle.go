// Handle-table map builder (spec.md §3 "Handle... analogous, with
// domain-specific fields"). Not to be confused with vmmcore/handle's C11
// external Handle type — this HandleEntry is a row of the guest process's
// own open-handle table.
package maps

import (
	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// HandleResult is the cached object for the "handle" kind.
type HandleResult struct {
	Entries []HandleEntry
	Pool    *StringPool
}

// BuildHandle walks a flat handle-table page (spec.md §4.11's validated-
// pointer discipline applies per slot, not just per list node: a handle
// table is a simple array of fixed-size entries, one table page at a
// time).
func BuildHandle(sp *vspace.Space, sym symbol.Handle, tableVA uint64, slotCount int) (*HandleResult, vmmerr.Code) {
	entrySize, ok1 := sym.TypeSize("_HANDLE_TABLE_ENTRY")
	objOff, ok2 := sym.FieldOffset("_HANDLE_TABLE_ENTRY", "Object")
	accessOff, ok3 := sym.FieldOffset("_HANDLE_TABLE_ENTRY", "GrantedAccess")
	if !ok1 || !ok2 || !ok3 {
		return nil, vmmerr.ENotFound
	}

	pool := NewStringPool()
	var entries []HandleEntry
	for i := 0; i < slotCount; i++ {
		slotVA := tableVA + uint64(i)*entrySize
		obj, ok := readUint64(sp, slotVA+objOff)
		if !ok || obj == 0 {
			continue
		}
		access, _ := readUint32(sp, slotVA+accessOff)
		entries = append(entries, HandleEntry{
			Value:      obj,
			GrantedAcc: access,
			TypeIdx:    -1,
			NameIdx:    -1,
		})
	}
	return &HandleResult{Entries: entries, Pool: pool}, vmmerr.Ok
}
