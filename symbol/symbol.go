// Package symbol is the external symbol-resolution contract spec.md §6
// names but leaves unimplemented ("symbol resolution (PDB/InfoDB, queried
// through a handle API)... out of scope"). C7 and C13 depend on it
// pervasively to turn "nt!PsActiveProcessHead" into a VA and an offset
// into a field name; this package defines the interface they call through
// and a small in-memory Table so the rest of the module can be built and
// tested against a stand-in without a real PDB backend.
package symbol

// Handle resolves symbols for one loaded module (spec.md §6 "Symbol
// handle... Given a module name... answer: symbol → offset, symbol → VA,
// offset → nearest-symbol-name + displacement, type → size, type + child
// name → offset").
type Handle interface {
	Offset(symbol string) (uint64, bool)
	VA(symbol string) (uint64, bool)
	Nearest(offset uint64) (name string, displacement uint64, ok bool)
	TypeSize(typeName string) (uint64, bool)
	FieldOffset(typeName, fieldName string) (uint64, bool)
}

// Table is a trivial in-memory Handle, populated directly rather than
// parsed from a PDB — a stand-in for the real backend spec.md places out
// of scope, sufficient for C7/C13 callers and their tests.
type Table struct {
	offsets     map[string]uint64
	vas         map[string]uint64
	typeSizes   map[string]uint64
	fieldOffset map[string]uint64
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{
		offsets:     make(map[string]uint64),
		vas:         make(map[string]uint64),
		typeSizes:   make(map[string]uint64),
		fieldOffset: make(map[string]uint64),
	}
}

func (t *Table) SetOffset(symbol string, off uint64) { t.offsets[symbol] = off }
func (t *Table) SetVA(symbol string, va uint64)       { t.vas[symbol] = va }
func (t *Table) SetTypeSize(typeName string, size uint64) { t.typeSizes[typeName] = size }
func (t *Table) SetFieldOffset(typeName, field string, off uint64) {
	t.fieldOffset[typeName+"."+field] = off
}

func (t *Table) Offset(symbol string) (uint64, bool) {
	v, ok := t.offsets[symbol]
	return v, ok
}

func (t *Table) VA(symbol string) (uint64, bool) {
	v, ok := t.vas[symbol]
	return v, ok
}

// Nearest finds the symbol with the greatest VA not exceeding offset. Used
// to attribute an unknown return address to "nearest exported symbol +
// displacement" the way a disassembler would.
func (t *Table) Nearest(offset uint64) (string, uint64, bool) {
	var best string
	var bestVA uint64
	found := false
	for name, va := range t.vas {
		if va <= offset && (!found || va > bestVA) {
			best, bestVA, found = name, va, true
		}
	}
	if !found {
		return "", 0, false
	}
	return best, offset - bestVA, true
}

func (t *Table) TypeSize(typeName string) (uint64, bool) {
	v, ok := t.typeSizes[typeName]
	return v, ok
}

func (t *Table) FieldOffset(typeName, fieldName string) (uint64, bool) {
	v, ok := t.fieldOffset[typeName+"."+fieldName]
	return v, ok
}
