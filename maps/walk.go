package maps

import (
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// walkList follows a doubly linked kernel list (LIST_ENTRY-style: a Flink
// pointer at headVA+flinkOff pointing at the next node's own list-entry
// field) starting from head, returning each node's VA in order. It stops
// at head (full circle), on a translation failure, or after maxNodes —
// every pointer is validated by the read itself (spec.md §4.11: "validate
// every pointer against the process's address space... before
// dereferencing").
func walkList(sp *vspace.Space, head uint64, flinkOff uint64, maxNodes int) []uint64 {
	var out []uint64
	cur := head
	var buf [8]byte
	for i := 0; i < maxNodes; i++ {
		n, code := sp.Read(cur+flinkOff, buf[:], false)
		if code != vmmerr.Ok || n != 8 {
			break
		}
		next := leUint64(buf[:])
		if next == 0 || next == head {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leUint32(b []byte) uint32 {
	var v uint32
	for i := 3; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

// readUint64 reads one validated 8-byte little-endian value at va.
func readUint64(sp *vspace.Space, va uint64) (uint64, bool) {
	var buf [8]byte
	n, code := sp.Read(va, buf[:], false)
	if code != vmmerr.Ok || n != 8 {
		return 0, false
	}
	return leUint64(buf[:]), true
}

// readUint32 reads one validated 4-byte little-endian value at va.
func readUint32(sp *vspace.Space, va uint64) (uint32, bool) {
	var buf [4]byte
	n, code := sp.Read(va, buf[:], false)
	if code != vmmerr.Ok || n != 4 {
		return 0, false
	}
	return leUint32(buf[:]), true
}
