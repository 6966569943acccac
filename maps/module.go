// Module map builder (spec.md §3/§4.11), walking the process's PEB loader
// list and decoding its UTF-16LE path/name fields.
package maps

import (
	"golang.org/x/text/encoding/unicode"

	"vmmcore/infodb"
	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

var utf16leDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// decodeUTF16LE decodes a UTF-16LE byte buffer into a Go string, trimming
// at the first embedded NUL pair (spec.md's long path/name fields are
// fixed-width UNICODE_STRING buffers).
func decodeUTF16LE(b []byte) string {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	out, err := utf16leDecoder.Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// ModuleResult is the cached object for the "module" kind.
type ModuleResult struct {
	Entries []ModuleEntry
	Pool    *StringPool
}

// BuildModule walks the loader's InLoadOrderModuleList (spec.md §4.11:
// "_LDR_DATA_TABLE_ENTRY"), decoding each entry's full path and base name,
// and looks up a well-known certificate subject for the module from
// InfoDB when available (SPEC_FULL.md §4's module/user InfoDB helpers).
func BuildModule(sp *vspace.Space, sym symbol.Handle, db infodb.DB, listHeadVA uint64) (*ModuleResult, vmmerr.Code) {
	linksOff, ok1 := sym.FieldOffset("_LDR_DATA_TABLE_ENTRY", "InLoadOrderLinks")
	baseOff, ok2 := sym.FieldOffset("_LDR_DATA_TABLE_ENTRY", "DllBase")
	sizeOff, ok3 := sym.FieldOffset("_LDR_DATA_TABLE_ENTRY", "SizeOfImage")
	entryOff, ok4 := sym.FieldOffset("_LDR_DATA_TABLE_ENTRY", "EntryPoint")
	fullOff, ok5 := sym.FieldOffset("_LDR_DATA_TABLE_ENTRY", "FullDllName")
	baseNameOff, ok6 := sym.FieldOffset("_LDR_DATA_TABLE_ENTRY", "BaseDllName")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, vmmerr.ENotFound
	}

	pool := NewStringPool()
	var entries []ModuleEntry
	for _, node := range walkList(sp, listHeadVA, linksOff, 4096) {
		base, ok := readUint64(sp, node+baseOff)
		if !ok || base == 0 {
			continue
		}
		size, _ := readUint64(sp, node+sizeOff)
		entry, _ := readUint64(sp, node+entryOff)

		fullPath := readUnicodeString(sp, node+fullOff)
		name := readUnicodeString(sp, node+baseNameOff)

		m := ModuleEntry{
			BaseVA:     base,
			Size:       size,
			EntryPoint: entry,
			PathIdx:    pool.Add(fullPath),
			NameIdx:    pool.Add(name),
			CertIdx:    -1,
		}
		if db != nil {
			if subject, ok := db.WellKnownCertThumbprint(name); ok {
				m.CertIdx = pool.Add(subject)
			}
		}
		entries = append(entries, m)
	}
	return &ModuleResult{Entries: entries, Pool: pool}, vmmerr.Ok
}

// readUnicodeString reads a UNICODE_STRING (2-byte Length, 2-byte
// MaximumLength, 4 pad bytes, 8-byte Buffer pointer on 64-bit) at va and
// decodes its buffer.
func readUnicodeString(sp *vspace.Space, va uint64) string {
	var hdr [16]byte
	n, code := sp.Read(va, hdr[:], false)
	if code != vmmerr.Ok || n != 16 {
		return ""
	}
	length := uint16(hdr[0]) | uint16(hdr[1])<<8
	bufVA := leUint64(hdr[8:16])
	if length == 0 || bufVA == 0 {
		return ""
	}
	if length > 4096 {
		length = 4096
	}
	buf := make([]byte, length)
	n, code = sp.Read(bufVA, buf, false)
	if code != vmmerr.Ok || n == 0 {
		return ""
	}
	return decodeUTF16LE(buf[:n])
}
