// Logged-on-user map builder (spec.md §3 "user... analogous, with
// domain-specific fields"; SPEC_FULL.md §4's InfoDB well-known-SID helper
// is first-class here, per original_source/vmm/oscompatibility.c).
package maps

import (
	"vmmcore/infodb"
	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// UserResult is the cached object for the "user" kind.
type UserResult struct {
	Entries []UserEntry
	Pool    *StringPool
}

// BuildUser walks the session list, reading each session's token SID
// string and resolving it against InfoDB's well-known SID table when the
// SID is one of the built-in accounts.
func BuildUser(sp *vspace.Space, sym symbol.Handle, db infodb.DB, sessionListHeadVA uint64) (*UserResult, vmmerr.Code) {
	linksOff, ok1 := sym.FieldOffset("_MM_SESSION_SPACE", "SessionList")
	sidOff, ok2 := sym.FieldOffset("_MM_SESSION_SPACE", "TokenSidString")
	sessionIDOff, ok3 := sym.FieldOffset("_MM_SESSION_SPACE", "SessionId")
	if !ok1 || !ok2 || !ok3 {
		return nil, vmmerr.ENotFound
	}

	pool := NewStringPool()
	var entries []UserEntry
	for _, node := range walkList(sp, sessionListHeadVA, linksOff, 4096) {
		sid := readUnicodeString(sp, node+sidOff)
		if sid == "" {
			continue
		}
		sessionID, _ := readUint32(sp, node+sessionIDOff)
		name, domain := sid, ""
		if db != nil {
			if u, d, ok := db.WellKnownSID(sid); ok {
				name, domain = u, d
			}
		}
		entries = append(entries, UserEntry{
			SIDIdx:    pool.Add(sid),
			NameIdx:   pool.Add(name),
			DomainIdx: pool.Add(domain),
			SessionID: int(sessionID),
		})
	}
	return &UserResult{Entries: entries, Pool: pool}, vmmerr.Ok
}
