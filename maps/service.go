// SCM service map builder (spec.md §3 "service... analogous, with
// domain-specific fields"). Unlike the other builders this one walks a
// system-wide list (the Service Control Manager's database) rather than
// per-process state, but is still cached per calling process via the same
// Cached helper so a process-scoped plugin path can serve it without a
// second registry.
package maps

import (
	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// ServiceResult is the cached object for the "service" kind.
type ServiceResult struct {
	Entries []ServiceEntry
	Pool    *StringPool
}

var serviceStates = []string{"Stopped", "StartPending", "StopPending", "Running", "ContinuePending", "PausePending", "Paused"}

// BuildService walks the SCM database's service record list.
func BuildService(sp *vspace.Space, sym symbol.Handle, listHeadVA uint64) (*ServiceResult, vmmerr.Code) {
	linksOff, ok1 := sym.FieldOffset("_SERVICE_RECORD", "ServiceList")
	nameOff, ok2 := sym.FieldOffset("_SERVICE_RECORD", "ServiceName")
	displayOff, ok3 := sym.FieldOffset("_SERVICE_RECORD", "DisplayName")
	stateOff, ok4 := sym.FieldOffset("_SERVICE_RECORD", "CurrentState")
	pidOff, ok5 := sym.FieldOffset("_SERVICE_RECORD", "ProcessId")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, vmmerr.ENotFound
	}

	pool := NewStringPool()
	var entries []ServiceEntry
	for _, node := range walkList(sp, listHeadVA, linksOff, 8192) {
		name := readUnicodeString(sp, node+nameOff)
		if name == "" {
			continue
		}
		display := readUnicodeString(sp, node+displayOff)
		stateRaw, _ := readUint32(sp, node+stateOff)
		pid, _ := readUint32(sp, node+pidOff)
		state := "Unknown"
		if int(stateRaw) < len(serviceStates) {
			state = serviceStates[stateRaw]
		}
		entries = append(entries, ServiceEntry{
			NameIdx:    pool.Add(name),
			DisplayIdx: pool.Add(display),
			State:      state,
			Pid:        int32(pid),
		})
	}
	return &ServiceResult{Entries: entries, Pool: pool}, vmmerr.Ok
}
