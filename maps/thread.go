// Thread map builder (spec.md §3 "Thread... analogous, with domain-
// specific fields").
package maps

import (
	"github.com/samber/lo"

	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// ThreadResult is the cached object for the "thread" kind.
type ThreadResult struct {
	Entries []ThreadEntry
}

var threadStates = []string{"Initialized", "Ready", "Running", "Standby", "Terminated", "Waiting", "Transition", "DeferredReady"}

// BuildThread walks a process's ThreadListHead (spec.md §4.11: "_ETHREAD"),
// extracting TID, start address, state, and priority from each node.
func BuildThread(sp *vspace.Space, sym symbol.Handle, threadListHeadVA uint64) (*ThreadResult, vmmerr.Code) {
	linksOff, ok1 := sym.FieldOffset("_ETHREAD", "ThreadListEntry")
	tidOff, ok2 := sym.FieldOffset("_ETHREAD", "Cid.UniqueThread")
	startOff, ok3 := sym.FieldOffset("_ETHREAD", "StartAddress")
	stateOff, ok4 := sym.FieldOffset("_KTHREAD", "State")
	prioOff, ok5 := sym.FieldOffset("_KTHREAD", "Priority")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, vmmerr.ENotFound
	}

	nodes := walkList(sp, threadListHeadVA, linksOff, 1<<16)
	entries := lo.FilterMap(nodes, func(node uint64, _ int) (ThreadEntry, bool) {
		tid, ok := readUint64(sp, node+tidOff)
		if !ok {
			return ThreadEntry{}, false
		}
		start, _ := readUint64(sp, node+startOff)
		stateRaw, _ := readUint32(sp, node+stateOff)
		prio, _ := readUint32(sp, node+prioOff)
		state := "Unknown"
		if int(stateRaw) < len(threadStates) {
			state = threadStates[stateRaw]
		}
		return ThreadEntry{TID: uint32(tid), StartAddr: start, State: state, Priority: int(prio)}, true
	})
	return &ThreadResult{Entries: entries}, vmmerr.Ok
}
