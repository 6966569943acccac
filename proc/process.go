// Package proc implements the C7 process table (spec.md §4.6): a
// reference-counted, snapshotted map of discovered processes with a
// three-tier refresh pipeline (fast/medium/slow).
//
// Grounded on biscuit/src/hashtable/hashtable.go for the table's backing
// store (via ob.Map) and on spec.md §3/§4.6's own process-identity and
// cache-invalidation rules, since the teacher (a kernel that schedules
// its own processes) has no analog of "reconstruct a process object by
// reading someone else's memory and keep it refreshed".
package proc

import (
	"sync"
	"time"

	"vmmcore/accnt"
	"vmmcore/mem"
	"vmmcore/ob"
)

// State is a process's liveness as last observed in the `_EPROCESS` list.
type State int

const (
	Live State = iota
	Terminated
)

// Process is one discovered guest process (spec.md §3 "Process"). Header
// gives it the OB refcounting discipline every shared heap object carries;
// a holder may use a Process past a refresh (spec.md §5 "Resource
// sharing").
type Process struct {
	ob.Header

	Pid  int32
	Ppid int32

	ShortName string // 15-byte kernel short name, NUL-truncated
	LongPath  string

	Dtb     mem.Pa_t // directory-table-base
	UserDtb mem.Pa_t // separate user-mode DTB, 0 if none
	IsUser  bool

	// OS-specific block (spec.md §3).
	EprocessVA uint64 // stable identity across refreshes
	PebVA      uint64
	Wow64      bool
	TokenSID   string
	SessionID  int
	Integrity  int

	Usage accnt.Usage

	mu     sync.RWMutex
	state  State
	fences map[string]int64 // per-kind generation fence: "module", "vad", "thread", "handle", "heap"
	caches map[string]cacheEntry
}

type cacheEntry struct {
	obj interface{}
	gen int64
}

// New allocates a Process with refcount 1 (spec.md §4.7 "alloc... with
// refcount 1").
func New(pid, ppid int32, eprocessVA uint64) *Process {
	p := &Process{
		Pid: pid, Ppid: ppid, EprocessVA: eprocessVA,
		caches: make(map[string]cacheEntry),
		fences: make(map[string]int64),
	}
	ob.Alloc(&p.Header, "PROC", int(unsafeSizeofProcess), nil, p)
	return p
}

const unsafeSizeofProcess = 256 // approximate, for OB accounting/diagnostics only

// State returns the process's current liveness.
func (p *Process) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetTerminated marks the process terminated (spec.md §3 invariant: "a
// process with state != live never mutates further").
func (p *Process) SetTerminated(now time.Time) {
	p.mu.Lock()
	p.state = Terminated
	p.mu.Unlock()
	p.Usage.MarkTerminated(now)
}

// knownKinds lists every map kind a fence is tracked for, so
// InvalidateCaches (a full invalidation, used by the slow tier when a
// process's identity is otherwise preserved) can bump them all.
var knownKinds = []string{"module", "vad", "thread", "handle", "heap", "net", "pool", "service", "user"}

// InvalidateKind bumps the generation fence for one map kind, staling its
// cached build without touching any other kind (spec.md §4.6 fast tier
// touches thread/handle only; medium tier touches module/VAD only).
func (p *Process) InvalidateKind(kind string) {
	p.mu.Lock()
	p.fences[kind]++
	p.mu.Unlock()
}

// InvalidateCaches bumps every kind's fence, staling every lazily-built
// map (module/VAD/thread/handle/heap) without rebuilding any of them
// eagerly (spec.md §4.11: a rebuild happens lazily on next access, not on
// invalidation).
func (p *Process) InvalidateCaches() {
	p.mu.Lock()
	for _, k := range knownKinds {
		p.fences[k]++
	}
	p.mu.Unlock()
}

// GetCache returns the cached object for kind if it was built at kind's
// current generation fence (spec.md §4.11: "subsequent requests return
// the same object until invalidated by refresh").
func (p *Process) GetCache(kind string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.caches[kind]
	if !ok || e.gen != p.fences[kind] {
		return nil, false
	}
	return e.obj, true
}

// SetCache stores obj as the built value for kind at kind's current
// generation fence.
func (p *Process) SetCache(kind string, obj interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caches[kind] = cacheEntry{obj: obj, gen: p.fences[kind]}
}
