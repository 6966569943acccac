package proc

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Discovered is the raw per-process data the slow-tier discovery walk
// extracts from `_EPROCESS` (spec.md §4.6 "for each, extract PID, PPID,
// DTB, name, and VA").
type Discovered struct {
	Pid        int32
	Ppid       int32
	EprocessVA uint64
	PebVA      uint64
	ShortName  string
	LongPath   string
	Dtb        uint64
	UserDtb    uint64
	Wow64      bool
}

// Table is the C7 process table: a reader-writer-locked snapshot plus a
// per-process-per-map-kind build-dedup group (spec.md §5: "builders
// serialize per-process per-map-kind with a short lock so two threads do
// not rebuild the same map"), implemented with golang.org/x/sync/
// singleflight rather than a hand-rolled lock table.
type Table struct {
	mu       sync.RWMutex
	byPid    map[int32]*Process
	byEproc  map[uint64]*Process
	buildsf  singleflight.Group
	SlowPeriod time.Duration
}

// NewTable creates an empty table.
func NewTable(slowPeriod time.Duration) *Table {
	return &Table{
		byPid:      make(map[int32]*Process),
		byEproc:    make(map[uint64]*Process),
		SlowPeriod: slowPeriod,
	}
}

// Get returns the process for pid, increffing it for the caller (spec.md
// §4.6 "readers take a shared lock long enough to increment a process's
// reference count, then drop it").
func (t *Table) Get(pid int32) (*Process, bool) {
	t.mu.RLock()
	p, ok := t.byPid[pid]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if p.Incref() != 0 {
		return nil, false
	}
	return p, true
}

// Snapshot returns every process currently in the table, each increffed.
func (t *Table) Snapshot() []*Process {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Process, 0, len(t.byPid))
	for _, p := range t.byPid {
		if p.Incref() == 0 {
			out = append(out, p)
		}
	}
	return out
}

// BuildOnce runs build for (pid, kind) at most once concurrently,
// returning the same in-flight result to any caller that arrives while a
// build is running.
func (t *Table) BuildOnce(pid int32, kind string, build func() (interface{}, error)) (interface{}, error) {
	key := fmt.Sprintf("%d:%s", pid, kind)
	v, err, _ := t.buildsf.Do(key, build)
	return v, err
}

// SlowRefresh re-enumerates the process list (spec.md §4.6 slow tier):
// new processes are added, vanished ones are marked terminated, and
// processes terminated for at least one full slow-tier cycle are retired.
// Identity is preserved by matching EPROCESS VA first, then PID.
func (t *Table) SlowRefresh(discovered []Discovered, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[int32]bool, len(discovered))
	for _, d := range discovered {
		seen[d.Pid] = true

		existing, ok := t.byEproc[d.EprocessVA]
		if !ok {
			existing, ok = t.byPid[d.Pid]
		}
		if ok {
			// identity preserved: invalidate volatile caches, keep the
			// object (and every external reference to it) alive.
			existing.InvalidateCaches()
			continue
		}

		p := New(d.Pid, d.Ppid, d.EprocessVA)
		p.ShortName = d.ShortName
		p.LongPath = d.LongPath
		p.PebVA = d.PebVA
		p.Wow64 = d.Wow64
		p.Usage.Start(now)
		t.byPid[d.Pid] = p
		t.byEproc[d.EprocessVA] = p
	}

	var retire []int32
	for pid, p := range t.byPid {
		if seen[pid] {
			continue
		}
		if p.State() != Terminated {
			p.SetTerminated(now)
			continue
		}
		if p.Usage.ReadyToRetire(now, t.SlowPeriod) {
			retire = append(retire, pid)
		}
	}
	for _, pid := range retire {
		p := t.byPid[pid]
		delete(t.byPid, pid)
		delete(t.byEproc, p.EprocessVA)
		p.Decref()
	}
}

// MediumRefresh invalidates the module/VAD caches of every live process
// (spec.md §4.6 medium tier: "rebuild module/VAD caches for touched
// processes"). Actual rebuilding happens lazily on next access via
// BuildOnce.
func (t *Table) MediumRefresh() {
	for _, p := range t.Snapshot() {
		if p.State() == Live {
			p.InvalidateKind("module")
			p.InvalidateKind("vad")
		}
		p.Decref()
	}
}

// FastRefresh invalidates the thread/handle caches of every live process
// (spec.md §4.6 fast tier: "re-read thread list and handle table of live
// processes").
func (t *Table) FastRefresh() {
	for _, p := range t.Snapshot() {
		if p.State() == Live {
			p.InvalidateKind("thread")
			p.InvalidateKind("handle")
		}
		p.Decref()
	}
}
