// Package search implements the C12 asynchronous bounded virtual-address-
// space scanner (spec.md §4.8/§4.9 "Asynchronous search example") as a
// plugin.Plugin mounted per-process under "search". A write to search.txt
// commits a pattern and queues a worker on the shared workpool.Pool; reads
// of status.txt/result.txt observe progress without blocking the writer.
//
// Grounded on original_source/vmm/m_proc_search.c's writable-control-file
// shape (search.txt/status.txt/result.txt/reset.txt, plus the separately
// writable align.txt/addr-min.txt/addr-max.txt/search-skip-bitmask.txt
// spec.md's distillation folds into constructor parameters — kept here as
// first-class files per SPEC_FULL.md §4) and on vmmcore/vspace for the
// actual page-at-a-time read loop.
package search

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"vmmcore/mem"
	"vmmcore/plugin"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
	"vmmcore/workpool"
)

// Status is a search job's lifecycle state (spec.md §4.9 "status.txt
// reports a structured status").
type Status int

const (
	NotStarted Status = iota
	Active
	Completed
)

func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Completed:
		return "COMPLETED"
	default:
		return "NOT_STARTED"
	}
}

// Context is one process's search job: the committed pattern plus the
// constraint files' values, and the result vector once completed. Each
// committed search gets a fresh uuid in ID; a worker whose search has since
// been replaced (reset.txt followed by a new search.txt) drops its results
// instead of publishing them into the newer search.
type Context struct {
	ID uuid.UUID

	mu      sync.Mutex
	pattern []byte
	align   uint64
	addrMin uint64
	addrMax uint64
	skip    []byte // skip-mask: skip[i]!=0 means pattern byte i is a wildcard

	status  int32 // atomic Status
	abort   int32 // atomic bool
	results []uint64
}

func newContext() *Context {
	return &Context{ID: uuid.New(), align: 1}
}

func (c *Context) Status() Status { return Status(atomic.LoadInt32(&c.status)) }

func (c *Context) abortRequested() bool { return atomic.LoadInt32(&c.abort) != 0 }

// Plugin dispatches the per-process search control files. It is mounted
// with plugin.ScopeProcess only (spec.md "only one search per process is
// active at a time").
type Plugin struct {
	mu   sync.Mutex
	jobs map[int]*Context

	pool     *workpool.Pool
	spaceFor func(pid int) (*vspace.Space, bool)
}

// New creates a search plugin. spaceFor resolves a pid to the vspace.Space
// a job should scan; pool runs jobs in the background.
func New(pool *workpool.Pool, spaceFor func(pid int) (*vspace.Space, bool)) *Plugin {
	return &Plugin{jobs: make(map[int]*Context), pool: pool, spaceFor: spaceFor}
}

func (p *Plugin) ctxFor(pid int) *Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.jobs[pid]
	if !ok {
		c = newContext()
		p.jobs[pid] = c
	}
	return c
}

const readme = `search plugin control files:
  align.txt                write hex alignment, must be a power of two
  addr-min.txt             write hex minimum virtual address (rounded down to a page)
  addr-max.txt             write hex maximum virtual address (rounded up to page-1)
  search-skip-bitmask.txt  write hex skip-mask, 1 byte per pattern byte, non-zero = wildcard
  search.txt               write hex pattern bytes; commits and starts the search
  status.txt               read: NOT_STARTED | ACTIVE | COMPLETED
  result.txt               read: newline-separated hex hit addresses, valid only when COMPLETED
  reset.txt                write "1" to abort and drop the current job
`

var files = []string{"readme.txt", "align.txt", "addr-min.txt", "addr-max.txt",
	"search-skip-bitmask.txt", "search.txt", "status.txt", "result.txt", "reset.txt"}

func (p *Plugin) List(ctx *plugin.Context) ([]plugin.Entry, plugin.Status) {
	if len(ctx.SubPath) != 0 {
		return nil, plugin.FileInvalid
	}
	entries := make([]plugin.Entry, 0, len(files))
	for _, name := range files {
		entries = append(entries, plugin.Entry{Name: name, Kind: plugin.KindFile})
	}
	return entries, plugin.Success
}

func (p *Plugin) Read(ctx *plugin.Context, buf []byte, offset int64) (int, plugin.Status) {
	if !ctx.HasPid {
		return 0, plugin.FileInvalid
	}
	j := p.ctxFor(ctx.Pid)
	name := string(ctx.SubPath)

	var out []byte
	switch name {
	case "readme.txt":
		out = []byte(readme)
	case "status.txt":
		out = []byte(j.Status().String() + "\n")
	case "result.txt":
		if j.Status() != Completed {
			return 0, plugin.EndOfFile
		}
		j.mu.Lock()
		var b strings.Builder
		for _, hit := range j.results {
			fmt.Fprintf(&b, "%x\n", hit)
		}
		j.mu.Unlock()
		out = []byte(b.String())
	default:
		return 0, plugin.FileInvalid
	}

	if offset >= int64(len(out)) {
		return 0, plugin.EndOfFile
	}
	n := copy(buf, out[offset:])
	return n, plugin.Success
}

func (p *Plugin) Write(ctx *plugin.Context, buf []byte, offset int64) (int, plugin.Status) {
	if !ctx.HasPid {
		return 0, plugin.FileInvalid
	}
	j := p.ctxFor(ctx.Pid)
	name := string(ctx.SubPath)
	text := strings.TrimSpace(string(buf))

	switch name {
	case "align.txt":
		v, ok := parseHex(text)
		if !ok || v == 0 || v&(v-1) != 0 {
			return 0, plugin.Unsuccessful
		}
		j.mu.Lock()
		j.align = v
		j.mu.Unlock()
	case "addr-min.txt":
		v, ok := parseHex(text)
		if !ok {
			return 0, plugin.Unsuccessful
		}
		j.mu.Lock()
		j.addrMin = uint64(mem.PageOf(mem.Pa_t(v)))
		j.mu.Unlock()
	case "addr-max.txt":
		v, ok := parseHex(text)
		if !ok {
			return 0, plugin.Unsuccessful
		}
		j.mu.Lock()
		j.addrMax = uint64(mem.PageOf(mem.Pa_t(v))) + mem.PGSIZE - 1
		j.mu.Unlock()
	case "search-skip-bitmask.txt":
		skip, ok := parseHexBytes(text)
		if !ok {
			return 0, plugin.Unsuccessful
		}
		j.mu.Lock()
		j.skip = skip
		j.mu.Unlock()
	case "search.txt":
		pattern, ok := parseHexBytes(text)
		if !ok || len(pattern) == 0 {
			return 0, plugin.Unsuccessful
		}
		if !atomic.CompareAndSwapInt32(&j.status, int32(NotStarted), int32(Active)) {
			// spec.md: "a second write while active is ignored" — report
			// success with no effect, same as the teacher's idempotent
			// re-arm semantics elsewhere.
			return len(buf), plugin.Success
		}
		j.mu.Lock()
		j.pattern = pattern
		j.abort = 0
		j.results = nil
		j.mu.Unlock()
		p.start(ctx.Pid, j)
	case "reset.txt":
		if text != "1" && text != "1\n" {
			return 0, plugin.Unsuccessful
		}
		atomic.StoreInt32(&j.abort, 1)
		atomic.StoreInt32(&j.status, int32(NotStarted))
	default:
		return 0, plugin.FileInvalid
	}
	return len(buf), plugin.Success
}

// start queues the worker that calls virtual_search equivalent against the
// resolved vspace.Space (spec.md §4.9: "queues a worker... and returns
// immediately").
func (p *Plugin) start(pid int, j *Context) {
	sp, ok := p.spaceFor(pid)
	if !ok {
		atomic.StoreInt32(&j.status, int32(NotStarted))
		return
	}
	j.mu.Lock()
	j.ID = uuid.New()
	id := j.ID
	j.mu.Unlock()
	p.pool.Submit(func() {
		hits := virtualSearch(sp, j, p.pool)
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.ID != id {
			return
		}
		j.results = hits
		if !j.abortRequested() {
			atomic.StoreInt32(&j.status, int32(Completed))
		}
	})
}

// virtualSearch scans [addrMin, addrMax] one page at a time, checking the
// job's own abort flag and the pool's shared abort flag at each page
// boundary (spec.md §4.10 "cancellation... checks the handle abort flag and
// its task-local abort flag at page... granularity").
func virtualSearch(sp *vspace.Space, j *Context, pool *workpool.Pool) []uint64 {
	j.mu.Lock()
	pattern := append([]byte(nil), j.pattern...)
	skip := append([]byte(nil), j.skip...)
	align := j.align
	if align == 0 {
		align = 1
	}
	addrMin, addrMax := j.addrMin, j.addrMax
	if addrMax == 0 {
		addrMax = ^uint64(0)
	}
	j.mu.Unlock()

	var hits []uint64
	page := make([]byte, mem.PGSIZE)
	for va := uint64(mem.PageOf(mem.Pa_t(addrMin))); va <= addrMax; va += mem.PGSIZE {
		if j.abortRequested() || pool.Aborted() {
			break
		}
		n, code := sp.Read(va, page, false)
		if code != vmmerr.Ok || n == 0 {
			continue
		}
		for off := 0; off+len(pattern) <= n; off++ {
			addr := va + uint64(off)
			if align > 1 && addr%align != 0 {
				continue
			}
			if matches(page[off:off+len(pattern)], pattern, skip) {
				hits = append(hits, addr)
			}
		}
		if va > ^uint64(0)-mem.PGSIZE {
			break // avoid wraparound at the top of the address space
		}
	}
	return hits
}

func matches(window, pattern, skip []byte) bool {
	for i, want := range pattern {
		if i < len(skip) && skip[i] != 0 {
			continue
		}
		if window[i] != want {
			return false
		}
	}
	return true
}

func parseHex(s string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	return v, err == nil
}

func parseHexBytes(s string) ([]byte, bool) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out, err := hex.DecodeString(s)
	return out, err == nil
}
