// Package maps implements the C13 virtual map builders (spec.md §4.11):
// one builder per kernel-object kind (PTE, VAD, MODULE, THREAD, HANDLE,
// NET, HEAP, SERVICE, USER, POOL), each validating every pointer against
// the owning process's address space before dereferencing, and each
// returning an immutable entry slice plus a shared string pool.
//
// Grounded on spec.md §4.11's own description of the builder contract,
// since the teacher schedules its own processes and never reconstructs
// someone else's kernel objects from a memory image; the per-kind
// generation-fenced caching these builders sit on top of is
// vmmcore/proc.Process.GetCache/SetCache/InvalidateKind, and cross-thread
// build deduplication is vmmcore/proc.Table.BuildOnce.
package maps

import "sync"

// StringPool is the "multi-text string pool" spec.md §4.11 pairs with
// every builder's entry slice: an append-only table of decoded strings
// (paths, names) so entries can carry a small index instead of duplicating
// long UTF-16-decoded paths per entry.
type StringPool struct {
	mu   sync.Mutex
	strs []string
}

// NewStringPool creates an empty pool.
func NewStringPool() *StringPool { return &StringPool{} }

// Add appends s and returns its index.
func (p *StringPool) Add(s string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strs = append(p.strs, s)
	return len(p.strs) - 1
}

// Get returns the string at idx, or "" if out of range.
func (p *StringPool) Get(idx int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 || idx >= len(p.strs) {
		return ""
	}
	return p.strs[idx]
}

// Len reports how many strings are pooled.
func (p *StringPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.strs)
}
