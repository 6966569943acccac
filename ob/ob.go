// Package ob implements the C8 object manager (spec.md §4.7): a uniform
// reference-counted allocation header carried by every shared heap object
// (process, module, thread, handle map entries), plus intrusive weak
// containers (Map, Set, StrMap) that hold references without creating
// ownership cycles.
//
// Grounded on biscuit/src/hashtable/hashtable.go as the backing store for
// the containers (kept nearly verbatim, see DESIGN.md), and on spec.md
// §3/§4.7's own description of the OB header (magic1/magic2/tag/size/
// cleanup) — the teacher has no direct analog of a refcounted handle-owned
// object header, since biscuit's Go objects are garbage-collected.
package ob

import (
	"sync/atomic"

	"vmmcore/vmmerr"
)

const (
	magic1 = 0xDEADB10C
	magic2 = 0xC0FFEE00
)

// Cleanup is invoked exactly once, when an object's reference count drops
// to zero.
type Cleanup func(obj interface{})

// Header is the reference-counted allocation header every shared heap
// object embeds by value. Invariant (spec.md §3): magic1 ∧ magic2 ∧ valid
// tag ⇒ deref is safe; callers that hold a Header with refcount > 0 may
// safely read through it.
type Header struct {
	m1      uint32
	m2      uint32
	tag     [4]byte
	size    int
	refs    int32
	cleanup Cleanup
	self    interface{}
}

// Alloc initializes h with an initial reference count of 1 (spec.md
// "alloc(handle, tag, size, cleanup_cb) -> obj with refcount 1"). self is
// the object the header is embedded in, passed to cleanup on the final
// decref.
func Alloc(h *Header, tag string, size int, cleanup Cleanup, self interface{}) {
	var t [4]byte
	copy(t[:], tag)
	*h = Header{m1: magic1, m2: magic2, tag: t, size: size, refs: 1, cleanup: cleanup, self: self}
}

// Valid reports whether h carries intact magic values — a corrupted or
// zero-value Header fails this check rather than panicking, since spec.md
// §7 says memory-path failures should degrade, not crash.
func (h *Header) Valid() bool { return h.m1 == magic1 && h.m2 == magic2 }

// Tag returns the object's 4-character type tag.
func (h *Header) Tag() string { return string(h.tag[:]) }

// Size returns the object's declared size in bytes.
func (h *Header) Size() int { return h.size }

// Refs returns the current reference count.
func (h *Header) Refs() int32 { return atomic.LoadInt32(&h.refs) }

// Incref atomically bumps the reference count. Returns vmmerr.EInval if
// called on an already-freed (refcount already zero) or invalid header.
func (h *Header) Incref() vmmerr.Code {
	if !h.Valid() {
		return vmmerr.EInval
	}
	for {
		old := atomic.LoadInt32(&h.refs)
		if old <= 0 {
			return vmmerr.EInval
		}
		if atomic.CompareAndSwapInt32(&h.refs, old, old+1) {
			return vmmerr.Ok
		}
	}
}

// Decref atomically drops the reference count, firing cleanup exactly
// once when it reaches zero (spec.md §8.3: decref is called
// incref_count+1 times over the object's life; the final call fires
// cleanup).
func (h *Header) Decref() {
	if !h.Valid() {
		return
	}
	if atomic.AddInt32(&h.refs, -1) == 0 {
		h.m1, h.m2 = 0, 0
		if h.cleanup != nil {
			h.cleanup(h.self)
		}
	}
}
