// Package handle implements the C11 top-level opaque context (spec.md
// §4.10/§3 "HANDLE"): a process-wide allow-list of at most 32 live
// handles, reserve/return reference counting around every exported entry
// point, and cooperative abort-driven shutdown.
//
// Grounded on spec.md §4.10's reserve/return and Close protocol directly —
// the teacher has no analog of an external opaque context with an
// allow-list, since biscuit's own callers are kernel-internal — using
// github.com/sasha-s/go-deadlock in place of sync.RWMutex for the master
// lock spec.md names explicitly ("one global reader-writer lock per
// handle"), per SPEC_FULL.md §3's lock-order-inversion detection rationale.
package handle

import (
	"sync/atomic"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"

	"vmmcore/cache"
	"vmmcore/config"
	"vmmcore/device"
	"vmmcore/logx"
	"vmmcore/plugin"
	"vmmcore/proc"
	"vmmcore/vmmerr"
	"vmmcore/workpool"
)

// registry is the process-wide allow-list every Handle is added to at
// Initialize and removed from at Close (spec.md §3 "External allocation
// registry... the only globals").
var registry = struct {
	mu      deadlock.RWMutex
	members map[*Handle]bool
}{members: make(map[*Handle]bool)}

// Handle is the top-level opaque context (spec.md §3 "HANDLE"). Every
// exported entry point begins with Reserve and ends with Return.
type Handle struct {
	master deadlock.RWMutex // spec.md §5 "one global reader-writer lock per handle"

	Device   device.Device
	Pool     *workpool.Pool
	Procs    *proc.Table
	Phys     *cache.PhysCache
	TLB      *cache.TLBCache
	Plugins  *plugin.Registry
	Config   *config.Registry
	Log      *logx.Logger

	magic uint64
	abort int32

	threadsExternal int64
	threadsInternal int64
}

const handleMagic = 0x564d4d434f524500 // "VMMCORE\0"

// MaxHandles is the allow-list capacity (spec.md §3 "≤32 handles").
const MaxHandles = 32

// Initialize constructs a Handle and adds it to the process-wide allow-
// list. Returns vmmerr.ENoMem if the allow-list is already full.
func Initialize(dev device.Device, pool *workpool.Pool, procs *proc.Table, phys *cache.PhysCache, tlb *cache.TLBCache, plugins *plugin.Registry, cfg *config.Registry, log *logx.Logger) (*Handle, vmmerr.Code) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if len(registry.members) >= MaxHandles {
		return nil, vmmerr.ENoMem
	}
	h := &Handle{
		Device: dev, Pool: pool, Procs: procs, Phys: phys, TLB: tlb,
		Plugins: plugins, Config: cfg, Log: log, magic: handleMagic,
	}
	registry.members[h] = true
	return h, vmmerr.Ok
}

// valid reports whether h is a live, unaborted, allow-listed handle.
func (h *Handle) valid() bool {
	if h == nil || h.magic != handleMagic || atomic.LoadInt32(&h.abort) != 0 {
		return false
	}
	registry.mu.RLock()
	ok := registry.members[h]
	registry.mu.RUnlock()
	return ok
}

// Reserve begins an external entry point (spec.md §4.10: "reserve rejects
// handles whose pointer is not in the allow-list, whose magic is wrong, or
// whose abort flag is set; on success it atomically increments
// threads_external"). Every successful Reserve must be matched by exactly
// one Return.
func (h *Handle) Reserve() vmmerr.Code {
	if !h.valid() {
		return vmmerr.EFatal
	}
	h.master.RLock()
	if !h.valid() {
		h.master.RUnlock()
		return vmmerr.EFatal
	}
	atomic.AddInt64(&h.threadsExternal, 1)
	return vmmerr.Ok
}

// Return ends an external entry point begun by a successful Reserve.
func (h *Handle) Return() {
	atomic.AddInt64(&h.threadsExternal, -1)
	h.master.RUnlock()
}

// reserveInternal/returnInternal bracket work-pool-owned background tasks
// (refresh sweeps, search workers) rather than external callers, so Close
// can wait on both counters independently of how a task was started.
func (h *Handle) reserveInternal() { atomic.AddInt64(&h.threadsInternal, 1) }
func (h *Handle) returnInternal()  { atomic.AddInt64(&h.threadsInternal, -1) }

// RunInternal runs fn as an internal (work-pool-owned) task, bracketed by
// reserveInternal/returnInternal.
func (h *Handle) RunInternal(fn func()) {
	h.reserveInternal()
	defer h.returnInternal()
	fn()
}

// Aborted reports whether Close has begun.
func (h *Handle) Aborted() bool { return atomic.LoadInt32(&h.abort) != 0 }

// Close removes h from the allow-list, sets the abort flag, interrupts the
// work pool, and spins — logging periodically — until both thread counters
// reach zero. It then calls Close on the root-scoped plugins in
// registration-reverse order and clears the handle's magic. The device,
// caches, process table and config are not torn down here.
func (h *Handle) Close() {
	registry.mu.Lock()
	delete(registry.members, h)
	registry.mu.Unlock()

	atomic.StoreInt32(&h.abort, 1)
	h.Pool.Shutdown()

	h.master.Lock()
	defer h.master.Unlock()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		ext := atomic.LoadInt64(&h.threadsExternal)
		intl := atomic.LoadInt64(&h.threadsInternal)
		if ext == 0 && intl == 0 {
			break
		}
		<-ticker.C
		if h.Log != nil {
			h.Log.Warnf(logx.MIDHandle, "close waiting: external=%d internal=%d", ext, intl)
		}
	}

	h.Plugins.CloseAll(0, false)
	h.magic = 0
}
