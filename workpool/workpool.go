// Package workpool implements the C9 bounded worker pool (spec.md §4.8):
// a fixed-size concurrent task set running per-process parallel-foreach
// tasks and detached closures, interruptible via a shared abort flag
// checked at page/process granularity.
//
// Grounded on biscuit/src/limits/limits.go's atomic quota pattern for
// sizing, and on the cooperative-cancel concept the teacher tracks per-
// goroutine in tinfo.Tnote_t — which relied on runtime.Gptr/Setgptr hooks
// private to biscuit's own forked runtime and has no portable equivalent;
// the same "is this worker doomed" bookkeeping is kept here as an explicit
// field on worker, a value the pool already owns, rather than a
// thread-local. Concurrency is bounded with golang.org/x/sync/semaphore
// (SPEC_FULL.md §3: "bounds workpool's concurrent worker slots") instead
// of a fixed goroutine-per-worker-plus-channel design, so Submit/ForEach
// both gate through the same weighted semaphore rather than two separate
// bounding mechanisms.
package workpool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"vmmcore/proc"
)

// Pool bounds concurrent task execution to n slots via a weighted
// semaphore. All tasks submitted after Shutdown share the pool's single
// abort flag; long-running tasks must poll Aborted() at safe boundaries
// (spec.md §4.8).
type Pool struct {
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	aborted int32
	nextID  int32
}

type worker struct {
	id     int32
	doomed int32 // set when a task wakes into an already-aborted pool
}

// New creates a pool bounding concurrent task execution to n slots.
func New(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n))}
}

// Aborted reports whether the pool has been asked to stop (spec.md §4.8
// "on abort, the pool stops accepting new tasks and signals running tasks
// via a shared flag"). Long-running tasks call this between pages of a
// search or between processes of a foreach.
func (p *Pool) Aborted() bool { return atomic.LoadInt32(&p.aborted) != 0 }

// Submit runs task on a goroutine once a slot is available. Returns false
// without running task if the pool has already aborted; does not block
// when all slots are busy — the goroutine below will, which is the point
// of bounding concurrency rather than queue depth.
func (p *Pool) Submit(task func()) bool {
	if p.Aborted() {
		return false
	}
	w := &worker{id: atomic.AddInt32(&p.nextID, 1)}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		if p.Aborted() {
			atomic.StoreInt32(&w.doomed, 1)
			return
		}
		task()
	}()
	return true
}

// ForEach runs action on every process in procs, bounded to the pool's
// concurrency limit, blocking until all have completed or the pool aborts
// mid-run. This is the "per-process parallel foreach" task shape of
// spec.md §4.8.
func (p *Pool) ForEach(procs []*proc.Process, action func(*proc.Process)) {
	var wg sync.WaitGroup
	for _, pr := range procs {
		if p.Aborted() {
			break
		}
		pr := pr
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)
			if !p.Aborted() {
				action(pr)
			}
		}()
	}
	wg.Wait()
}

// Shutdown sets the abort flag and waits for every in-flight task to
// finish (spec.md §4.10 "Close... interrupts the work pool"). It is
// idempotent.
func (p *Pool) Shutdown() {
	if !atomic.CompareAndSwapInt32(&p.aborted, 0, 1) {
		return
	}
	p.wg.Wait()
}
