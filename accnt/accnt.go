// Package accnt tracks per-process wall-clock accounting used by the
// process table's retirement policy (spec.md §4.6: "retire terminated
// after one full [slow-tier] cycle"). Grounded on
// biscuit/src/accnt/accnt.go's Accnt_t, replacing user/system CPU-time
// counters (meaningless for a process we never schedule) with
// first-observed and terminated-since timestamps.
package accnt

import (
	"sync"
	"time"
)

// Usage records when a process entered the table and, if applicable, when
// it was first observed missing from the `_EPROCESS` list.
type Usage struct {
	mu           sync.Mutex
	firstSeen    time.Time
	terminatedAt time.Time
	terminated   bool
}

// Start records the process as first observed now.
func (u *Usage) Start(now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.firstSeen = now
}

// MarkTerminated records that the process vanished from the `_EPROCESS`
// list as of now. A second call is a no-op — only the first vanish time
// matters for the one-cycle retirement grace period.
func (u *Usage) MarkTerminated(now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.terminated {
		return
	}
	u.terminated = true
	u.terminatedAt = now
}

// ReadyToRetire reports whether at least one full slow-refresh cycle has
// elapsed since the process was marked terminated.
func (u *Usage) ReadyToRetire(now time.Time, slowPeriod time.Duration) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.terminated {
		return false
	}
	return now.Sub(u.terminatedAt) >= slowPeriod
}

// Age returns how long the process has been known to the table.
func (u *Usage) Age(now time.Time) time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.firstSeen.IsZero() {
		return 0
	}
	return now.Sub(u.firstSeen)
}

// Fetch returns a snapshot of the accounting fields under lock, mirroring
// the teacher's Fetch()/To_rusage() snapshot-under-lock pattern (kept here
// as a plain struct copy rather than a serialized rusage buffer, since
// nothing downstream speaks the rusage wire format).
type Snapshot struct {
	Age        time.Duration
	Terminated bool
}

func (u *Usage) Fetch(now time.Time) Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	var age time.Duration
	if !u.firstSeen.IsZero() {
		age = now.Sub(u.firstSeen)
	}
	return Snapshot{Age: age, Terminated: u.terminated}
}
