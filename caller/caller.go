// Package caller provides call-site deduplication used to rate-limit
// repeated diagnostic log lines. Spec.md §7 says the memory path should
// "absorb as much as possible" from a hostile or corrupted image rather
// than propagate an error — but an image with a thousand unreadable pages
// can otherwise produce a thousand identical warnings. Distinct tracks the
// first time a given call chain reports a given condition and suppresses
// the rest.
package caller

import (
	"fmt"
	"runtime"
	"sync"
)

// Dump formats the call stack starting at the given skip depth, one frame
// per line, innermost first.
func Dump(skip int) string {
	s := ""
	for i := skip; ; i++ {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	return s
}

// Distinct tracks whether a given call chain has already reported a given
// condition, so repeated identical failures log once.
type Distinct struct {
	mu  sync.Mutex
	did map[uintptr]struct{}
}

func hashPCs(pcs []uintptr) uintptr {
	var ret uintptr
	for _, pc := range pcs {
		ret ^= pc*1103515245 + 12345
	}
	return ret
}

// Len returns the number of unique call chains recorded so far.
func (d *Distinct) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.did)
}

// Seen reports whether the current call chain has been observed before and
// records it if not.
func (d *Distinct) Seen() bool {
	var pcs []uintptr
	for sz, got := 32, 32; got >= sz; sz *= 2 {
		pcs = make([]uintptr, sz)
		got = runtime.Callers(3, pcs)
		if got == 0 {
			return false
		}
		pcs = pcs[:got]
	}
	h := hashPCs(pcs)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.did == nil {
		d.did = make(map[uintptr]struct{})
	}
	if _, ok := d.did[h]; ok {
		return true
	}
	d.did[h] = struct{}{}
	return false
}
