// Package vmmerr defines the internal failure taxonomy used by every layer
// of the memory abstraction (spec.md §7). Internal code never returns a bare
// error for an expected failure; it returns a Code so that callers further
// up the stack (the retry layer, the zero-pad layer, the plugin dispatcher)
// can make a decision instead of re-parsing an error string.
package vmmerr

// Code is the internal error taxonomy. The zero value Ok means success.
type Code int

const (
	Ok Code = iota

	// Invalid input: path, PID, or address failed validation. Reported
	// locally, never logged.
	EInval
	ENotFound
	ENameTooLong

	// Translation failure reasons (spec.md §4.4). The retry layer decides
	// whether a soft failure should be retried via the pagefile option.
	ENotPresent
	ETransition
	EPrototype
	EPaged
	EBadEntry

	// Soft memory failure: a specific page is unreadable. Downgraded to
	// zero-pad or short-count by the caller; never propagates as fatal.
	EFault

	// Resource exhaustion: allocation failed or a bounded pool/worker set
	// is saturated. The caller may retry.
	ENoMem
	EBusy

	// Device failure: the backing transport reported an error.
	EIO

	// Fatal: magic mismatch, abort flag set, handle not on the allow-list.
	// The entry point must fail immediately with no side effects.
	EFatal
)

var names = map[Code]string{
	Ok:           "ok",
	EInval:       "invalid input",
	ENotFound:    "not found",
	ENameTooLong: "name too long",
	ENotPresent:  "translation: not present",
	ETransition:  "translation: transition pte",
	EPrototype:   "translation: prototype pte",
	EPaged:       "translation: paged out",
	EBadEntry:    "translation: malformed entry",
	EFault:       "soft memory fault",
	ENoMem:       "resource exhaustion",
	EBusy:        "resource busy",
	EIO:          "device i/o failure",
	EFatal:       "fatal",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "unknown error"
}

func (c Code) Error() string { return c.String() }

// IsSoftFault reports whether c is one of the translation failure reasons
// that the virtual read/write retry layer may attempt to resolve via the
// pagefile option (spec.md §4.4/§4.5).
func IsSoftFault(c Code) bool {
	switch c {
	case ETransition, EPrototype, EPaged:
		return true
	}
	return false
}
