// Package plugin implements the path-addressed registry and dispatch tree
// (spec.md C10, §4.9). A Plugin registers under a forward-slash path such
// as "sys/net" or "search" and is mounted either at the root (global) or
// under each process's own subtree ("pid/<n>/..."), or both. Grounded on
// biscuit/src/fd/fd.go's Fdops_i pattern: a small interface dispatched
// through a pointer receiver, generalized here from one open file to a
// whole tree of named, listable, closeable leaves.
package plugin

import "vmmcore/ustr"

// Kind distinguishes a listing entry that is itself addressable (directory)
// from one that terminates a path (file).
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

// Status is the four-value external status enum exposed to plugins and
// file-system consumers (spec.md §6 "Error codes"). Plugins return a Status
// directly, and the Registry hands it back to the caller unchanged.
type Status int

const (
	Success Status = iota
	EndOfFile
	FileInvalid
	Unsuccessful
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case EndOfFile:
		return "EndOfFile"
	case FileInvalid:
		return "FileInvalid"
	case Unsuccessful:
		return "Unsuccessful"
	default:
		return "Unsuccessful"
	}
}

// Entry is one row of a directory listing. ModTime is populated only when
// the plugin tracks a meaningful modification time; it is the zero time
// otherwise, and no built-in plugin sets it (spec.md §4.9
// "optional_times").
type Entry struct {
	Name    string
	Size    int64
	Kind    Kind
	ModTime int64 // unix nanoseconds, 0 if not tracked
}

// Context carries the per-call identity a plugin needs: the process this
// call is scoped to (nil for a root-mounted call) and the sub-path beneath
// the plugin's own mount point.
type Context struct {
	Pid     int
	HasPid  bool
	SubPath ustr.Ustr
}

// Plugin is the registry leaf ABI (spec.md §4.9, "Plugin ABI (C10
// contract)"). Write and Close are optional: a read-only plugin does not
// implement Writer, and a plugin with no per-handle state to release does
// not implement Closer. List never side-effects memory (spec.md §6).
type Plugin interface {
	// List enumerates the entries directly beneath ctx.SubPath. Never
	// side-effects the target image.
	List(ctx *Context) ([]Entry, Status)
	// Read fills buf starting at offset and reports how many bytes were
	// placed and the resulting status.
	Read(ctx *Context, buf []byte, offset int64) (int, Status)
}

// Writer is implemented by plugins that accept writes (e.g. the search
// plugin's control files). Absence of this interface means read-only,
// matching spec.md's "absence = read-only".
type Writer interface {
	Write(ctx *Context, buf []byte, offset int64) (int, Status)
}

// Closer is implemented by plugins holding per-handle state that must be
// released at handle teardown, in registration-reverse order (spec.md
// §4.9 "close fires at handle shutdown in registration-reverse order").
type Closer interface {
	Close(ctx *Context)
}

// Scope controls where a plugin is mounted.
type Scope int

const (
	ScopeRoot Scope = 1 << iota
	ScopeProcess
)

func (s Scope) Has(bit Scope) bool { return s&bit != 0 }
