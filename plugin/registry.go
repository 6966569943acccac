package plugin

import (
	"sort"
	"sync"

	"vmmcore/ustr"
)

type registration struct {
	path  string
	scope Scope
	impl  Plugin
}

// Registry is the path-addressed dispatch tree. One Registry instance
// backs the whole engine; resolve maps a path to the longest
// registered prefix, mirroring the teacher's path-component walk in
// bpath.Canonicalize/fd.Cwd_t.Canonicalpath adapted to a tree of plugins
// instead of a tree of directories.
type Registry struct {
	mu    sync.RWMutex
	byPath map[string]*registration
	order []*registration // registration order, for registration-reverse Close
}

// NewRegistry creates an empty dispatch tree.
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]*registration)}
}

// Register mounts impl at path under the given scope. Registering the same
// path twice replaces the previous mount.
func (r *Registry) Register(path string, scope Scope, impl Plugin) {
	norm := ustr.Normalize(path).String()
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := &registration{path: norm, scope: scope, impl: impl}
	r.byPath[norm] = reg
	for i, old := range r.order {
		if old.path == norm {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.order = append(r.order, reg)
}

// Unregister removes the plugin mounted at path, if any.
func (r *Registry) Unregister(path string) {
	norm := ustr.Normalize(path).String()
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPath, norm)
	for i, reg := range r.order {
		if reg.path == norm {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// resolve finds the registration whose path is the longest prefix of the
// requested path, and the remaining sub-path beneath that mount point.
func (r *Registry) resolve(path string, pid int, hasPid bool) (*registration, ustr.Ustr, bool) {
	norm := ustr.Normalize(path).String()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *registration
	for _, reg := range r.order {
		if !matchesScope(reg.scope, hasPid) {
			continue
		}
		if !isPrefix(reg.path, norm) {
			continue
		}
		if best == nil || len(reg.path) > len(best.path) {
			best = reg
		}
	}
	if best == nil {
		return nil, nil, false
	}
	sub := norm[len(best.path):]
	for len(sub) > 0 && sub[0] == '/' {
		sub = sub[1:]
	}
	return best, ustr.Mk(sub), true
}

func matchesScope(scope Scope, hasPid bool) bool {
	if hasPid {
		return scope.Has(ScopeProcess)
	}
	return scope.Has(ScopeRoot)
}

func isPrefix(mount, path string) bool {
	if mount == "" {
		return true
	}
	if path == mount {
		return true
	}
	return len(path) > len(mount) && path[:len(mount)] == mount && path[len(mount)] == '/'
}

// List resolves path and returns its directory entries. When path exactly
// names a registered mount point's parent (i.e. path resolves to no
// plugin), List synthesizes a directory listing of the mounts immediately
// beneath it — this is how "/" lists "pid", "sys", "search" without any of
// those being one physical plugin.
func (r *Registry) List(path string, pid int, hasPid bool) ([]Entry, Status) {
	reg, sub, ok := r.resolve(path, pid, hasPid)
	if !ok {
		return r.syntheticChildren(path, hasPid), Success
	}
	return reg.impl.List(&Context{Pid: pid, HasPid: hasPid, SubPath: sub})
}

func (r *Registry) syntheticChildren(path string, hasPid bool) []Entry {
	norm := ustr.Normalize(path).String()
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	var out []Entry
	for _, reg := range r.order {
		if !matchesScope(reg.scope, hasPid) {
			continue
		}
		if !isPrefix(norm, reg.path) || reg.path == norm {
			continue
		}
		rest := reg.path
		if norm != "" {
			rest = reg.path[len(norm)+1:]
		}
		head, _, _ := ustr.Mk(rest).Split()
		name := head.String()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Entry{Name: name, Kind: KindDir})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Read resolves path and dispatches the read.
func (r *Registry) Read(path string, pid int, hasPid bool, buf []byte, offset int64) (int, Status) {
	reg, sub, ok := r.resolve(path, pid, hasPid)
	if !ok {
		return 0, FileInvalid
	}
	return reg.impl.Read(&Context{Pid: pid, HasPid: hasPid, SubPath: sub}, buf, offset)
}

// Write resolves path and dispatches the write, or reports Unsuccessful if
// the plugin is read-only.
func (r *Registry) Write(path string, pid int, hasPid bool, buf []byte, offset int64) (int, Status) {
	reg, sub, ok := r.resolve(path, pid, hasPid)
	if !ok {
		return 0, FileInvalid
	}
	w, writable := reg.impl.(Writer)
	if !writable {
		return 0, Unsuccessful
	}
	return w.Write(&Context{Pid: pid, HasPid: hasPid, SubPath: sub}, buf, offset)
}

// CloseAll fires Close on every registered plugin that implements Closer,
// in registration-reverse order (spec.md §4.9).
func (r *Registry) CloseAll(pid int, hasPid bool) {
	r.mu.RLock()
	regs := make([]*registration, len(r.order))
	copy(regs, r.order)
	r.mu.RUnlock()

	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		if !matchesScope(reg.scope, hasPid) {
			continue
		}
		if c, ok := reg.impl.(Closer); ok {
			c.Close(&Context{Pid: pid, HasPid: hasPid})
		}
	}
}
