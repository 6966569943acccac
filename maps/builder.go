package maps

import (
	"vmmcore/proc"
	"vmmcore/vmmerr"
)

// BuildFunc constructs one map kind's result from scratch.
type BuildFunc func() (interface{}, vmmerr.Code)

// Cached returns p's cached object for kind if one is valid at kind's
// current generation fence; otherwise it builds exactly once — even if
// several goroutines ask for the same (pid, kind) concurrently, via
// tbl.BuildOnce — caches the result, and returns it (spec.md §4.11: "a
// successful build bumps the refcount; subsequent requests return the
// same object until invalidated by refresh").
func Cached(tbl *proc.Table, p *proc.Process, kind string, build BuildFunc) (interface{}, vmmerr.Code) {
	if v, ok := p.GetCache(kind); ok {
		return v, vmmerr.Ok
	}
	v, err := tbl.BuildOnce(p.Pid, kind, func() (interface{}, error) {
		res, code := build()
		if code != vmmerr.Ok {
			return nil, code
		}
		return res, nil
	})
	if err != nil {
		return nil, err.(vmmerr.Code)
	}
	p.SetCache(kind, v)
	return v, vmmerr.Ok
}
