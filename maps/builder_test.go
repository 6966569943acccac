package maps

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vmmcore/proc"
	"vmmcore/vmmerr"
)

func TestCachedBuildsOnceThenServesFromProcessCache(t *testing.T) {
	tbl := proc.NewTable(time.Minute)
	p := proc.New(1, 0, 0x1000)
	var builds int32

	build := func() (interface{}, vmmerr.Code) {
		atomic.AddInt32(&builds, 1)
		return "result", vmmerr.Ok
	}

	v1, code := Cached(tbl, p, "module", build)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, "result", v1)

	v2, code := Cached(tbl, p, "module", build)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, "result", v2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&builds), "a second Cached call before invalidation must not rebuild")
}

func TestCachedRebuildsAfterInvalidateKind(t *testing.T) {
	tbl := proc.NewTable(time.Minute)
	p := proc.New(2, 0, 0x2000)
	var builds int32

	build := func() (interface{}, vmmerr.Code) {
		n := atomic.AddInt32(&builds, 1)
		return n, vmmerr.Ok
	}

	Cached(tbl, p, "vad", build)
	p.InvalidateKind("vad")
	v, _ := Cached(tbl, p, "vad", build)

	assert.EqualValues(t, 2, atomic.LoadInt32(&builds))
	assert.EqualValues(t, 2, v)
}

func TestCachedPropagatesBuildFailureWithoutCaching(t *testing.T) {
	tbl := proc.NewTable(time.Minute)
	p := proc.New(3, 0, 0x3000)

	_, code := Cached(tbl, p, "thread", func() (interface{}, vmmerr.Code) {
		return nil, vmmerr.ENotFound
	})
	assert.Equal(t, vmmerr.ENotFound, code)

	_, ok := p.GetCache("thread")
	assert.False(t, ok, "a failed build must not poison the cache")
}
