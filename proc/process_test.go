package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCacheMissesBeforeAnySet(t *testing.T) {
	p := New(100, 1, 0xdead)
	_, ok := p.GetCache("module")
	assert.False(t, ok)
}

func TestSetCacheThenGetCacheHits(t *testing.T) {
	p := New(100, 1, 0xdead)
	p.SetCache("module", "built-value")
	got, ok := p.GetCache("module")
	assert.True(t, ok)
	assert.Equal(t, "built-value", got)
}

func TestInvalidateKindStalesOnlyThatKind(t *testing.T) {
	p := New(100, 1, 0xdead)
	p.SetCache("module", "m")
	p.SetCache("vad", "v")

	p.InvalidateKind("module")

	_, ok := p.GetCache("module")
	assert.False(t, ok, "invalidated kind must report a miss")
	got, ok := p.GetCache("vad")
	assert.True(t, ok, "an untouched kind must remain cached")
	assert.Equal(t, "v", got)
}

func TestInvalidateCachesStalesEveryKnownKind(t *testing.T) {
	p := New(100, 1, 0xdead)
	for _, k := range knownKinds {
		p.SetCache(k, k)
	}
	p.InvalidateCaches()
	for _, k := range knownKinds {
		_, ok := p.GetCache(k)
		assert.False(t, ok, "kind %s must be stale after InvalidateCaches", k)
	}
}

func TestNewProcessStartsLiveWithRefcountOne(t *testing.T) {
	p := New(7, 1, 0xbeef)
	assert.Equal(t, Live, p.State())
	assert.EqualValues(t, 1, p.Refs())
}
