package circbuf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/mem"
	"vmmcore/vmmerr"
)

func newTestCircbuf(t *testing.T, sz int) *Circbuf {
	var cb Circbuf
	cb.Init(sz, mem.NewPagepool(4))
	return &cb
}

func TestInitPanicsOnBadSize(t *testing.T) {
	var cb Circbuf
	assert.Panics(t, func() { cb.Init(0, mem.NewPagepool(1)) })
	assert.Panics(t, func() { cb.Init(mem.PGSIZE+1, mem.NewPagepool(1)) })
}

func TestFreshBufferIsEmptyNotFull(t *testing.T) {
	cb := newTestCircbuf(t, 16)
	assert.True(t, cb.Empty())
	assert.False(t, cb.Full())
	assert.Equal(t, 16, cb.Left())
	assert.Equal(t, 0, cb.Used())
}

func TestCopyinThenCopyoutRoundTrips(t *testing.T) {
	cb := newTestCircbuf(t, 32)
	n, code := cb.Copyin(strings.NewReader("hello world"))
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 11, n)
	assert.Equal(t, 11, cb.Used())
	assert.False(t, cb.Empty())

	var out bytes.Buffer
	n, code = cb.Copyout(&out)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", out.String())
	assert.True(t, cb.Empty(), "Copyout must drain the buffer")
}

func TestCopyinStopsAtCapacityWithoutOverflowing(t *testing.T) {
	cb := newTestCircbuf(t, 5)
	n, code := cb.Copyin(strings.NewReader("0123456789"))
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 5, n)
	assert.True(t, cb.Full())

	n2, _ := cb.Copyin(strings.NewReader("more"))
	assert.Equal(t, 0, n2, "Copyin on an already-full buffer must write nothing")
}

func TestCopyoutNLimitsToMaxBytes(t *testing.T) {
	cb := newTestCircbuf(t, 32)
	cb.Copyin(strings.NewReader("abcdefghij"))

	var out bytes.Buffer
	n, code := cb.CopyoutN(&out, 4)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", out.String())
	assert.Equal(t, 6, cb.Used(), "only the copied-out prefix should be consumed")
}

func TestReadAtServesArbitraryOffsetsWithoutConsuming(t *testing.T) {
	cb := newTestCircbuf(t, 32)
	cb.Copyin(strings.NewReader("0123456789"))

	buf := make([]byte, 4)
	n, code := cb.ReadAt(buf, 3)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 4, n)
	assert.Equal(t, "3456", string(buf[:n]))
	assert.Equal(t, 10, cb.Used(), "ReadAt must not drain the buffer")
}

func TestReadAtPastEndReturnsZero(t *testing.T) {
	cb := newTestCircbuf(t, 32)
	cb.Copyin(strings.NewReader("hi"))

	buf := make([]byte, 4)
	n, code := cb.ReadAt(buf, 2)
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 0, n)
}

func TestWrapsAroundAfterPartialDrainAndRefill(t *testing.T) {
	cb := newTestCircbuf(t, 8)
	cb.Copyin(strings.NewReader("abcdef")) // 6 bytes, head=6 tail=0

	var out bytes.Buffer
	cb.CopyoutN(&out, 4) // drains "abcd", tail=4

	n, code := cb.Copyin(strings.NewReader("XYZZY")) // wraps past the 8-byte boundary
	assert.Equal(t, vmmerr.Ok, code)
	assert.True(t, n > 0)

	var rest bytes.Buffer
	cb.Copyout(&rest)
	assert.Equal(t, "ef"+"XYZZY"[:n], rest.String())
}

func TestReleaseReturnsPageAndResetsState(t *testing.T) {
	cb := newTestCircbuf(t, 16)
	cb.Copyin(strings.NewReader("data"))
	cb.Release()

	assert.True(t, cb.Empty())
	// a subsequent operation must re-acquire a page lazily rather than panic
	n, code := cb.Copyin(strings.NewReader("more"))
	assert.Equal(t, vmmerr.Ok, code)
	assert.Equal(t, 4, n)
}
