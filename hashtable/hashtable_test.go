package hashtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetThenGetRoundTripsIntKeys(t *testing.T) {
	ht := MkHash(8)
	v, inserted := ht.Set(1, "one")
	assert.True(t, inserted)
	assert.Equal(t, "one", v)

	got, ok := ht.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", got)

	_, ok = ht.Get(2)
	assert.False(t, ok)
}

func TestSetOnExistingKeyReportsNotInsertedAndLeavesOldValue(t *testing.T) {
	ht := MkHash(8)
	ht.Set("a", 1)
	old, inserted := ht.Set("a", 2)
	assert.False(t, inserted)
	assert.Equal(t, 1, old, "Set on an existing key must report the previous value, not overwrite it")

	got, _ := ht.Get("a")
	assert.Equal(t, 1, got)
}

func TestDelRemovesKey(t *testing.T) {
	ht := MkHash(8)
	ht.Set(5, "five")
	ht.Del(5)

	_, ok := ht.Get(5)
	assert.False(t, ok)
}

func TestDelOfMissingKeyPanics(t *testing.T) {
	ht := MkHash(8)
	assert.Panics(t, func() { ht.Del(99) })
}

func TestSizeCountsAcrossAllBuckets(t *testing.T) {
	ht := MkHash(4)
	for i := 0; i < 20; i++ {
		ht.Set(i, i*i)
	}
	assert.Equal(t, 20, ht.Size())

	ht.Del(0)
	assert.Equal(t, 19, ht.Size())
}

func TestElemsReturnsEveryStoredPair(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "a")
	ht.Set(2, "b")
	ht.Set(3, "c")

	pairs := ht.Elems()
	assert.Len(t, pairs, 3)

	seen := map[interface{}]interface{}{}
	for _, p := range pairs {
		seen[p.Key] = p.Value
	}
	assert.Equal(t, "a", seen[1])
	assert.Equal(t, "b", seen[2])
	assert.Equal(t, "c", seen[3])
}

func TestIterStopsEarlyWhenFReturnsTrue(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "a")
	ht.Set(2, "b")

	var visited int
	stopped := ht.Iter(func(k, v interface{}) bool {
		visited++
		return true // stop immediately after the first visited entry
	})
	assert.True(t, stopped)
	assert.Equal(t, 1, visited)
}

func TestIterVisitsEveryEntryWhenFAlwaysReturnsFalse(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "a")
	ht.Set(2, "b")
	ht.Set(3, "c")

	var visited int
	stopped := ht.Iter(func(k, v interface{}) bool {
		visited++
		return false
	})
	assert.False(t, stopped)
	assert.Equal(t, 3, visited)
}

func TestGetPanicsOnUnsupportedKeyType(t *testing.T) {
	ht := MkHash(4)
	assert.Panics(t, func() { ht.Get(3.14) })
}

func TestStringRendersOnlyOccupiedBuckets(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "a")
	s := ht.String()
	assert.Contains(t, s, "b ")
}
