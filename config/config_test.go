package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPopulatesDocumentedDefaults(t *testing.T) {
	r := New()
	cases := map[Key]Value{
		KeyRefreshEnable: 1,
		KeyPagingEnable:  1,
		KeyTickPeriodMs:  1000,
		KeyRefreshMem:    1,
		KeyRefreshTLB:    1,
		KeyRefreshFast:   5,
		KeyRefreshMedium: 15,
		KeyRefreshSlow:   300,
		KeyForensicMode:  0,
	}
	for k, want := range cases {
		got, ok := r.Get(k)
		assert.True(t, ok, "expected %s to have a default", k)
		assert.Equal(t, want, got, "default for %s", k)
	}
}

func TestGetUnknownKeyReportsMiss(t *testing.T) {
	r := New()
	_, ok := r.Get(Key("not_a_real_key"))
	assert.False(t, ok)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	r := New()
	r.Set(KeyVerbose, 1)
	got, ok := r.Get(KeyVerbose)
	assert.True(t, ok)
	assert.EqualValues(t, 1, got)
}

func TestTriggeredKeyFiresCallbackWithoutStoringAValue(t *testing.T) {
	r := New()
	fired := 0
	r.OnTrigger("refresh_freq_fast", func() { fired++ })

	r.Set("refresh_freq_fast", 1)
	assert.Equal(t, 1, fired)

	_, ok := r.Get("refresh_freq_fast")
	assert.False(t, ok, "a triggered key must never be readable back as a stored value")
}

func TestTriggeredKeyWithNoRegisteredCallbackIsANoop(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Set("refresh_freq_tlb", 1) })
}

func TestStringFormatsSetAndUnsetKeys(t *testing.T) {
	r := New()
	assert.Equal(t, "tick_period_ms=1000", r.String(KeyTickPeriodMs))
	assert.Equal(t, "verbose=<unset>", r.String(KeyVerbose))
}
