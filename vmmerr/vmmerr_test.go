package vmmerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOkIsTheZeroValue(t *testing.T) {
	var c Code
	assert.Equal(t, Ok, c)
}

func TestStringRendersKnownCodes(t *testing.T) {
	assert.Equal(t, "not found", ENotFound.String())
	assert.Equal(t, "device i/o failure", EIO.String())
	assert.Equal(t, "fatal", EFatal.String())
}

func TestStringFallsBackToUnknownForAnUnmappedCode(t *testing.T) {
	c := Code(9999)
	assert.Equal(t, "unknown error", c.String())
}

func TestErrorMatchesString(t *testing.T) {
	assert.Equal(t, EBusy.String(), EBusy.Error())
}

func TestIsSoftFaultIsTrueOnlyForTranslationRetryReasons(t *testing.T) {
	assert.True(t, IsSoftFault(ETransition))
	assert.True(t, IsSoftFault(EPrototype))
	assert.True(t, IsSoftFault(EPaged))

	assert.False(t, IsSoftFault(ENotPresent))
	assert.False(t, IsSoftFault(EBadEntry))
	assert.False(t, IsSoftFault(EFault))
	assert.False(t, IsSoftFault(Ok))
}
