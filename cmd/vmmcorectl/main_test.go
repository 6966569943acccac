package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHexArgParsesUnprefixedHex(t *testing.T) {
	v, err := parseHexArg("1a2b")
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1a2b), v)
}

func TestParseHexArgFailsOnNonHexInput(t *testing.T) {
	_, err := parseHexArg("not-hex")
	assert.Error(t, err)
}
