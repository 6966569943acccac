package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmmcore/mem"
)

func samplePage(fill byte) mem.Pg_t {
	var pg mem.Pg_t
	for i := range pg {
		pg[i] = fill
	}
	return pg
}

func TestScatterReadMissOnUnpokedPage(t *testing.T) {
	d := NewMemDevice()
	req := &Request{Addr: mem.Pa_t(0x1000)}
	d.ScatterRead([]*Request{req})
	assert.False(t, req.Succeeded)
}

func TestPokeThenScatterReadHits(t *testing.T) {
	d := NewMemDevice()
	d.Poke(mem.Pa_t(0x2000), samplePage(0x7A))

	req := &Request{Addr: mem.Pa_t(0x2000)}
	d.ScatterRead([]*Request{req})
	assert.True(t, req.Succeeded)
	assert.Equal(t, samplePage(0x7A), req.Buf)
}

func TestScatterWriteUpdatesAddrMax(t *testing.T) {
	d := NewMemDevice()
	req := &Request{Addr: mem.Pa_t(0x5000), Buf: samplePage(1)}
	d.ScatterWrite([]*Request{req})
	assert.True(t, req.Succeeded)

	max, ok := d.GetOption(OptAddrMax)
	assert.True(t, ok)
	assert.EqualValues(t, 0x6000, max)
}

func TestScatterWriteFailsOnReadOnlyDevice(t *testing.T) {
	d := NewMemDevice()
	d.writable = false
	req := &Request{Addr: mem.Pa_t(0x3000), Buf: samplePage(1)}
	d.ScatterWrite([]*Request{req})
	assert.False(t, req.Succeeded)
}

func TestCommandMemmapSetTracksMaxRangeEnd(t *testing.T) {
	d := NewMemDevice()
	_, err := d.Command("MEMMAP_SET", []byte("1000 2000\n3000 9000\n"))
	assert.NoError(t, err)

	max, ok := d.GetOption(OptAddrMax)
	assert.True(t, ok)
	assert.EqualValues(t, 0x9000, max)
}
