package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPlugin struct {
	entries []Entry
	data    string
}

func (p *stubPlugin) List(ctx *Context) ([]Entry, Status) { return p.entries, Success }
func (p *stubPlugin) Read(ctx *Context, buf []byte, offset int64) (int, Status) {
	n := copy(buf, p.data)
	return n, Success
}

func samplePluginFile(data string) *stubPlugin {
	return &stubPlugin{entries: []Entry{{Name: "readme.txt", Kind: KindFile}}, data: data}
}

func TestListIsStableAcrossRepeatedCalls(t *testing.T) {
	r := NewRegistry()
	r.Register("sys/net", ScopeRoot, samplePluginFile("net"))
	r.Register("sys/proc", ScopeRoot, samplePluginFile("proc"))

	first, status1 := r.List("sys", 0, false)
	second, status2 := r.List("sys", 0, false)

	assert.Equal(t, Success, status1)
	assert.Equal(t, Success, status2)
	assert.Equal(t, first, second)
}

func TestListSynthesizesDirectoryForUnregisteredParent(t *testing.T) {
	r := NewRegistry()
	r.Register("sys/net", ScopeRoot, samplePluginFile("net"))

	entries, status := r.List("", 0, false)
	assert.Equal(t, Success, status)
	assert.Len(t, entries, 1)
	assert.Equal(t, "sys", entries[0].Name)
	assert.Equal(t, KindDir, entries[0].Kind)
}

func TestReadDispatchesToLongestMatchingPrefix(t *testing.T) {
	r := NewRegistry()
	r.Register("sys", ScopeRoot, samplePluginFile("outer"))
	r.Register("sys/net", ScopeRoot, samplePluginFile("inner"))

	buf := make([]byte, 16)
	n, status := r.Read("sys/net", 0, false, buf, 0)
	assert.Equal(t, Success, status)
	assert.Equal(t, "inner", string(buf[:n]))
}

func TestReadUnknownPathReturnsFileInvalid(t *testing.T) {
	r := NewRegistry()
	buf := make([]byte, 16)
	_, status := r.Read("nonexistent", 0, false, buf, 0)
	assert.Equal(t, FileInvalid, status)
}

func TestWriteOnReadOnlyPluginReturnsUnsuccessful(t *testing.T) {
	r := NewRegistry()
	r.Register("sys/net", ScopeRoot, samplePluginFile("net"))

	_, status := r.Write("sys/net", 0, false, []byte("x"), 0)
	assert.Equal(t, Unsuccessful, status)
}

func TestProcessScopedPluginInvisibleAtRoot(t *testing.T) {
	r := NewRegistry()
	r.Register("search", ScopeProcess, samplePluginFile("search"))

	buf := make([]byte, 16)
	_, status := r.Read("search", 0, false, buf, 0)
	assert.Equal(t, FileInvalid, status)

	n, status := r.Read("search", 7, true, buf, 0)
	assert.Equal(t, Success, status)
	assert.Equal(t, "search", string(buf[:n]))
}

type closeTracker struct {
	stubPlugin
	closed *[]string
	name   string
}

func (c *closeTracker) Close(ctx *Context) { *c.closed = append(*c.closed, c.name) }

func TestCloseAllFiresInRegistrationReverseOrder(t *testing.T) {
	r := NewRegistry()
	var closed []string
	r.Register("a", ScopeRoot, &closeTracker{name: "a", closed: &closed})
	r.Register("b", ScopeRoot, &closeTracker{name: "b", closed: &closed})
	r.Register("c", ScopeRoot, &closeTracker{name: "c", closed: &closed})

	r.CloseAll(0, false)

	assert.Equal(t, []string{"c", "b", "a"}, closed)
}
