package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/unobtrusive/pkg/template"
)

const counterTemplate = `<div>
  <button onclick="{{ increment() }}">+</button>
</div>`

func TestCompile_HitsAfterFirstCompile(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	first, hit := c.Compile("numeric-counter", counterTemplate, false)
	assert.False(t, hit)
	assert.Equal(t, template.Compile(counterTemplate), first)

	second, hit := c.Compile("numeric-counter", counterTemplate, false)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	collapsed, hit := c.Compile("numeric-counter", counterTemplate, true)
	assert.False(t, hit, "options are part of the key")
	assert.Equal(t, template.Compile(counterTemplate, template.WithCollapseWhitespace()), collapsed)

	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 2}, c.Stats())
}

func TestCompile_SourceChangeMisses(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	c.Compile("x-card", `<div>a</div>`, false)
	out, hit := c.Compile("x-card", `<div>b</div>`, false)

	assert.False(t, hit)
	assert.Contains(t, out, "b")
}

func TestFlush_Persists(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	compiled, _ := c.Compile("numeric-counter", counterTemplate, false)
	require.NoError(t, c.Flush())

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.False(t, reopened.Reset())

	e, ok := reopened.Get("numeric-counter")
	require.True(t, ok)
	assert.Equal(t, compiled, e.Compiled)
	assert.Equal(t, Key(counterTemplate, false), e.Key)
	assert.False(t, e.CompiledAt.IsZero())

	_, hit := reopened.Compile("numeric-counter", counterTemplate, false)
	assert.True(t, hit)
}

func TestFlush_NoChanges(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, c.Flush())

	_, err = os.Stat(filepath.Join(dir, IndexFile))
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_CorruptIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("not msgpack"), 0o644))

	c, err := Open(dir)
	require.NoError(t, err)

	assert.True(t, c.Reset())
	assert.Equal(t, 0, c.Stats().Entries)
	require.NoError(t, c.Flush())

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.False(t, reopened.Reset())
}

func TestForget(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	c.Compile("x-card", `<div></div>`, false)

	c.Forget("x-card")
	c.Forget("missing")

	_, ok := c.Get("x-card")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", false), Key("a", false))
	assert.NotEqual(t, Key("a", false), Key("a", true))
	assert.NotEqual(t, Key("a", false), Key("b", false))
	assert.NotEqual(t, Key("a", false), versionedKey(template.Version+"-old", "a", false))
}

func TestCompile_OtherCompilerVersionMisses(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)

	c.entries["numeric-counter"] = Entry{
		Name:     "numeric-counter",
		Key:      versionedKey(template.Version+"-old", counterTemplate, false),
		Compiled: "<stale></stale>",
	}
	c.dirty = true
	require.NoError(t, c.Flush())

	reopened, err := Open(dir)
	require.NoError(t, err)
	compiled, hit := reopened.Compile("numeric-counter", counterTemplate, false)
	assert.False(t, hit)
	assert.Equal(t, template.Compile(counterTemplate), compiled)

	e, ok := reopened.Get("numeric-counter")
	require.True(t, ok)
	assert.Equal(t, Key(counterTemplate, false), e.Key)
}

func TestCompile_Concurrent(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Compile("numeric-counter", counterTemplate, j%2 == 0)
			}
		}()
	}
	wg.Wait()

	s := c.Stats()
	assert.Equal(t, int64(16*50), s.Hits+s.Misses)
	assert.Equal(t, 1, s.Entries)
}
