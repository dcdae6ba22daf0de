package template

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Compile(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	src := `<div title="{{ a }}"></div>`
	first := cache.Compile(src)
	second := cache.Compile(src)

	assert.Equal(t, Compile(src), first)
	assert.Equal(t, first, second)

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_Eviction(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	cache.Compile(`<a></a>`)
	cache.Compile(`<b></b>`)
	cache.Compile(`<i></i>`)

	assert.Equal(t, 2, cache.Stats().Entries)

	// the oldest entry was evicted and compiles again
	cache.Compile(`<a></a>`)
	assert.Equal(t, uint64(4), cache.Stats().Misses)
}

func TestCache_Options(t *testing.T) {
	cache, err := NewCache(0, WithCollapseWhitespace())
	require.NoError(t, err)

	assert.Equal(t, "<div data-component-root><p></p></div>", cache.Compile("<div>\n  <p></p>\n</div>"))
}

func TestCache_Purge(t *testing.T) {
	cache, err := NewCache(4)
	require.NoError(t, err)

	cache.Compile(`<div></div>`)
	cache.Purge()

	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestCache_Concurrent(t *testing.T) {
	cache, err := NewCache(8)
	require.NoError(t, err)

	templates := []string{
		`<div onclick="{{ go(event) }}"></div>`,
		`<my-comp title="{{ t }}" />`,
		`<ul><li render-for="{{ items }}"></li></ul>`,
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := templates[i%len(templates)]
			assert.Equal(t, Compile(src), cache.Compile(src))
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	assert.Equal(t, uint64(16), stats.Hits+stats.Misses)
}
