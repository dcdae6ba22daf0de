package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Layering(t *testing.T) {
	base := NewParams(map[string]any{"message": "hello", "count": 1})
	child := base.Extend(map[string]any{"count": 2})

	v, ok := child.Get("message")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	v, _ = child.Get("count")
	assert.Equal(t, 2, v)
	v, _ = base.Get("count")
	assert.Equal(t, 1, v, "child layers never mutate the base")

	child.Set("message", "bye")
	v, _ = base.Get("message")
	assert.Equal(t, "hello", v)

	assert.True(t, child.Own("count"))
	assert.False(t, child.Own("missing"))
	assert.Same(t, base, child.Parent())
	assert.Equal(t, []string{"count", "message"}, child.Keys())
	assert.Equal(t, map[string]any{"count": 2, "message": "bye"}, child.Map())
}

func TestParams_CopiesInput(t *testing.T) {
	values := map[string]any{"a": 1}
	p := NewParams(values)
	values["a"] = 2

	v, _ := p.Get("a")
	assert.Equal(t, 1, v)
}

func TestParams_Nil(t *testing.T) {
	var p *Params

	_, ok := p.Get("x")
	assert.False(t, ok)
	assert.Empty(t, p.Keys())
	assert.Nil(t, p.Parent())
	assert.False(t, p.Own("x"))
	p.Set("x", 1)

	child := p.Extend(map[string]any{"x": 1})
	v, ok := child.Get("x")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestParam(t *testing.T) {
	p := NewParams(map[string]any{"title": "Demo", "n": 3})

	title, ok := Param[string](p, "title")
	assert.True(t, ok)
	assert.Equal(t, "Demo", title)

	_, ok = Param[string](p, "n")
	assert.False(t, ok)

	_, ok = Param[int](p, "missing")
	assert.False(t, ok)
}
