package component

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type numericCounter struct {
	value    int
	title    string
	disposed bool
}

func numericCounterClass() *Class {
	return Define(func(p *Params) *numericCounter {
		title, _ := Param[string](p, "title")
		return &numericCounter{title: title}
	}).
		Property("value",
			func(c *numericCounter) any { return strconv.Itoa(c.value) },
			func(c *numericCounter, v any) {
				if f, ok := v.(float64); ok {
					c.value = int(f)
				}
			}).
		Setter("autoIncrement", func(*numericCounter, any) {}).
		Method("increment", func(c *numericCounter, _ ...any) any { c.value++; return nil }).
		Method("decrement", func(c *numericCounter, _ ...any) any {
			if c.value > 0 {
				c.value--
			}
			return nil
		}).
		Dispose(func(c *numericCounter) { c.disposed = true }).
		Getter("title", func(c *numericCounter) any { return c.title }).
		Setter("title", func(c *numericCounter, v any) { c.title, _ = v.(string) }).
		Init(func(c *numericCounter, root any) any { return root }).
		Class()
}

func TestDefine(t *testing.T) {
	class := numericCounterClass()

	assert.Equal(t, "component.numericCounter", class.Name())
	assert.True(t, class.Has("value"))
	assert.True(t, class.Has(Init))
	assert.True(t, class.Has(Dispose))
	assert.False(t, class.Has("missing"))

	instance := class.New(NewParams(map[string]any{"title": "Demo"}))
	counter, ok := instance.(*numericCounter)
	require.True(t, ok)
	assert.Equal(t, "Demo", counter.title)

	_, err := class.Call(counter, "increment")
	require.NoError(t, err)
	assert.Equal(t, 1, counter.value)

	_, err = class.Call(counter, "value")
	assert.Error(t, err)

	root, err := class.Call(counter, Init, "element")
	require.NoError(t, err)
	assert.Equal(t, "element", root)

	_, err = class.Call(counter, Dispose)
	require.NoError(t, err)
	assert.True(t, counter.disposed)
}

func TestDefine_MergesAccessors(t *testing.T) {
	class := numericCounterClass()

	title, ok := class.Member("title")
	require.True(t, ok)
	assert.True(t, title.HasGetter())
	assert.True(t, title.HasSetter())
	assert.False(t, title.IsMethod())

	names := make([]string, 0)
	for _, m := range class.Members() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"value", "autoIncrement", "increment", "decrement", Dispose, "title", Init}, names)
}

func TestDefine_NilConstructor(t *testing.T) {
	class := Define[numericCounter](nil).Class()
	_, ok := class.New(nil).(*numericCounter)
	assert.True(t, ok)
}

func TestClass_Accessors(t *testing.T) {
	class := numericCounterClass()
	counter := &numericCounter{value: 4, title: "x"}

	accessors := class.Accessors(counter)
	require.Len(t, accessors, 2)
	assert.Equal(t, "value", accessors[0].Name)
	assert.Equal(t, "4", accessors[0].Get())

	accessors[0].Set(7.0)
	assert.Equal(t, 7, counter.value)

	assert.Equal(t, "title", accessors[1].Name)
	assert.NotNil(t, accessors[1].Set)
}

func TestNewClass(t *testing.T) {
	class := NewClass("untyped", nil,
		Member{Name: "a", Get: func(any) any { return 1 }},
		Member{Name: "a", Set: func(any, any) {}},
		Member{Name: "run", Call: func(self any, args ...any) any { return len(args) }},
	)

	assert.Len(t, class.Members(), 2)
	assert.NotNil(t, class.New(nil))

	n, err := class.Call(nil, "run", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBlank(t *testing.T) {
	class := Blank()
	assert.Empty(t, class.Members())
	assert.NotNil(t, class.New(nil))
	assert.Equal(t, Classification{}, Classify(class))
}
