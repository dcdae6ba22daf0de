package hosttest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/unobtrusive/pkg/adapter"
	"github.com/conneroisu/unobtrusive/pkg/app"
	"github.com/conneroisu/unobtrusive/pkg/component"
	"github.com/conneroisu/unobtrusive/pkg/registry"
)

type badge struct {
	text string
}

func badgeClass() *component.Class {
	return component.Define[badge](nil).
		Setter("badgeText", func(b *badge, v any) { b.text, _ = v.(string) }).
		Class()
}

func configs(reg *registry.Registry) map[string]*adapter.Config {
	components := make(map[string]*adapter.Config)
	for _, d := range reg.Descriptors() {
		components[d.ElementName] = adapter.Build(d, components)
	}
	return components
}

func TestScanElements(t *testing.T) {
	elements := scanElements(`<div id="a"><x-badge vueBadgeText="Hi" v-bind:vueother="expr"/><br></div>`)

	require.Len(t, elements, 3)
	assert.Equal(t, "div", elements[0].name)
	assert.Equal(t, "a", elements[0].attrs["id"])
	assert.Equal(t, "x-badge", elements[1].name)
	assert.Equal(t, "Hi", elements[1].attrs["vuebadgetext"])
	assert.Equal(t, "br", elements[2].name)
}

func TestMount_LiteralProps(t *testing.T) {
	reg := registry.New()
	reg.Register("x-badge", badgeClass(), `<span>badge</span>`)
	engine := NewEngine()

	_, err := engine.Mount(NewContainer("", nil), app.MountOptions{
		Template:   `<x-badge badgeText="New"></x-badge>`,
		Components: configs(reg),
	})
	require.NoError(t, err)

	// the root template is not compiled, so the plain attribute is no prop
	vms := engine.Instances("x-badge")
	require.Len(t, vms, 1)
	assert.Empty(t, vms[0].PropsData())

	child, err := engine.Mount(NewContainer("", nil), app.MountOptions{
		Template:   `<x-badge vuebadgetext="New"></x-badge>`,
		Components: configs(reg),
	})
	require.NoError(t, err)
	root := child.(*Root)
	require.Len(t, root.Children(), 1)
	assert.Equal(t, map[string]any{"vuebadgeText": "New"}, root.Children()[0].PropsData())
	assert.Equal(t, "New", root.Children()[0].Instance().Value().(*badge).text)
}

func TestMount_EmptyTemplate(t *testing.T) {
	_, err := NewEngine().Mount(NewContainer("", nil), app.MountOptions{Template: "  "})

	assert.ErrorIs(t, err, ErrEmptyTemplate)
}

func TestMount_DepthLimit(t *testing.T) {
	reg := registry.New()
	reg.Register("x-loop", nil, `<div><x-loop></x-loop></div>`)
	engine := NewEngine()
	engine.MaxDepth = 3

	_, err := engine.Mount(NewContainer("", nil), app.MountOptions{
		Template:   `<x-loop></x-loop>`,
		Components: configs(reg),
	})
	require.NoError(t, err)

	assert.Len(t, engine.Instances("x-loop"), 3)
	assert.Contains(t, engine.Warnings(), "Maximum component depth 3 exceeded.")
}

func TestFlush(t *testing.T) {
	engine := NewEngine()
	var order []int

	engine.NextTick(func() {
		order = append(order, 1)
		engine.NextTick(func() { order = append(order, 3) })
	})
	engine.NextTick(func() { order = append(order, 2) })
	engine.NextTick(func() { panic("tick failed") })

	assert.Equal(t, 3, engine.Pending())
	assert.Equal(t, 4, engine.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, engine.Pending())
	require.Len(t, engine.Errors(), 1)
	assert.EqualError(t, engine.Errors()[0], "tick failed")
}

func TestVM_UnknownMember(t *testing.T) {
	reg := registry.New()
	reg.Register("x-badge", badgeClass(), `<span>badge</span>`)
	vm := NewEngine().Create(configs(reg)["x-badge"], nil)

	_, err := vm.Call("missing")
	assert.ErrorIs(t, err, ErrUnknownMember)

	_, err = vm.Computed("missing")
	assert.ErrorIs(t, err, ErrUnknownMember)
}
