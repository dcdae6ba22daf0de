//go:build property
// +build property

package template

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// fragments are well-formed building blocks combined into random templates.
var fragments = []interface{}{
	`<span title="{{ heading }}">text</span>`,
	`<input value="{{ name }}">`,
	`<input type="checkbox" checked="{{ done }}">`,
	`<button onclick="{{ save(event) }}">Save</button>`,
	`<form onsubmit="{{ submit() }}"></form>`,
	`<li render-for="{{ items }}">{{ $item.label }}</li>`,
	`<p render-if="{{ visible }}">{{ a > b }}</p>`,
	`<my-comp />`,
	"<my-comp\n data-id=\"1\"\n/>",
	`<x-card title="{{ title }}" onpick="{{ pick(event) }}" size="large" data-key="{{ key }}" />`,
	`<x-card data-plain="yes"></x-card>`,
	`<div data-with-is-args="{{ {a: 1} }}" is="{{ kind }}"></div>`,
	"\n  ",
	`<!-- note -->`,
	`<br />`,
}

func buildTemplate(root string, children []string) string {
	return "<" + root + ">" + strings.Join(children, "") + "</" + root + ">"
}

func TestCompileProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("compiling twice equals compiling once", prop.ForAll(
		func(root string, children []string) bool {
			once := Compile(buildTemplate(root, children))
			return Compile(once) == once
		},
		gen.OneConstOf("div", "section", "main-layout"),
		gen.SliceOfN(6, gen.OneConstOf(fragments...)),
	))

	properties.Property("exactly one root marker on the root tag", prop.ForAll(
		func(root string, children []string) bool {
			out := Compile(buildTemplate(root, children))
			return strings.Count(out, RootMarker) == 1 &&
				strings.HasPrefix(out, "<"+root+" "+RootMarker)
		},
		gen.OneConstOf("div", "section", "main-layout"),
		gen.SliceOfN(6, gen.OneConstOf(fragments...)),
	))

	properties.Property("self-closing custom tags are expanded", prop.ForAll(
		func(children []string) bool {
			out := Compile(buildTemplate("div", children))
			for _, tok := range tokenize(out) {
				if isOpeningTag(tok.kind) {
					tg := parseTag(tok.raw)
					if tg.custom() && tg.selfClosing {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.OneConstOf(fragments...)),
	))

	properties.Property("render directives are reproducible", prop.ForAll(
		func(expr string) bool {
			src := `<div render-if="{{` + expr + `}}"><i render-for="{{ ` + expr + ` }}"></i></div>`
			out := Compile(src)
			return out == Compile(src) &&
				strings.Contains(out, `v-if="`+expr+`"`) &&
				strings.Contains(out, `v-for="($item, $index) in `+expr+`" :key="$item.id"`)
		},
		gen.Identifier(),
	))

	properties.Property("custom element event props keep the bare event token", prop.ForAll(
		func(fn string) bool {
			out := Compile(`<div><x-y onpick="{{ ` + fn + `(event) }}"></x-y><a onclick="{{ ` + fn + `(event) }}"></a></div>`)
			return strings.Contains(out, fn+"(event) }.bind(this)") &&
				strings.Contains(out, `@click="`+fn+`($event)"`)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
