//go:build property
// +build property

package component

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	shapeMethod = iota
	shapeGetter
	shapeSetter
	shapeBoth
)

func classWithShapes(shapes []int) *Class {
	noop := func(any, ...any) any { return nil }
	get := func(any) any { return nil }
	set := func(any, any) {}

	members := []Member{{Name: Init, Call: noop}, {Name: Dispose, Call: noop}}
	for i, shape := range shapes {
		m := Member{Name: fmt.Sprintf("m%d", i)}
		switch shape {
		case shapeMethod:
			m.Call = noop
		case shapeGetter:
			m.Get = get
		case shapeSetter:
			m.Set = set
		case shapeBoth:
			m.Get, m.Set = get, set
		}
		members = append(members, m)
	}
	return NewClass("generated", nil, members...)
}

func TestClassifyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every member lands in methods xor accessors", prop.ForAll(
		func(shapes []int) bool {
			got := Classify(classWithShapes(shapes))
			in := func(list []string, name string) bool {
				for _, n := range list {
					if n == name {
						return true
					}
				}
				return false
			}
			for i := range shapes {
				name := fmt.Sprintf("m%d", i)
				method := in(got.Methods, name)
				accessor := in(got.Properties, name) || in(got.Computed, name)
				if method == accessor {
					return false
				}
			}
			return len(got.Methods)+countAccessors(got) == len(shapes)
		},
		gen.SliceOfN(12, gen.IntRange(shapeMethod, shapeBoth)),
	))

	properties.Property("reserved members are never classified", prop.ForAll(
		func(shapes []int) bool {
			got := Classify(classWithShapes(shapes))
			for _, list := range [][]string{got.Methods, got.Properties, got.Computed} {
				for _, name := range list {
					if isReserved(name) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(shapeMethod, shapeBoth)),
	))

	properties.TestingRun(t)
}

// countAccessors counts distinct names across properties and computed.
func countAccessors(c Classification) int {
	seen := map[string]bool{}
	for _, n := range c.Properties {
		seen[n] = true
	}
	for _, n := range c.Computed {
		seen[n] = true
	}
	return len(seen)
}
