// Package component describes component classes: how an instance is
// constructed and which members it exposes to templates.
//
// Members are declared up front through a Definition and stored in a static
// table, in declaration order:
//
//	counter := component.Define(func(p *component.Params) *Counter { return &Counter{} }).
//		Method("increment", func(c *Counter, _ ...any) any { c.n++; return nil }).
//		Property("value", (*Counter).Value, (*Counter).SetValue).
//		Dispose((*Counter).Stop).
//		Class()
//
// The table is never modified after Class returns. Adapters wrap members in
// closures of their own instead of replacing them.
package component

import (
	"fmt"
	"reflect"

	"github.com/conneroisu/unobtrusive/pkg/reactive"
)

// Reserved member names. They are never classified.
const (
	Constructor = "constructor"
	Init        = "init"
	Dispose     = "dispose"
)

// Member is one declared member of a class. A member with neither Get nor Set
// is a method and must have Call.
type Member struct {
	Name string
	Call func(self any, args ...any) any
	Get  func(self any) any
	Set  func(self any, value any)
}

// IsMethod reports whether m has no accessors.
func (m Member) IsMethod() bool {
	return m.Get == nil && m.Set == nil
}

// HasGetter reports whether m can be read.
func (m Member) HasGetter() bool {
	return m.Get != nil
}

// HasSetter reports whether m can be written.
func (m Member) HasSetter() bool {
	return m.Set != nil
}

// Class is the static description of a component type.
type Class struct {
	name      string
	construct func(*Params) any
	members   []Member
	index     map[string]int
}

// NewClass builds a class from an untyped constructor and member list.
// Members sharing a name are merged, later accessors filling in missing ones.
func NewClass(name string, construct func(*Params) any, members ...Member) *Class {
	c := &Class{name: name, construct: construct, index: make(map[string]int)}
	for _, m := range members {
		c.add(m)
	}
	return c
}

// Blank returns a class with no members whose instances are empty structs.
func Blank() *Class {
	return NewClass("blank", func(*Params) any { return &struct{}{} })
}

func (c *Class) add(m Member) {
	if i, ok := c.index[m.Name]; ok {
		existing := &c.members[i]
		if m.Call != nil {
			existing.Call = m.Call
		}
		if m.Get != nil {
			existing.Get = m.Get
		}
		if m.Set != nil {
			existing.Set = m.Set
		}
		return
	}
	c.index[m.Name] = len(c.members)
	c.members = append(c.members, m)
}

// Name is the class name used in logs.
func (c *Class) Name() string {
	return c.name
}

// New constructs an instance for params. A nil constructor or a nil result
// yields an empty struct.
func (c *Class) New(params *Params) any {
	if c.construct == nil {
		return &struct{}{}
	}
	v := c.construct(params)
	if v == nil {
		return &struct{}{}
	}
	return v
}

// Members returns the member table in declaration order.
func (c *Class) Members() []Member {
	out := make([]Member, len(c.members))
	copy(out, c.members)
	return out
}

// Member looks a member up by name.
func (c *Class) Member(name string) (Member, bool) {
	i, ok := c.index[name]
	if !ok {
		return Member{}, false
	}
	return c.members[i], true
}

// Has reports whether the class declares name.
func (c *Class) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Call invokes the method name on self.
func (c *Class) Call(self any, name string, args ...any) (any, error) {
	m, ok := c.Member(name)
	if !ok || m.Call == nil {
		return nil, fmt.Errorf("component %s: no method %q", c.name, name)
	}
	return m.Call(self, args...), nil
}

// Accessors exposes the getters and setters of the class bound to self, for
// mirroring into reactive data.
func (c *Class) Accessors(self any) []reactive.Accessor {
	var out []reactive.Accessor
	for _, m := range c.members {
		if m.Get == nil || isReserved(m.Name) {
			continue
		}
		m := m
		a := reactive.Accessor{
			Name: m.Name,
			Get:  func() any { return m.Get(self) },
		}
		if m.Set != nil {
			a.Set = func(v any) { m.Set(self, v) }
		}
		out = append(out, a)
	}
	return out
}

// Definition declares the members of a class whose instances are *T.
type Definition[T any] struct {
	class *Class
}

// Define starts a class definition. A nil constructor allocates a zero T.
func Define[T any](construct func(*Params) *T) *Definition[T] {
	if construct == nil {
		construct = func(*Params) *T { return new(T) }
	}
	name := reflect.TypeOf((*T)(nil)).Elem().String()
	return &Definition[T]{
		class: NewClass(name, func(p *Params) any { return construct(p) }),
	}
}

// Method declares a method.
func (d *Definition[T]) Method(name string, fn func(c *T, args ...any) any) *Definition[T] {
	d.class.add(Member{
		Name: name,
		Call: func(self any, args ...any) any { return fn(self.(*T), args...) },
	})
	return d
}

// Getter declares a read accessor.
func (d *Definition[T]) Getter(name string, get func(c *T) any) *Definition[T] {
	d.class.add(Member{
		Name: name,
		Get:  func(self any) any { return get(self.(*T)) },
	})
	return d
}

// Setter declares a write accessor.
func (d *Definition[T]) Setter(name string, set func(c *T, value any)) *Definition[T] {
	d.class.add(Member{
		Name: name,
		Set:  func(self any, v any) { set(self.(*T), v) },
	})
	return d
}

// Property declares a read/write accessor pair.
func (d *Definition[T]) Property(name string, get func(c *T) any, set func(c *T, value any)) *Definition[T] {
	return d.Getter(name, get).Setter(name, set)
}

// Init declares the hook run once after the instance is first rendered. It
// receives the rendered root element and may return an awaitable.
func (d *Definition[T]) Init(fn func(c *T, root any) any) *Definition[T] {
	return d.Method(Init, func(c *T, args ...any) any {
		var root any
		if len(args) > 0 {
			root = args[0]
		}
		return fn(c, root)
	})
}

// Dispose declares the hook run when the instance is destroyed.
func (d *Definition[T]) Dispose(fn func(c *T)) *Definition[T] {
	return d.Method(Dispose, func(c *T, _ ...any) any {
		fn(c)
		return nil
	})
}

// Class returns the finished class.
func (d *Definition[T]) Class() *Class {
	return d.class
}

func isReserved(name string) bool {
	return name == Constructor || name == Init || name == Dispose
}
