package hosttest

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/conneroisu/unobtrusive/pkg/adapter"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

// ErrUnknownMember is returned when a VM is asked for a method or computed
// member its configuration does not define.
var ErrUnknownMember = errors.New("hosttest: unknown member")

// Element is the rendered root element of a VM.
type Element struct {
	Tag  string
	HTML string
	// Compiled reports whether HTML carries the compiled root marker.
	Compiled bool
}

// VM is one live component. It implements adapter.VM.
type VM struct {
	engine   *Engine
	parent   *VM
	config   *adapter.Config
	inst     *adapter.Instance
	props    map[string]any
	depth    int
	children []*VM
	element  *Element

	renders     int
	cache       map[string]cachedValue
	unsubscribe func()
	dirty       atomic.Bool
	destroyed   bool
}

type cachedValue struct {
	version uint64
	value   any
}

var _ adapter.VM = (*VM)(nil)

// Instance returns the component data.
func (vm *VM) Instance() *adapter.Instance {
	return vm.inst
}

// PropsData returns the props supplied by the parent.
func (vm *VM) PropsData() map[string]any {
	out := make(map[string]any, len(vm.props))
	for k, v := range vm.props {
		out[k] = v
	}
	return out
}

// Element returns the rendered *Element.
func (vm *VM) Element() any {
	return vm.element
}

// NextTick queues fn on the engine.
func (vm *VM) NextTick(fn func()) {
	vm.engine.NextTick(fn)
}

// Config returns the configuration the VM was created or reloaded from.
func (vm *VM) Config() *adapter.Config {
	return vm.config
}

// Rendered returns the rendered root element.
func (vm *VM) Rendered() *Element {
	return vm.element
}

// Renders reports how many times the VM rendered.
func (vm *VM) Renders() int {
	return vm.renders
}

// Parent returns the enclosing VM, nil at the top level.
func (vm *VM) Parent() *VM {
	return vm.parent
}

// Children returns the component instances created from the VM's template.
func (vm *VM) Children() []*VM {
	return vm.children
}

// Destroyed reports whether the VM was torn down.
func (vm *VM) Destroyed() bool {
	return vm.destroyed
}

// Data reads key from the instance data.
func (vm *VM) Data(key string) (any, bool) {
	if vm.inst == nil {
		return nil, false
	}
	return vm.inst.Get(key)
}

// Call invokes the method name. A panic in the method is reported through
// the error handler and returned.
func (vm *VM) Call(name string, args ...any) (any, error) {
	fn, ok := vm.config.Methods[name]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	var result any
	err := vm.engine.guard(vm, fmt.Sprintf("method %q", name), func() {
		result = fn(vm, args...)
	})
	return result, err
}

// Computed evaluates the computed member name. Results are cached until the
// instance counter moves.
func (vm *VM) Computed(name string) (any, error) {
	fn, ok := vm.config.Computed[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	if fn == nil || vm.inst == nil {
		return nil, nil
	}
	version := vm.inst.Counter().Peek()
	if c, ok := vm.cache[name]; ok && c.version == version {
		return c.value, nil
	}
	var value any
	err := vm.engine.guard(vm, fmt.Sprintf("computed %q", name), func() {
		value = fn(vm)
	})
	if err != nil {
		return nil, err
	}
	vm.cache[name] = cachedValue{version: version, value: value}
	return value, nil
}

// SetProp changes the prop (prefixed name) as a parent re-render would and
// runs its watcher.
func (vm *VM) SetProp(prop string, value any) {
	previous := vm.props[prop]
	vm.props[prop] = value
	watch, ok := vm.config.Watch[prop]
	if !ok || watch == nil {
		return
	}
	_ = vm.engine.guard(vm, fmt.Sprintf("watcher %q", prop), func() {
		watch(vm, value, previous)
	})
}

// Destroy tears the VM and its children down.
func (vm *VM) Destroy() {
	if vm.destroyed {
		return
	}
	vm.stop()
	vm.engine.forget(vm)
}

func (vm *VM) start(cfg *adapter.Config) {
	vm.config = cfg
	vm.destroyed = false
	vm.inst = nil
	vm.cache = make(map[string]cachedValue)
	vm.element = &Element{Tag: cfg.Name}

	if cfg.Data != nil {
		_ = vm.engine.guard(vm, "data()", func() {
			vm.inst = cfg.Data()
		})
	}
	if vm.inst == nil {
		return
	}

	keys := vm.inst.Data().Keys()
	for _, name := range sortedNames(cfg.Computed) {
		if slices.Contains(keys, name) {
			vm.engine.warn(vm, fmt.Sprintf("The computed property %q is already defined in data.", name))
		}
	}

	vm.hook("beforeMount hook", cfg.BeforeMount)
	vm.render()
	vm.children = vm.engine.instantiate(vm, cfg.Template, vm.depth+1)
	vm.unsubscribe = vm.inst.Counter().Subscribe(func(uint64) {
		vm.dirty.Store(true)
	})
	vm.hook("mounted hook", cfg.Mounted)
}

func (vm *VM) stop() {
	for _, child := range vm.children {
		child.Destroy()
	}
	vm.children = nil
	if vm.unsubscribe != nil {
		vm.unsubscribe()
		vm.unsubscribe = nil
	}
	if vm.inst != nil {
		vm.hook("destroyed hook", vm.config.Destroyed)
	}
	vm.destroyed = true
}

func (vm *VM) hook(info string, fn adapter.Hook) {
	if fn == nil {
		return
	}
	_ = vm.engine.guard(vm, info, func() {
		fn(vm)
	})
}

// render evaluates every computed member and refreshes the element.
func (vm *VM) render() {
	if vm.inst == nil {
		return
	}
	vm.renders++
	out := vm.config.Template
	for _, name := range sortedNames(vm.config.Computed) {
		if _, err := vm.Computed(name); err != nil {
			if vm.config.RenderError != nil {
				out = vm.config.RenderError(err)
			}
			break
		}
	}
	vm.element.HTML = out
	vm.element.Compiled = template.IsCompiled(out)
}

// trace lists the component chain from vm to the root.
func (vm *VM) trace() string {
	var names []string
	for v := vm; v != nil; v = v.parent {
		names = append(names, "<"+v.config.Name+">")
	}
	return strings.Join(names, " < ")
}

func sortedNames(m map[string]adapter.Computed) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
