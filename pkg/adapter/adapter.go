// Package adapter turns a registry descriptor into the configuration a host
// rendering engine consumes: a data factory, method and computed tables,
// prop watchers and lifecycle hooks.
//
// The engine only sees changes through the instance change counter. Wrapped
// methods, prop assignments and init tick it; computed members read it.
package adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/conneroisu/unobtrusive/internal/logging"
	"github.com/conneroisu/unobtrusive/pkg/coerce"
	"github.com/conneroisu/unobtrusive/pkg/component"
	"github.com/conneroisu/unobtrusive/pkg/reactive"
	"github.com/conneroisu/unobtrusive/pkg/registry"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

// RenderErrorMarkup is what the dev-mode render error hook renders.
const RenderErrorMarkup = `<pre style="color: red">❌ Rendering error (see console)</pre>`

// Method is a wrapped component method.
type Method func(vm VM, args ...any) any

// Computed is a wrapped getter.
type Computed func(vm VM) any

// Watcher reacts to a prop changing from previous to value.
type Watcher func(vm VM, value, previous any)

// Hook is a lifecycle callback.
type Hook func(vm VM)

// Config is the host engine configuration for one component. It is rebuilt
// on every hot update and holds no state beyond closures over its
// descriptor.
type Config struct {
	Name        string
	Template    string
	Props       []string
	Data        func() *Instance
	Methods     map[string]Method
	Computed    map[string]Computed
	Watch       map[string]Watcher
	BeforeMount Hook
	Mounted     Hook
	Destroyed   Hook
	// RenderError is set in dev mode only.
	RenderError func(err error) string
	// Components are the sibling configurations the template may use. The
	// map is shared between all components of an app.
	Components map[string]*Config
	Descriptor *registry.Descriptor
}

// Option configures Build.
type Option func(*options)

type options struct {
	renderError bool
	onCreating  func(*registry.Descriptor, map[string]Computed)
	params      func() *component.Params
	logger      logging.Logger
}

// WithRenderError installs the dev-mode render error fallback.
func WithRenderError() Option {
	return func(o *options) {
		o.renderError = true
	}
}

// WithComponentCreating calls fn with the descriptor and the computed table
// while the configuration is built.
func WithComponentCreating(fn func(*registry.Descriptor, map[string]Computed)) Option {
	return func(o *options) {
		o.onCreating = fn
	}
}

// WithParams resolves constructor params per instance instead of using the
// descriptor's params.
func WithParams(fn func() *component.Params) Option {
	return func(o *options) {
		o.params = fn
	}
}

// WithLogger sets the logger for assignment failures.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Build synthesizes the host configuration for d. siblings is stored as
// Config.Components and may be filled in after Build returns.
func Build(d *registry.Descriptor, siblings map[string]*Config, opts ...Option) *Config {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	class := d.Class
	if class == nil {
		class = component.Blank()
	}

	b := &builder{
		descriptor: d,
		class:      class,
		logger:     o.logger.WithComponent(d.ElementName),
		setters:    make(map[string]func(*Instance, any)),
	}
	b.params = func() *component.Params { return d.Params }
	if o.params != nil {
		b.params = o.params
	}

	cfg := &Config{
		Name:       d.ElementName,
		Template:   d.Template,
		Props:      b.props(),
		Data:       b.data,
		Methods:    b.methods(),
		Computed:   b.computed(),
		Components: siblings,
		Descriptor: d,
	}
	cfg.Watch = b.watch(cfg.Props)
	cfg.BeforeMount = b.beforeMount(cfg.Props)
	cfg.Mounted = b.mounted
	cfg.Destroyed = b.destroyed
	if o.renderError {
		cfg.RenderError = func(error) string { return RenderErrorMarkup }
	}
	if o.onCreating != nil {
		o.onCreating(d, cfg.Computed)
	}
	return cfg
}

type builder struct {
	descriptor *registry.Descriptor
	class      *component.Class
	params     func() *component.Params
	logger     logging.Logger
	// setters wrap the class setters of bound props with a counter tick.
	setters map[string]func(*Instance, any)
}

func (b *builder) data() *Instance {
	inst := newInstance(b.class, b.params())
	inst.counter.Reset()
	return inst
}

func (b *builder) props() []string {
	props := make([]string, 0, len(b.descriptor.Properties))
	for _, name := range b.descriptor.Properties {
		props = append(props, template.PrefixedPropertyName(name))
	}
	return props
}

func (b *builder) methods() map[string]Method {
	methods := make(map[string]Method, len(b.descriptor.Methods))
	for _, name := range b.descriptor.Methods {
		m, ok := b.class.Member(name)
		if !ok || m.Call == nil {
			continue
		}
		call := m.Call
		methods[name] = func(vm VM, args ...any) any {
			inst := vm.Instance()
			result := call(inst.value, args...)
			inst.counter.Tick()
			tickWhenSettled(vm, inst, result)
			return result
		}
	}
	return methods
}

func (b *builder) computed() map[string]Computed {
	computed := make(map[string]Computed, len(b.descriptor.Computed))
	for _, name := range b.descriptor.Computed {
		m, ok := b.class.Member(name)
		if !ok || m.Get == nil {
			computed[name] = nil
			continue
		}
		get := m.Get
		computed[name] = func(vm VM) any {
			inst := vm.Instance()
			inst.counter.Read()
			value := get(inst.value)
			if reactive.Promotable(value) {
				return reactive.Promote(value, inst.counter)
			}
			return value
		}
	}
	return computed
}

func (b *builder) watch(props []string) map[string]Watcher {
	watch := make(map[string]Watcher, len(props))
	for _, prop := range props {
		name := template.OriginalPropertyName(prop)
		m, ok := b.class.Member(name)
		if !ok || m.Set == nil {
			continue
		}
		set := m.Set
		b.setters[name] = func(inst *Instance, value any) {
			set(inst.value, value)
			inst.counter.Tick()
		}
		watch[prop] = func(vm VM, value, previous any) {
			if same(value, previous) {
				return
			}
			b.assign(vm.Instance(), name, value)
		}
	}
	return watch
}

func (b *builder) beforeMount(props []string) Hook {
	return func(vm VM) {
		inst := vm.Instance()
		supplied := vm.PropsData()
		for _, prop := range props {
			value, ok := supplied[prop]
			if !ok {
				continue
			}
			b.assign(inst, template.OriginalPropertyName(prop), value)
		}
	}
}

func (b *builder) mounted(vm VM) {
	inst := vm.Instance()
	hook, ok := b.class.Member(component.Init)
	if !ok || hook.Call == nil {
		inst.counter.Tick()
		return
	}
	call := hook.Call
	vm.NextTick(func() {
		inst.initOnce.Do(func() {
			result := call(inst.value, vm.Element())
			inst.counter.Tick()
			tickWhenSettled(vm, inst, result)
		})
	})
	inst.counter.Tick()
}

func (b *builder) destroyed(vm VM) {
	inst := vm.Instance()
	inst.disposed.Store(true)
	if dispose, ok := b.class.Member(component.Dispose); ok && dispose.Call != nil {
		dispose.Call(inst.value)
	}
}

// assign coerces value and stores it in the named property.
func (b *builder) assign(inst *Instance, name string, value any) {
	coerced := coerce.Value(value, coerce.WithCounter(inst.counter))
	if set, ok := b.setters[name]; ok {
		set(inst, coerced)
		return
	}
	if err := inst.data.Set(name, coerced); err != nil {
		b.logger.Warn(context.Background(), err, "cannot assign prop",
			"property", name,
			"value", fmt.Sprintf("%v", value))
	}
}

// same reports whether a and b are the same value: equal when comparable,
// the same reference otherwise.
func same(a, b any) (equal bool) {
	defer func() {
		// comparable structs may still hold uncomparable interface values
		if recover() != nil {
			equal = false
		}
	}()
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return va.Pointer() == vb.Pointer() && (va.Kind() != reflect.Slice || va.Len() == vb.Len())
	}
	return false
}
