// Package hosttest is an in-memory host engine for component tests.
//
// The engine instantiates the custom elements a template uses, drives their
// lifecycle hooks in the order a real engine would and renders again
// whenever an instance counter moves. Nothing runs in the background:
// NextTick callbacks and re-renders are processed by Flush on the caller's
// goroutine, so tests stay deterministic.
package hosttest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/conneroisu/unobtrusive/pkg/adapter"
	"github.com/conneroisu/unobtrusive/pkg/app"
)

// DefaultMaxDepth bounds nested component instantiation.
const DefaultMaxDepth = 16

// ErrEmptyTemplate is returned by Mount for a template without markup.
var ErrEmptyTemplate = errors.New("hosttest: empty root template")

// Engine is a fake host rendering engine. It implements app.Engine and
// app.HotReloader.
type Engine struct {
	// MountErr, when set, is returned by Mount.
	MountErr error
	// MaxDepth bounds nested instantiation. Zero means DefaultMaxDepth.
	MaxDepth int

	mu         sync.Mutex
	config     app.EngineConfig
	components map[string]*adapter.Config
	queue      []func()
	live       []*VM
	warnings   []string
	errs       []error
	mounted    int
}

var (
	_ app.Engine      = (*Engine)(nil)
	_ app.HotReloader = (*Engine)(nil)
)

// NewEngine returns an engine with nothing mounted.
func NewEngine() *Engine {
	return &Engine{}
}

// Mount instantiates every registered custom element of opts.Template.
func (e *Engine) Mount(container app.Container, opts app.MountOptions) (app.Root, error) {
	if e.MountErr != nil {
		return nil, e.MountErr
	}
	if strings.TrimSpace(opts.Template) == "" {
		return nil, ErrEmptyTemplate
	}

	e.mu.Lock()
	e.config = opts.Config
	e.components = opts.Components
	e.mounted++
	e.mu.Unlock()

	root := &Root{engine: e, container: container, template: opts.Template, data: opts.Data}
	root.vms = e.instantiate(nil, opts.Template, 0)
	container.SetInnerHTML(root.render())
	return root, nil
}

// Config returns the engine configuration installed by the last Mount.
func (e *Engine) Config() app.EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Mounts reports how many times Mount succeeded.
func (e *Engine) Mounts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// Warnings returns the warnings raised so far, including those the
// installed WarnHandler swallowed.
func (e *Engine) Warnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.warnings...)
}

// Errors returns the errors raised by component code so far.
func (e *Engine) Errors() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.errs...)
}

// Instances returns the live instances of the component name, in creation
// order. An empty name returns every live instance.
func (e *Engine) Instances(name string) []*VM {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*VM
	for _, vm := range e.live {
		if name == "" || vm.config.Name == name {
			out = append(out, vm)
		}
	}
	return out
}

// Create instantiates cfg directly, outside any template, with the given
// props keyed by prefixed name.
func (e *Engine) Create(cfg *adapter.Config, props map[string]any) *VM {
	return e.create(nil, cfg, props, 0)
}

// NextTick queues fn for the next Flush. It is safe to call from any
// goroutine.
func (e *Engine) NextTick(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
}

// Pending reports the number of queued callbacks.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Flush runs queued callbacks until the queue is empty, then renders every
// instance whose counter moved since its last render. It returns the number
// of callbacks run.
func (e *Engine) Flush() int {
	ran := 0
	for {
		e.mu.Lock()
		queue := e.queue
		e.queue = nil
		e.mu.Unlock()
		if len(queue) == 0 {
			break
		}
		for _, fn := range queue {
			_ = e.guard(nil, "nextTick", fn)
			ran++
		}
	}
	for _, vm := range e.Instances("") {
		if vm.dirty.Swap(false) {
			vm.render()
		}
	}
	return ran
}

// Rerender swaps the configuration of live instances of name and renders
// them again, keeping their data.
func (e *Engine) Rerender(name string, cfg *adapter.Config) {
	for _, vm := range e.Instances(name) {
		vm.config = cfg
		vm.render()
	}
}

// Reload recreates every live instance of name from cfg with the props it
// was created with.
func (e *Engine) Reload(name string, cfg *adapter.Config) {
	for _, vm := range e.Instances(name) {
		vm.stop()
		vm.start(cfg)
	}
}

func (e *Engine) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

// instantiate creates the registered custom elements found in tmpl.
func (e *Engine) instantiate(parent *VM, tmpl string, depth int) []*VM {
	if depth >= e.maxDepth() {
		e.warn(parent, fmt.Sprintf("Maximum component depth %d exceeded.", e.maxDepth()))
		return nil
	}

	e.mu.Lock()
	components := e.components
	e.mu.Unlock()

	var vms []*VM
	for _, el := range scanElements(tmpl) {
		cfg, ok := components[el.name]
		if !ok {
			if strings.Contains(el.name, "-") {
				e.warn(parent, fmt.Sprintf("Unknown custom element: <%s>", el.name))
			}
			continue
		}
		vms = append(vms, e.create(parent, cfg, propsFor(cfg, el.attrs), depth))
	}
	return vms
}

func (e *Engine) create(parent *VM, cfg *adapter.Config, props map[string]any, depth int) *VM {
	vm := &VM{
		engine: e,
		parent: parent,
		props:  make(map[string]any, len(props)),
		depth:  depth,
	}
	for k, v := range props {
		vm.props[k] = v
	}

	e.mu.Lock()
	e.live = append(e.live, vm)
	e.mu.Unlock()

	vm.start(cfg)
	return vm
}

func (e *Engine) forget(vm *VM) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range e.live {
		if v == vm {
			e.live = append(e.live[:i], e.live[i+1:]...)
			return
		}
	}
}

func (e *Engine) warn(vm *VM, msg string) {
	e.mu.Lock()
	e.warnings = append(e.warnings, msg)
	cfg := e.config
	e.mu.Unlock()

	if cfg.Silent || cfg.WarnHandler == nil {
		return
	}
	trace := ""
	if vm != nil {
		trace = vm.trace()
	}
	var handle adapter.VM
	if vm != nil {
		handle = vm
	}
	cfg.WarnHandler(msg, handle, trace)
}

func (e *Engine) fail(vm *VM, err error, info string) {
	e.mu.Lock()
	e.errs = append(e.errs, err)
	cfg := e.config
	e.mu.Unlock()

	if cfg.ErrorHandler != nil {
		var handle adapter.VM
		if vm != nil {
			handle = vm
		}
		cfg.ErrorHandler(err, handle, info)
	}
}

// guard runs fn and reports a panic through the error handler.
func (e *Engine) guard(vm *VM, info string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(error); ok {
				err = re
			} else {
				err = fmt.Errorf("%v", r)
			}
			e.fail(vm, err, info)
		}
	}()
	fn()
	return nil
}

type element struct {
	name  string
	attrs map[string]string
}

// scanElements lists the opening tags of tmpl with their attributes.
func scanElements(tmpl string) []element {
	var out []element
	z := html.NewTokenizer(strings.NewReader(tmpl))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		el := element{name: string(name), attrs: make(map[string]string)}
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			el.attrs[string(key)] = string(val)
		}
		out = append(out, el)
	}
}

// propsFor picks the literal props of cfg out of attrs. The tokenizer lower
// cases attribute names, props are matched case-insensitively.
func propsFor(cfg *adapter.Config, attrs map[string]string) map[string]any {
	props := make(map[string]any)
	for _, prop := range cfg.Props {
		if v, ok := attrs[strings.ToLower(prop)]; ok {
			props[prop] = v
		}
	}
	return props
}

// Root is a mounted root.
type Root struct {
	engine    *Engine
	container app.Container
	template  string
	data      map[string]any
	vms       []*VM
	destroyed bool
}

// Data returns the root data the app passed to Mount.
func (r *Root) Data() map[string]any {
	return r.data
}

// Template returns the root template.
func (r *Root) Template() string {
	return r.template
}

// Children returns the top level instances.
func (r *Root) Children() []*VM {
	return r.vms
}

// Destroyed reports whether Destroy ran.
func (r *Root) Destroyed() bool {
	return r.destroyed
}

// Destroy tears down every instance of the root.
func (r *Root) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	for _, vm := range r.vms {
		vm.Destroy()
	}
	r.container.SetInnerHTML("")
}

func (r *Root) render() string {
	var b strings.Builder
	for _, vm := range r.vms {
		b.WriteString(vm.element.HTML)
	}
	return b.String()
}
