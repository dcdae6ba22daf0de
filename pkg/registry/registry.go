// Package registry keeps the process-wide table of component descriptors,
// keyed by custom element name.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/unobtrusive/pkg/component"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

// ErrNotFound is returned for element names that were never registered.
var ErrNotFound = errors.New("component not registered")

// Descriptor is everything needed to build a component: its class, the
// classified member names and the compiled template. Descriptors are
// replaced, never mutated, once published by a Registry.
type Descriptor struct {
	ElementName string
	Class       *component.Class
	Template    string
	Methods     []string
	Properties  []string
	Computed    []string
	Params      *component.Params
	Version     int
	UpdatedAt   time.Time
}

// Classification returns the member names as a component.Classification.
func (d *Descriptor) Classification() component.Classification {
	return component.Classification{
		Methods:    d.Methods,
		Properties: d.Properties,
		Computed:   d.Computed,
	}
}

func (d *Descriptor) clone() *Descriptor {
	c := *d
	return &c
}

// EventType is the kind of registry change.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
)

func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event describes a change in the registry.
type Event struct {
	Type       EventType
	Descriptor *Descriptor
	Previous   *Descriptor
	Timestamp  time.Time
}

// TemplateChanged reports whether the update replaced the compiled template.
func (e Event) TemplateChanged() bool {
	return e.Previous == nil || e.Previous.Template != e.Descriptor.Template
}

// MembersChanged reports whether the update changed the class or its
// classification.
func (e Event) MembersChanged() bool {
	if e.Previous == nil {
		return true
	}
	return e.Previous.Class != e.Descriptor.Class ||
		!e.Previous.Classification().Equal(e.Descriptor.Classification())
}

// Registry maps element names to descriptors and remembers registration
// order.
type Registry struct {
	entries  map[string]*Descriptor
	order    []string
	mutex    sync.RWMutex
	watchers []chan Event

	compileOpts []template.Option
	cache       *template.Cache
}

// Option configures a Registry.
type Option func(*Registry)

// WithCompileOptions passes opts to every template compilation.
func WithCompileOptions(opts ...template.Option) Option {
	return func(r *Registry) {
		r.compileOpts = append(r.compileOpts, opts...)
	}
}

// WithCache compiles templates through c. Compile options of the cache apply
// instead of WithCompileOptions.
func WithCache(c *template.Cache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*Descriptor),
		watchers: make([]chan Event, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the registry components register into at definition time.
var Default = New()

// Component registers class under name in Default.
func Component(name, tmpl string, class *component.Class) *Descriptor {
	return Default.Register(name, class, tmpl)
}

// Register classifies class, compiles tmpl and stores the result under name,
// replacing any previous descriptor. A nil class registers a blank one.
func (r *Registry) Register(name string, class *component.Class, tmpl string) *Descriptor {
	if class == nil {
		class = component.Blank()
	}
	classes := component.Classify(class)
	d := &Descriptor{
		ElementName: name,
		Class:       class,
		Template:    r.compile(tmpl),
		Methods:     classes.Methods,
		Properties:  classes.Properties,
		Computed:    classes.Computed,
		UpdatedAt:   time.Now(),
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, exists := r.entries[name]
	if exists {
		d.Params = previous.Params
		d.Version = previous.Version + 1
	} else {
		r.order = append(r.order, name)
	}
	r.publish(d, previous)
	return d
}

// Get retrieves a descriptor by element name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	d, exists := r.entries[name]
	return d, exists
}

// Descriptors returns every descriptor in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.entries[name])
	}
	return result
}

// Names returns the registered element names in registration order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered components.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.entries)
}

// SetParams attaches the params layer passed to the class constructor of
// name.
func (r *Registry) SetParams(name string, params *component.Params) error {
	return r.update(name, func(d *Descriptor) {
		d.Params = params
	})
}

// UpdateTemplate compiles tmpl and replaces the template of name.
func (r *Registry) UpdateTemplate(name, tmpl string) (*Descriptor, error) {
	compiled := r.compile(tmpl)
	var out *Descriptor
	err := r.update(name, func(d *Descriptor) {
		d.Template = compiled
		out = d
	})
	return out, err
}

// Update replaces the class of name and classifies it again.
func (r *Registry) Update(name string, class *component.Class) (*Descriptor, error) {
	if class == nil {
		class = component.Blank()
	}
	classes := component.Classify(class)
	var out *Descriptor
	err := r.update(name, func(d *Descriptor) {
		d.Class = class
		d.Methods = classes.Methods
		d.Properties = classes.Properties
		d.Computed = classes.Computed
		out = d
	})
	return out, err
}

func (r *Registry) update(name string, mutate func(*Descriptor)) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, exists := r.entries[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	d := previous.clone()
	mutate(d)
	d.Version++
	d.UpdatedAt = time.Now()
	r.publish(d, previous)
	return nil
}

// publish stores d and notifies watchers. Callers hold the write lock.
func (r *Registry) publish(d, previous *Descriptor) {
	r.entries[d.ElementName] = d

	event := Event{
		Type:       EventTypeAdded,
		Descriptor: d,
		Previous:   previous,
		Timestamp:  d.UpdatedAt,
	}
	if previous != nil {
		event.Type = EventTypeUpdated
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives registry events.
func (r *Registry) Watch() <-chan Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan Event, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *Registry) UnWatch(ch <-chan Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

func (r *Registry) compile(tmpl string) string {
	if r.cache != nil {
		return r.cache.Compile(tmpl)
	}
	return template.Compile(tmpl, r.compileOpts...)
}
