package adapter

import (
	"sync"
	"sync/atomic"

	"github.com/conneroisu/unobtrusive/pkg/component"
	"github.com/conneroisu/unobtrusive/pkg/reactive"
)

// VM is the host engine's handle on one live component. The engine creates
// the instance through Config.Data and hands the VM to every hook.
type VM interface {
	// Instance returns the data Config.Data created for this component.
	Instance() *Instance
	// PropsData returns the props the caller actually supplied, keyed by
	// their prefixed names.
	PropsData() map[string]any
	// Element returns the rendered root element.
	Element() any
	// NextTick runs fn after the current render commits.
	NextTick(fn func())
}

// Instance is the component data the host engine owns: the value built by
// the class constructor, its change counter and the observable view the
// engine renders from.
type Instance struct {
	value    any
	class    *component.Class
	counter  *reactive.Counter
	data     *reactive.Observable
	initOnce sync.Once
	disposed atomic.Bool
}

func newInstance(class *component.Class, params *component.Params) *Instance {
	value := class.New(params)
	counter := reactive.NewCounter()
	return &Instance{
		value:   value,
		class:   class,
		counter: counter,
		data:    reactive.Mirror(value, counter, class.Accessors(value)...),
	}
}

// Value returns the class instance.
func (i *Instance) Value() any {
	return i.value
}

// Class returns the class the instance was built from.
func (i *Instance) Class() *component.Class {
	return i.class
}

// Counter returns the change counter.
func (i *Instance) Counter() *reactive.Counter {
	return i.counter
}

// Data returns the observable view of the instance.
func (i *Instance) Data() *reactive.Observable {
	return i.data
}

// Get reads name from the instance data.
func (i *Instance) Get(name string) (any, bool) {
	return i.data.Get(name)
}

// Disposed reports whether the destroyed hook ran.
func (i *Instance) Disposed() bool {
	return i.disposed.Load()
}

// ForceUpdate ticks the change counter of inst so the host engine
// re-evaluates its computed members and renders again.
func ForceUpdate(inst *Instance) {
	if inst == nil {
		return
	}
	inst.counter.Tick()
}
