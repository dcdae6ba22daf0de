package app

import (
	"github.com/conneroisu/unobtrusive/pkg/adapter"
)

// Container is the element an app is mounted into.
type Container interface {
	InnerHTML() string
	SetInnerHTML(html string)
	Attribute(name string) (string, bool)
}

// ErrorHandler receives errors raised while the engine runs component code.
// info names the hook or handler that failed.
type ErrorHandler func(err error, vm adapter.VM, info string)

// WarnHandler receives engine warnings.
type WarnHandler func(msg string, vm adapter.VM, trace string)

// EngineConfig is the global engine configuration an app installs.
type EngineConfig struct {
	DevTools      bool
	Performance   bool
	Silent        bool
	ProductionTip bool
	ErrorHandler  ErrorHandler
	WarnHandler   WarnHandler
}

// MountOptions describe the root of an app.
type MountOptions struct {
	Template   string
	Components map[string]*adapter.Config
	Data       map[string]any
	Config     EngineConfig
}

// Root is a mounted app root.
type Root interface {
	Destroy()
}

// Engine is the host rendering engine.
type Engine interface {
	Mount(container Container, opts MountOptions) (Root, error)
}

// HotReloader is implemented by engines that can swap a component
// configuration in place. Rerender keeps live instances and only replaces the
// template; Reload recreates every instance of the component.
type HotReloader interface {
	Rerender(name string, cfg *adapter.Config)
	Reload(name string, cfg *adapter.Config)
}
