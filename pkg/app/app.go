// Package app bootstraps an application: it builds a host configuration for
// every registered component, mounts the root through the host engine and
// routes engine errors and warnings.
package app

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/logging"
	"github.com/conneroisu/unobtrusive/pkg/adapter"
	"github.com/conneroisu/unobtrusive/pkg/component"
	"github.com/conneroisu/unobtrusive/pkg/registry"
)

const (
	// DefaultRootTemplate is mounted when the container has no markup.
	DefaultRootTemplate = "<main-layout></main-layout>"

	// DataObjectAttribute holds the JSON object used as root data.
	DataObjectAttribute = "data-object"
)

// Getter and setter pairs are classified as data and computed at once, so
// the engine's duplicate definition warning is expected.
var computedInDataWarning = regexp.MustCompile(`The computed property .* is already defined in data`)

// Options configure an App. The zero value is valid.
type Options struct {
	IsDev bool
	// Registry defaults to registry.Default.
	Registry *registry.Registry
	Logger   logging.Logger

	OnAppCreating       func(engine Engine, components map[string]*adapter.Config)
	OnComponentCreating func(d *registry.Descriptor, computed map[string]adapter.Computed)
	OnComponentUpdated  func(name string, cfg *adapter.Config, mode UpdateMode)

	ErrorHandler ErrorHandler
	WarnHandler  WarnHandler
}

// App is a mounted application.
type App struct {
	engine   Engine
	root     Root
	registry *registry.Registry
	params   *component.Params
	opts     Options
	logger   logging.Logger

	mu         sync.RWMutex
	components map[string]*adapter.Config
	extra      map[string]*component.Params

	disposeOnce sync.Once
}

// New builds every registered component, mounts container through engine
// and returns the running app. params is the base layer handed to every
// component constructor.
func New(engine Engine, container Container, params *component.Params, opts *Options) (*App, error) {
	a := &App{
		engine:     engine,
		params:     params,
		components: make(map[string]*adapter.Config),
		extra:      make(map[string]*component.Params),
	}
	if opts != nil {
		a.opts = *opts
	}
	if a.params == nil {
		a.params = component.NewParams(nil)
	}
	a.registry = a.opts.Registry
	if a.registry == nil {
		a.registry = registry.Default
	}
	a.logger = a.opts.Logger
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	a.logger = a.logger.WithComponent("app")

	for _, d := range a.registry.Descriptors() {
		a.components[d.ElementName] = a.build(d)
	}

	tmpl := container.InnerHTML()
	if isBlank(tmpl) {
		tmpl = DefaultRootTemplate
	}
	container.SetInnerHTML("")
	data := a.parseDataObject(container)

	if a.opts.OnAppCreating != nil {
		a.opts.OnAppCreating(engine, a.components)
	}

	cfg := EngineConfig{
		ErrorHandler: a.handleError,
		WarnHandler:  a.handleWarning,
	}
	if a.opts.IsDev {
		cfg.DevTools = true
		cfg.Performance = true
	} else {
		cfg.Silent = true
	}

	root, err := engine.Mount(container, MountOptions{
		Template:   tmpl,
		Components: a.components,
		Data:       data,
		Config:     cfg,
	})
	if err != nil {
		return nil, errors.NewHostError(errors.ErrCodeMountFailed, "mount app", err)
	}
	a.root = root

	a.logger.Info(context.Background(), "app mounted",
		"components", len(a.components),
		"dev", a.opts.IsDev)
	return a, nil
}

// SetAdditionalComponentParams layers values over the app params for the
// component name. The layer applies to instances created afterwards and
// survives hot updates.
func (a *App) SetAdditionalComponentParams(name string, values map[string]any) error {
	layer := a.params.Extend(values)
	if err := a.registry.SetParams(name, layer); err != nil {
		return errors.WrapValidation(err, errors.ErrCodeComponentNotFound, "set component params").
			WithComponent(name)
	}

	a.mu.Lock()
	a.extra[name] = layer
	a.mu.Unlock()
	return nil
}

// Components returns a copy of the component configurations by element
// name.
func (a *App) Components() map[string]*adapter.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]*adapter.Config, len(a.components))
	for name, cfg := range a.components {
		out[name] = cfg
	}
	return out
}

// Component returns the configuration of name.
func (a *App) Component(name string) (*adapter.Config, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cfg, ok := a.components[name]
	return cfg, ok
}

// Root returns the mounted root.
func (a *App) Root() Root {
	return a.root
}

// Engine returns the host engine.
func (a *App) Engine() Engine {
	return a.engine
}

// Params returns the base params layer.
func (a *App) Params() *component.Params {
	return a.params
}

// Dispose destroys the mounted root. Calling it again has no effect.
func (a *App) Dispose() {
	a.disposeOnce.Do(func() {
		if a.root != nil {
			a.root.Destroy()
		}
		a.logger.Info(context.Background(), "app disposed")
	})
}

func (a *App) build(d *registry.Descriptor) *adapter.Config {
	name := d.ElementName
	opts := []adapter.Option{
		adapter.WithParams(func() *component.Params { return a.paramsFor(name) }),
		adapter.WithLogger(a.logger),
	}
	if a.opts.IsDev {
		opts = append(opts, adapter.WithRenderError())
	}
	if a.opts.OnComponentCreating != nil {
		opts = append(opts, adapter.WithComponentCreating(a.opts.OnComponentCreating))
	}
	return adapter.Build(d, a.components, opts...)
}

// paramsFor returns a fresh layer for one instance of name so constructor
// writes never reach shared layers.
func (a *App) paramsFor(name string) *component.Params {
	a.mu.RLock()
	layer, ok := a.extra[name]
	a.mu.RUnlock()
	if !ok {
		layer = a.params
	}
	return layer.Extend(nil)
}

// parseDataObject reads the container's JSON data blob. Anything but a JSON
// object yields empty data.
func (a *App) parseDataObject(container Container) map[string]any {
	data := make(map[string]any)
	raw, ok := container.Attribute(DataObjectAttribute)
	if !ok || strings.TrimSpace(raw) == "" {
		return data
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil || data == nil {
		a.logger.Debug(context.Background(), "ignoring malformed data object", "error", err)
		return make(map[string]any)
	}
	return data
}

func (a *App) handleError(err error, vm adapter.VM, info string) {
	if a.opts.ErrorHandler != nil {
		a.opts.ErrorHandler(err, vm, info)
		return
	}
	a.logger.Error(context.Background(), err, "component error", "info", info)
}

func (a *App) handleWarning(msg string, vm adapter.VM, trace string) {
	if computedInDataWarning.MatchString(msg) {
		return
	}
	if a.opts.WarnHandler != nil {
		a.opts.WarnHandler(msg, vm, trace)
		return
	}
	a.logger.Warn(context.Background(), nil, msg, "trace", trace)
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
