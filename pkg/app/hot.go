package app

import (
	"context"
	"fmt"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/pkg/adapter"
	"github.com/conneroisu/unobtrusive/pkg/registry"
)

// UpdateMode is how a hot update reaches live instances.
type UpdateMode int

const (
	// ModeRerender keeps live instances and swaps the template.
	ModeRerender UpdateMode = iota
	// ModeReload recreates every live instance.
	ModeReload
)

func (m UpdateMode) String() string {
	switch m {
	case ModeRerender:
		return "rerender"
	case ModeReload:
		return "reload"
	}
	return fmt.Sprintf("UpdateMode(%d)", int(m))
}

// UpdateComponent rebuilds the configuration of d and stores it in the
// shared component table. Instances created afterwards use it.
func (a *App) UpdateComponent(d *registry.Descriptor) *adapter.Config {
	cfg := a.build(d)

	a.mu.Lock()
	a.components[d.ElementName] = cfg
	a.mu.Unlock()
	return cfg
}

// HotUpdate rebuilds name from its current descriptor and pushes the new
// configuration to live instances when the engine supports it. A template
// only change rerenders; anything else reloads.
func (a *App) HotUpdate(name string) (UpdateMode, error) {
	d, ok := a.registry.Get(name)
	if !ok {
		return ModeReload, errors.ErrComponentNotFound(name)
	}

	mode := ModeReload
	if prev, ok := a.Component(name); ok && prev.Descriptor != nil &&
		prev.Descriptor.Class == d.Class &&
		prev.Descriptor.Classification().Equal(d.Classification()) {
		mode = ModeRerender
	}

	cfg := a.UpdateComponent(d)
	if hot, ok := a.engine.(HotReloader); ok {
		switch mode {
		case ModeRerender:
			hot.Rerender(name, cfg)
		default:
			hot.Reload(name, cfg)
		}
	}

	a.logger.Info(context.Background(), "component updated",
		"component", name,
		"mode", mode.String(),
		"version", d.Version)
	if a.opts.OnComponentUpdated != nil {
		a.opts.OnComponentUpdated(name, cfg, mode)
	}
	return mode, nil
}

// Listen applies registry changes until ctx is done. New components are
// built; changed templates or members are hot updated. Params changes need
// no update since params resolve per instance.
func (a *App) Listen(ctx context.Context) error {
	events := a.registry.Watch()
	defer a.registry.UnWatch(events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			a.apply(event)
		}
	}
}

func (a *App) apply(event registry.Event) {
	name := event.Descriptor.ElementName
	switch event.Type {
	case registry.EventTypeAdded:
		a.UpdateComponent(event.Descriptor)
		a.logger.Debug(context.Background(), "component added", "component", name)
	case registry.EventTypeUpdated:
		if !event.TemplateChanged() && !event.MembersChanged() {
			return
		}
		if _, err := a.HotUpdate(name); err != nil {
			a.logger.Warn(context.Background(), err, "hot update failed",
				errors.Fields(err)...)
		}
	}
}
