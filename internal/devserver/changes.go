package devserver

import (
	"context"
	"path/filepath"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/manifest"
	"github.com/conneroisu/unobtrusive/internal/watcher"
)

// HandleChanges applies a batch of file changes. A manifest change registers
// new components and asks clients to reload; a template change recompiles
// the component, and the headless app decides how clients update it.
func (s *Server) HandleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	var errs []error
	manifestChanged := false

	for _, e := range events {
		if s.isManifest(e.Path) {
			manifestChanged = true
			continue
		}
		if err := s.applyTemplate(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	if manifestChanged {
		if err := s.ReloadManifest(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.CombineErrors(errs...)
	if err != nil {
		s.metrics.handlerErrors.Add(float64(len(errs)))
		s.hub.broadcast(Message{Type: MessageError, Error: err.Error()})
	}
	return err
}

func (s *Server) isManifest(path string) bool {
	a, errA := filepath.Abs(path)
	b, errB := filepath.Abs(s.manifestPath)
	return errA == nil && errB == nil && a == b
}

func (s *Server) applyTemplate(ctx context.Context, e watcher.ChangeEvent) error {
	if e.Type == watcher.EventTypeDeleted || e.Type == watcher.EventTypeRenamed {
		s.logger.Debug(ctx, "template removed", "file", e.Path)
		return nil
	}

	m := s.currentManifest()
	c, ok := m.ByTemplate(e.Path)
	if !ok {
		s.logger.Debug(ctx, "ignoring file outside the manifest", "file", e.Path)
		return nil
	}

	src, err := m.ReadTemplate(c)
	if err != nil {
		return err
	}
	if _, err := s.registry.UpdateTemplate(c.Name, src); err != nil {
		return errors.WrapValidation(err, errors.ErrCodeComponentNotFound, "update template").
			WithComponent(c.Name)
	}
	s.logger.Info(ctx, "template recompiled", "component", c.Name, "file", e.Path)
	return nil
}

// ReloadManifest reads the manifest again, registers new components,
// recompiles known ones and tells clients to reload.
func (s *Server) ReloadManifest(ctx context.Context) error {
	m, err := manifest.Load(s.manifestPath)
	if err != nil {
		return err
	}

	for _, c := range m.Components {
		src, err := m.ReadTemplate(c)
		if err != nil {
			return err
		}
		if _, ok := s.registry.Get(c.Name); ok {
			if _, err := s.registry.UpdateTemplate(c.Name, src); err != nil {
				return err
			}
			continue
		}
		s.registry.Register(c.Name, nil, src)
	}

	s.mu.Lock()
	s.manifest = m
	s.mu.Unlock()

	s.metrics.reloads.Inc()
	s.hub.broadcast(Message{Type: MessageReload})
	s.logger.Info(ctx, "manifest reloaded", "components", len(m.Components))
	return nil
}
