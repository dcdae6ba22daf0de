package devserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/conneroisu/unobtrusive/internal/errors"
)

// ComponentInfo describes a component in the JSON API.
type ComponentInfo struct {
	Name        string   `json:"name"`
	Template    string   `json:"template"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Version     int      `json:"version"`
	Methods     []string `json:"methods"`
	Properties  []string `json:"properties"`
	Computed    []string `json:"computed"`
}

// CompiledComponent is the compiled template of one component.
type CompiledComponent struct {
	Name     string `json:"name"`
	Compiled string `json:"compiled"`
	Version  int    `json:"version"`
}

// Stats is the payload of /api/stats.
type Stats struct {
	Components  int    `json:"components"`
	Clients     int    `json:"clients"`
	CacheHits   uint64 `json:"cache_hits"`
	CacheMisses uint64 `json:"cache_misses"`
	CacheSize   int    `json:"cache_entries"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) listComponents(w http.ResponseWriter, _ *http.Request) {
	m := s.currentManifest()
	descriptors := s.registry.Descriptors()

	out := make([]ComponentInfo, 0, len(descriptors))
	for _, d := range descriptors {
		info := ComponentInfo{
			Name:       d.ElementName,
			Version:    d.Version,
			Methods:    nonNil(d.Methods),
			Properties: nonNil(d.Properties),
			Computed:   nonNil(d.Computed),
		}
		if c, ok := m.Find(d.ElementName); ok {
			info.Template = c.Template
			info.Type = c.Type
			info.Description = c.Description
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := s.registry.Get(name)
	if !ok {
		err := errors.ErrComponentNotFound(name)
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Message, Code: err.Code})
		return
	}
	s.writeJSON(w, http.StatusOK, CompiledComponent{
		Name:     d.ElementName,
		Compiled: d.Template,
		Version:  d.Version,
	})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	cs := s.cache.Stats()
	s.writeJSON(w, http.StatusOK, Stats{
		Components:  s.registry.Count(),
		Clients:     s.hub.count(),
		CacheHits:   cs.Hits,
		CacheMisses: cs.Misses,
		CacheSize:   cs.Entries,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(context.Background(), err, "encode response")
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
