// Package devserver serves a live preview of the components listed in a
// manifest. Template edits are compiled, applied to a headless app and
// pushed to connected browsers over a websocket.
package devserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/logging"
	"github.com/conneroisu/unobtrusive/internal/manifest"
	"github.com/conneroisu/unobtrusive/internal/watcher"
	"github.com/conneroisu/unobtrusive/pkg/adapter"
	"github.com/conneroisu/unobtrusive/pkg/app"
	"github.com/conneroisu/unobtrusive/pkg/hosttest"
	"github.com/conneroisu/unobtrusive/pkg/registry"
	"github.com/conneroisu/unobtrusive/pkg/template"
)

const shutdownTimeout = 5 * time.Second

// Server is the development preview server.
type Server struct {
	cfg          *config.Config
	manifestPath string
	logger       logging.Logger
	gatherer     prometheus.Gatherer

	mu       sync.RWMutex
	manifest *manifest.Manifest

	registry *registry.Registry
	cache    *template.Cache
	engine   *hosttest.Engine
	app      *app.App
	hub      *hub
	metrics  *metrics
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetricsRegistry registers the server metrics in reg instead of a
// private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.gatherer = reg }
}

// New registers every component of m and mounts them in a headless app.
// manifestPath is watched for component list changes.
func New(cfg *config.Config, m *manifest.Manifest, manifestPath string, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:          cfg,
		manifest:     m,
		manifestPath: manifestPath,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("devserver")

	promReg, ok := s.gatherer.(*prometheus.Registry)
	if !ok {
		promReg = prometheus.NewRegistry()
		s.gatherer = promReg
	}

	var compileOpts []template.Option
	if cfg.Compiler.CollapseWhitespace {
		compileOpts = append(compileOpts, template.WithCollapseWhitespace())
	}
	cache, err := template.NewCache(cfg.Compiler.CacheSize, compileOpts...)
	if err != nil {
		return nil, errors.WrapInternal(err, errors.ErrCodeInternalError, "create template cache")
	}
	s.cache = cache
	s.metrics = newMetrics(promReg, cache)
	s.hub = newHub(cfg.Server.AllowedOrigins, s.metrics, s.logger)

	s.registry = registry.New(registry.WithCache(cache))
	if err := m.Register(s.registry); err != nil {
		return nil, err
	}

	s.engine = hosttest.NewEngine()
	container := hosttest.NewContainer(rootMarkup(s.registry.Names()), nil)
	s.app, err = app.New(s.engine, container, nil, &app.Options{
		IsDev:              true,
		Registry:           s.registry,
		Logger:             s.logger,
		OnComponentUpdated: s.componentUpdated,
		ErrorHandler:       s.engineError,
	})
	if err != nil {
		return nil, err
	}

	s.router = s.routes()
	return s, nil
}

// rootMarkup mounts one instance of every component.
func rootMarkup(names []string) string {
	var b strings.Builder
	for _, name := range names {
		b.WriteString("<" + name + "></" + name + ">")
	}
	return b.String()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", templ.Handler(previewPage(s.registry, s.cfg.Development.HotReload)).ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", s.hub.serveWS)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.cors)
		r.Get("/components", s.listComponents)
		r.Get("/components/{name}", s.getComponent)
		r.Get("/stats", s.stats)
	})
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the registry the server compiles into.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Clients returns the number of connected preview clients.
func (s *Server) Clients() int {
	return s.hub.count()
}

// Broadcast sends msg to every connected client.
func (s *Server) Broadcast(msg Message) {
	s.hub.broadcast(msg)
}

// Addr returns the listen address from the configuration.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.app.Listen(ctx)
	defer s.app.Dispose()

	if s.cfg.Development.HotReload {
		w, err := s.watch(ctx)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "preview server listening", "addr", srv.Addr, "components", s.registry.Count())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.NewHostError(errors.ErrCodeServerFailed, "serve preview", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.NewHostError(errors.ErrCodeServerFailed, "shutdown preview server", err)
	}
	s.logger.Info(context.Background(), "preview server stopped")
	return nil
}

func (s *Server) watch(ctx context.Context) (*watcher.FileWatcher, error) {
	dir := s.currentManifest().Dir()
	w, err := watcher.New(s.cfg.Development.Debounce,
		watcher.WithRoot(dir),
		watcher.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	w.AddFilter(watcher.NoHiddenFilter)
	w.AddFilter(watcher.AnyOf(watcher.TemplateFilter, watcher.ManifestFilter))
	w.AddHandler(s.HandleChanges)
	if err := w.AddRecursive(dir); err != nil {
		w.Stop()
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

func (s *Server) currentManifest() *manifest.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// componentUpdated forwards hot updates of the headless app to clients.
func (s *Server) componentUpdated(name string, cfg *adapter.Config, mode app.UpdateMode) {
	version := 0
	if d, ok := s.registry.Get(name); ok {
		version = d.Version
	}
	s.metrics.hotUpdates.WithLabelValues(mode.String()).Inc()
	s.hub.broadcast(Message{
		Type:      MessageUpdate,
		Component: name,
		Mode:      mode.String(),
		Template:  cfg.Template,
		Version:   version,
	})
}

func (s *Server) engineError(err error, _ adapter.VM, info string) {
	s.metrics.engineErrors.Inc()
	s.logger.Error(context.Background(), err, "component error", "info", info)
	s.hub.broadcast(Message{Type: MessageError, Error: err.Error()})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigin(origin, s.cfg.Server.AllowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}
