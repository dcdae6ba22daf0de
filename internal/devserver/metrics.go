package devserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/conneroisu/unobtrusive/pkg/template"
)

const metricsNamespace = "unobtrusive"

type metrics struct {
	hotUpdates    *prometheus.CounterVec
	reloads       prometheus.Counter
	clients       prometheus.Gauge
	dropped       prometheus.Counter
	handlerErrors prometheus.Counter
	engineErrors  prometheus.Counter
}

// newMetrics registers the dev server collectors in reg. Compile counters
// read the template cache at scrape time.
func newMetrics(reg prometheus.Registerer, cache *template.Cache) *metrics {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "compiler",
		Name:      "compiles_total",
		Help:      "Template compilations that missed the cache",
	}, func() float64 { return float64(cache.Stats().Misses) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "compiler",
		Name:      "cache_hits_total",
		Help:      "Template compilations served from the cache",
	}, func() float64 { return float64(cache.Stats().Hits) })

	return &metrics{
		hotUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "devserver",
			Name:      "hot_updates_total",
			Help:      "Component hot updates broadcast to clients",
		}, []string{"mode"}),

		reloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "devserver",
			Name:      "manifest_reloads_total",
			Help:      "Manifest reloads that asked clients to reload the page",
		}),

		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "devserver",
			Name:      "websocket_clients",
			Help:      "Connected hot update clients",
		}),

		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "devserver",
			Name:      "dropped_messages_total",
			Help:      "Messages dropped for clients that could not keep up",
		}),

		handlerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "devserver",
			Name:      "change_errors_total",
			Help:      "File changes that could not be applied",
		}),

		engineErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "devserver",
			Name:      "engine_errors_total",
			Help:      "Errors raised by component code in the preview engine",
		}),
	}
}
