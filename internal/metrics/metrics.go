// Package metrics exposes codec activity as Prometheus counters.
//
// Collector implements core.Observer, so handing it to core.NewFiles is
// enough to count every record read or written:
//
//	c := metrics.NewCollector(nil)
//	files := core.NewFiles(reg, core.WithObserver(c))
//	http.Handle("/metrics", c.Handler())
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/ucsv/internal/dialect"
)

const namespace = "ucsv"

// Collector counts records, bytes and errors per dialect.
type Collector struct {
	registry *prometheus.Registry

	recordsRead    *prometheus.CounterVec
	recordsWritten *prometheus.CounterVec
	bytesRead      *prometheus.CounterVec
	errors         *prometheus.CounterVec
}

// NewCollector registers the ucsv counters with registry. A nil registry
// gets a fresh one carrying the Go and process collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		recordsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_read_total",
				Help:      "Records decoded, by dialect.",
			},
			[]string{"dialect"},
		),
		recordsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_written_total",
				Help:      "Records encoded, by dialect.",
			},
			[]string{"dialect"},
		),
		bytesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_read_total",
				Help:      "Raw bytes consumed by readers, by dialect.",
			},
			[]string{"dialect"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed sessions, by error kind.",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(c.recordsRead, c.recordsWritten, c.bytesRead, c.errors)
	return c
}

// Registry returns the registry the counters live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordRead(d dialect.Dialect) {
	c.recordsRead.WithLabelValues(d.Name).Inc()
}

func (c *Collector) RecordWritten(d dialect.Dialect) {
	c.recordsWritten.WithLabelValues(d.Name).Inc()
}

func (c *Collector) BytesRead(d dialect.Dialect, n int64) {
	if n > 0 {
		c.bytesRead.WithLabelValues(d.Name).Add(float64(n))
	}
}

// SessionError counts a failed session. op is logged by the session itself
// and not used as a label.
func (c *Collector) SessionError(_, kind string) {
	c.errors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
