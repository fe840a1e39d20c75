// Package metrics exposes the driver loop's Prometheus
// instrumentation: counters for the events every demux/rewrite/render
// run produces, and a gauge for the continuity-counter gaps currently
// in flight.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every counter/gauge a tool wires into its run loop.
// Each tool constructs its own Registry (rather than using the global
// default registerer) so a library caller can run more than one
// instance in the same process without a registration collision.
type Registry struct {
	reg *prometheus.Registry

	PacketsRead          prometheus.Counter
	Resyncs              prometheus.Counter
	SectionsDiscarded    prometheus.Counter
	PESUnitsEmitted      prometheus.Counter
	UnsupportedFeatures  *prometheus.CounterVec
	ContinuityCounterGap prometheus.Gauge
}

// NewRegistry builds a Registry with every metric registered under
// namespace.
func NewRegistry(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		PacketsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_read_total",
			Help:      "Transport-stream packets read from the input source.",
		}),
		Resyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Times the framer lost sync and had to resynchronize on 0x47.",
		}),
		SectionsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_discarded_total",
			Help:      "PSI/SI sections discarded for failing CRC-32 or truncation.",
		}),
		PESUnitsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pes_units_emitted_total",
			Help:      "PES units successfully reassembled and emitted.",
		}),
		UnsupportedFeatures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unsupported_caption_features_total",
			Help:      "Caption control codes/data units recognized but not interpreted, by feature name.",
		}, []string{"feature"}),
		ContinuityCounterGap: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "continuity_counter_gap",
			Help:      "Most recent continuity-counter gap observed on any tracked PID.",
		}),
	}
}

// ListenAndServe starts an HTTP server exposing this Registry on /metrics
// at addr. It blocks until the server stops; callers typically run it
// in its own goroutine.
func (r *Registry) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
