package producer

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the producer's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	StreamsStarted    *prometheus.CounterVec
	StreamsFinished   *prometheus.CounterVec
	RequestsRejected  *prometheus.CounterVec
	ActiveStreams     prometheus.Gauge
	ItemsGenerated    prometheus.Counter
	GenerationSeconds prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry so that several
// servers can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StreamsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "primebench_streams_started_total",
			Help: "Total number of streams started",
		}, []string{"transport"}),
		StreamsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "primebench_streams_finished_total",
			Help: "Total number of streams finished, by outcome",
		}, []string{"transport", "outcome"}),
		RequestsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "primebench_requests_rejected_total",
			Help: "Total number of stream requests rejected before streaming",
		}, []string{"reason"}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "primebench_active_streams",
			Help: "Current number of open streams",
		}),
		ItemsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "primebench_items_generated_total",
			Help: "Total number of primes generated",
		}),
		GenerationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "primebench_generation_seconds",
			Help:    "Time spent finding each prime",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeItem(seconds float64) {
	if m == nil {
		return
	}
	m.ItemsGenerated.Inc()
	m.GenerationSeconds.Observe(seconds)
}

func (m *Metrics) streamStarted(transport string) {
	if m == nil {
		return
	}
	m.StreamsStarted.WithLabelValues(transport).Inc()
	m.ActiveStreams.Inc()
}

func (m *Metrics) streamFinished(transport, outcome string) {
	if m == nil {
		return
	}
	m.StreamsFinished.WithLabelValues(transport, outcome).Inc()
	m.ActiveStreams.Dec()
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.RequestsRejected.WithLabelValues(reason).Inc()
}
