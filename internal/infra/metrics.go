package infra

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediarelay/internal/domain"
)

// Metrics groups the service collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	outbound         *prometheus.CounterVec
	outboundDuration *prometheus.HistogramVec
	callbacks        prometheus.Counter
	storeEntries     prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediarelay",
			Name:      "outbound_requests_total",
			Help:      "Outbound calls to webhooks and the workflow engine, by target and outcome.",
		}, []string{"target", "outcome"}),
		outboundDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediarelay",
			Name:      "outbound_request_duration_seconds",
			Help:      "Latency of outbound calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"target"}),
		callbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediarelay",
			Name:      "result_callbacks_total",
			Help:      "Result callbacks stored from the workflow engine.",
		}),
		storeEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediarelay",
			Name:      "results_store_entries",
			Help:      "Entries currently held by the results store.",
		}),
	}
	reg.MustRegister(
		m.outbound,
		m.outboundDuration,
		m.callbacks,
		m.storeEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOutbound records one outbound call that started at start.
func (m *Metrics) ObserveOutbound(target string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.outbound.WithLabelValues(target, Outcome(err)).Inc()
	m.outboundDuration.WithLabelValues(target).Observe(time.Since(start).Seconds())
}

func (m *Metrics) CallbackStored() {
	if m == nil {
		return
	}
	m.callbacks.Inc()
}

func (m *Metrics) SetStoreEntries(n int) {
	if m == nil {
		return
	}
	m.storeEntries.Set(float64(n))
}

// Outcome maps an error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConfiguration):
		return "config"
	case errors.Is(err, domain.ErrUpstreamHTTP):
		return "upstream"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
