package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "megashipping"

// Metrics agrupa os coletores do servidor num registry próprio, para que
// testes possam criar quantos servidores quiserem sem colisão.
type Metrics struct {
	registry *prometheus.Registry

	admissions      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	quotes          *prometheus.CounterVec
	floodRejections prometheus.Counter
	inflight        prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Admission gate decisions by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, artificial delay included.",
			Buckets:   []float64{0.005, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 2.5},
		}, []string{"route"}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quote responses by status.",
		}, []string{"status"}),
		floodRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flood_rejections_total",
			Help:      "Requests rejected by the per-IP flood guard.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_requests",
			Help:      "Quote requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.admissions,
		m.requests,
		m.requestDuration,
		m.quotes,
		m.floodRejections,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveAdmission(outcome string) {
	m.admissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveQuote(status string) {
	m.quotes.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveFloodRejection() { m.floodRejections.Inc() }

// InFlightChanged recebe +1/-1 do controle de concorrência.
func (m *Metrics) InFlightChanged(delta int) {
	m.inflight.Add(float64(delta))
}

// Handler expõe o registry no formato do Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
