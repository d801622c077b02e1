package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatrelay"

// Metrics holds the relay's collectors on a private registry so tests can
// build as many as they like.
type Metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	recipients *prometheus.CounterVec
}

// Gauges reports live values sampled at scrape time.
type Gauges struct {
	Connections func() int
	Users       func() int
	Rooms       func() int
}

// New registers the relay collectors. Nil gauge funcs are skipped.
func New(g Gauges) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Client requests by event and result code.",
		}, []string{"event", "result"}),
		recipients: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_recipients_total",
			Help:      "Frames queued to clients by event.",
		}, []string{"event"}),
	}
	m.registry.MustRegister(m.requests, m.recipients)

	m.gauge("active_connections", "Open WebSocket connections.", g.Connections)
	m.gauge("active_users", "Joined users across all rooms.", g.Users)
	m.gauge("active_rooms", "Rooms with at least one user.", g.Rooms)
	return m
}

func (m *Metrics) gauge(name, help string, fn func() int) {
	if fn == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) }))
}

// ObserveRequest counts one settled client request.
func (m *Metrics) ObserveRequest(event, result string) {
	m.requests.WithLabelValues(event, result).Inc()
}

// ObserveBroadcast counts the recipients of one delivery.
func (m *Metrics) ObserveBroadcast(event string, recipients int) {
	m.recipients.WithLabelValues(event).Add(float64(recipients))
}

// Handler exposes the metrics at /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
