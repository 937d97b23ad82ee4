package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiosk"

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	OrdersCreated  prometheus.Counter
	TotalMismatch  prometheus.Counter
	StorageErrors  *prometheus.CounterVec
	ActiveBackend  *prometheus.GaugeVec
	ProofsVerified prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders accepted by the order service.",
		}),
		TotalMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_total_mismatch_total",
			Help:      "Orders whose submitted total differed from the recomputed total.",
		}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Order operations that failed with a storage error.",
		}, []string{"operation"}),
		ActiveBackend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_active_backend",
			Help:      "1 for the storage backend currently serving requests.",
		}, []string{"backend"}),
		ProofsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_proofs_verified_total",
			Help:      "Payment proofs verified by an admin.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.LatencyMS, m.OrdersCreated, m.TotalMismatch,
		m.StorageErrors, m.ActiveBackend, m.ProofsVerified,
	)
	return m
}

// SetActiveBackend is wired to storage.Chain.OnSwitch.
func (m *Metrics) SetActiveBackend(from, to string) {
	if from != "" {
		m.ActiveBackend.WithLabelValues(from).Set(0)
	}
	if to != "" {
		m.ActiveBackend.WithLabelValues(to).Set(1)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
