package openapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for document assembly and the spec
// endpoints. A nil *Metrics is valid and records nothing.
type Metrics struct {
	buildDuration prometheus.Histogram
	schemas       prometheus.Gauge
	operations    prometheus.Gauge
	fallbacks     prometheus.Counter
	collisions    prometheus.Counter
	requests      *prometheus.CounterVec // By format and code
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apidocs",
			Subsystem: "openapi",
			Name:      "build_duration_seconds",
			Help:      "Time spent assembling the OpenAPI document",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		schemas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "apidocs",
			Subsystem: "openapi",
			Name:      "component_schemas",
			Help:      "Number of component schemas in the assembled document",
		}),

		operations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "apidocs",
			Subsystem: "openapi",
			Name:      "operations",
			Help:      "Number of operations in the assembled document",
		}),

		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apidocs",
			Subsystem: "openapi",
			Name:      "resolver_fallbacks_total",
			Help:      "Type descriptors that could not be resolved and fell back to an untyped object",
		}),

		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apidocs",
			Subsystem: "openapi",
			Name:      "schema_collisions_total",
			Help:      "Structurally different schemas registered under the same component name",
		}),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apidocs",
			Subsystem: "openapi",
			Name:      "spec_requests_total",
			Help:      "Requests served by the documentation endpoints",
		}, []string{"format", "code"}), // format: json, yaml, ui, redirect
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.buildDuration, m.schemas, m.operations,
		m.fallbacks, m.collisions, m.requests,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordBuild(duration time.Duration, doc *Document) {
	if m == nil {
		return
	}

	m.buildDuration.Observe(duration.Seconds())
	if doc == nil {
		return
	}

	schemas := 0
	if doc.Components != nil {
		schemas = len(doc.Components.Schemas)
	}
	m.schemas.Set(float64(schemas))

	ops := 0
	for _, item := range doc.Paths {
		ops += len(item.Operations())
	}
	m.operations.Set(float64(ops))
}

func (m *Metrics) recordFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) recordCollision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *Metrics) recordRequest(format string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(format, strconv.Itoa(code)).Inc()
}
