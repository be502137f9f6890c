package deployment

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-webbeans/framework/bean"
)

const namespace = "webbeans"

// Metrics are the deployment metrics. Each deployment has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	beansRegistered    *prometheus.CounterVec
	definitionErrors   *prometheus.CounterVec
	lifecycleEvents    *prometheus.CounterVec
	deploymentDuration prometheus.Histogram
}

// NewMetrics creates the deployment metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.beansRegistered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beans_registered_total",
			Help:      "Beans added to the bean manager, by kind",
		},
		[]string{"kind"},
	)
	m.registry.MustRegister(m.beansRegistered)

	m.definitionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "definition_errors_total",
			Help:      "Definition errors found at each checkpoint, by phase",
		},
		[]string{"phase"},
	)
	m.registry.MustRegister(m.definitionErrors)

	m.lifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Lifecycle events delivered to extensions, by event",
		},
		[]string{"event"},
	)
	m.registry.MustRegister(m.lifecycleEvents)

	m.deploymentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_duration_seconds",
			Help:      "Wall time of a deployment",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
	m.registry.MustRegister(m.deploymentDuration)

	return m
}

func (m *Metrics) BeanRegistered(kind bean.Kind) {
	m.beansRegistered.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) DefinitionErrors(phase string, n int) {
	if n > 0 {
		m.definitionErrors.WithLabelValues(phase).Add(float64(n))
	}
}

func (m *Metrics) EventFired(event string) {
	m.lifecycleEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveDeployment(d time.Duration) {
	m.deploymentDuration.Observe(d.Seconds())
}

// Registry returns the registry holding the deployment metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
