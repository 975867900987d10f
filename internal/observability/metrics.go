// Package observability holds Prometheus metrics for Kestrel.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the classification service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	classifications      *prometheus.CounterVec
	classifyDuration     *prometheus.HistogramVec
	safeguardsTriggered  *prometheus.CounterVec
	classificationErrors *prometheus.CounterVec
	transactionsImported prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_classifications_total",
				Help: "Total classifications by decision.",
			},
			[]string{"decision", "tx_type"},
		),
		classifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kestrel_classify_duration_seconds",
				Help:    "Duration of classification by stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		safeguardsTriggered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_safeguards_triggered_total",
				Help: "Total safeguard activations by name.",
			},
			[]string{"safeguard"},
		),
		classificationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_classification_errors_total",
				Help: "Total classification failures by reason.",
			},
			[]string{"reason"},
		),
		transactionsImported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kestrel_transactions_imported_total",
				Help: "Total transactions loaded by the dataset importer.",
			},
		),
	}
}

// RecordClassification counts a finished classification and its
// triggered safeguards.
func (m *Metrics) RecordClassification(decision, txType string, safeguards []string) {
	m.classifications.WithLabelValues(decision, txType).Inc()
	for _, s := range safeguards {
		m.safeguardsTriggered.WithLabelValues(s).Inc()
	}
}

// RecordClassifyDuration records the duration of a pipeline stage.
func (m *Metrics) RecordClassifyDuration(stage string, d time.Duration) {
	m.classifyDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncrClassificationError increments the error counter.
func (m *Metrics) IncrClassificationError(reason string) {
	m.classificationErrors.WithLabelValues(reason).Inc()
}

// AddImported counts imported dataset transactions.
func (m *Metrics) AddImported(n int) {
	m.transactionsImported.Add(float64(n))
}
