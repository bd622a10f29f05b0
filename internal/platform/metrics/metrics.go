package metrics

import (
	"net/http"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "lexis"

// Collector records selection and evaluation metrics. It satisfies both
// selection.Metrics and evaluation.Metrics.
type Collector struct {
	registry *prometheus.Registry

	// Items per category in composed batches
	batchItems *prometheus.CounterVec
	// Batch entries that had to be padded or repeated
	shortfall  prometheus.Counter
	duplicates prometheus.Counter
	// Time spent composing a batch
	selectionDuration prometheus.Histogram

	evaluations      *prometheus.CounterVec
	levelTransitions *prometheus.CounterVec
}

// NewCollector registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		batchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "batch_items_total",
				Help:      "Total number of batch entries by selection category",
			},
			[]string{"category"},
		),
		shortfall: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "batch_shortfall_total",
				Help:      "Total number of batch entries the item pool could not fill with unique items",
			},
		),
		duplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "batch_duplicates_total",
				Help:      "Total number of repeated entries added to fill batches",
			},
		),
		selectionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "selection_duration_seconds",
				Help:      "Time spent composing a practice batch",
				Buckets:   prometheus.DefBuckets,
			},
		),
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "evaluations_total",
				Help:      "Total number of session evaluations by result",
			},
			[]string{"result"}, // promoted/demoted/unchanged/frozen/degraded/repeated
		),
		levelTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "level_transitions_total",
				Help:      "Total number of level changes by direction",
			},
			[]string{"direction"},
		),
	}
}

// BatchComposed records one composed batch.
func (c *Collector) BatchComposed(categories map[domain.Category]int, shortfall, duplicates int, elapsed time.Duration) {
	for category, n := range categories {
		c.batchItems.WithLabelValues(string(category)).Add(float64(n))
	}
	c.shortfall.Add(float64(shortfall))
	c.duplicates.Add(float64(duplicates))
	c.selectionDuration.Observe(elapsed.Seconds())
}

// Evaluated records the result of one session evaluation.
func (c *Collector) Evaluated(result string) {
	c.evaluations.WithLabelValues(result).Inc()
}

// LevelChanged records one level transition.
func (c *Collector) LevelChanged(direction string) {
	c.levelTransitions.WithLabelValues(direction).Inc()
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
