// Package metrics exports the progress of a run as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

const (
	defaultNamespace = "conformer"
	stageLabel       = "stage"
)

// Collector is a run option feeding Prometheus metrics.
type Collector struct {
	items       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	generated   *prometheus.CounterVec
	kept        *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	itemSeconds *prometheus.HistogramVec
	workers     *prometheus.GaugeVec
	runSeconds  prometheus.Gauge
}

// NewCollector registers the metrics of a run with reg. An empty namespace
// defaults to "conformer".
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}

	c := &Collector{
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_items_total",
			Help:      "Work items dispatched per stage.",
		}, []string{stageLabel}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_item_failures_total",
			Help:      "Work items whose generator failed per stage.",
		}, []string{stageLabel}),
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_generated_total",
			Help:      "Variants produced by the generators per stage.",
		}, []string{stageLabel}),
		kept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_kept_total",
			Help:      "Variants kept after selection per stage.",
		}, []string{stageLabel}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Containers that fell back to their input variants per stage.",
		}, []string{stageLabel}),
		itemSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "work_item_duration_seconds",
			Help:      "Generator time of one work item.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{stageLabel}),
		workers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_workers",
			Help:      "Workers used by the stage.",
		}, []string{stageLabel}),
		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.items, c.failures, c.generated, c.kept, c.fallbacks, c.itemSeconds, c.workers, c.runSeconds,
	} {
		err := reg.Register(col)
		if err != nil {
			return nil, errors.Wrap(err, "unable to register metric")
		}
	}

	return c, nil
}

func (c *Collector) New() error {
	c.runSeconds.Set(0)

	return nil
}

func (c *Collector) PrepareStage(_, stage *model.StageInfo) error {
	c.workers.WithLabelValues(stage.Name).Set(float64(stage.Workers))

	return nil
}

func (c *Collector) OnItem(stage *model.StageInfo, elapsed time.Duration, _ int, err error) error {
	c.items.WithLabelValues(stage.Name).Inc()
	c.itemSeconds.WithLabelValues(stage.Name).Observe(elapsed.Seconds())
	if err != nil {
		c.failures.WithLabelValues(stage.Name).Inc()
	}

	return nil
}

func (c *Collector) AfterStage(stage *model.StageInfo, summary model.StageSummary) error {
	c.generated.WithLabelValues(stage.Name).Add(float64(summary.Generated))
	c.kept.WithLabelValues(stage.Name).Add(float64(summary.Kept))
	c.fallbacks.WithLabelValues(stage.Name).Add(float64(summary.Fallbacks))

	return nil
}

func (c *Collector) Finish(total time.Duration) error {
	c.runSeconds.Set(total.Seconds())

	return nil
}

var _ model.RunOption = (*Collector)(nil)
