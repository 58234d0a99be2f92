// Package measure aggregates per stage timings of a run.
package measure

import "time"

// Measure holds one Metric per stage.
type Measure interface {
	AddMetric(name string, workers int) Metric
	Metric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric accumulates the work items of one stage.
type Metric interface {
	AddItem(elapsed time.Duration, produced int, failed bool)
	AVGDuration() time.Duration
	Items() int64
	Failed() int64
	Produced() int64
	Workers() int
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
}
